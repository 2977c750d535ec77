package repository

import (
	"context"
	"fmt"
	"time"

	"dify-manga/internal/domain"
	"dify-manga/internal/repository/models"
	"dify-manga/internal/util"

	"github.com/jmoiron/sqlx"
)

// sqlxWorkflowRunRepository implements domain.WorkflowRunRepository using sqlx.
type sqlxWorkflowRunRepository struct {
	db DBTX
}

func NewWorkflowRunRepository(db *sqlx.DB) domain.WorkflowRunRepository {
	return &sqlxWorkflowRunRepository{db: db}
}

// Create records a run as processing. Recording the same run twice is a no-op.
func (r *sqlxWorkflowRunRepository) Create(ctx context.Context, runID string) error {
	now := time.Now().UTC()
	run := &models.WorkflowRun{
		ID:        util.NewULID(),
		RunID:     runID,
		Status:    string(domain.WorkflowRunProcessing),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `INSERT INTO workflow_runs (id, run_id, status, created_at, updated_at)
	          VALUES (:id, :run_id, :status, :created_at, :updated_at)
	          ON CONFLICT (run_id) DO NOTHING`

	if _, err := GetExecutor(ctx, r.db).NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to create workflow run: %w", err)
	}
	return nil
}

// UpdateStatus upserts so runs started before tracking existed are still recorded.
func (r *sqlxWorkflowRunRepository) UpdateStatus(ctx context.Context, runID string, state domain.WorkflowRunState) error {
	now := time.Now().UTC()
	run := &models.WorkflowRun{
		ID:        util.NewULID(),
		RunID:     runID,
		Status:    string(state),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `INSERT INTO workflow_runs (id, run_id, status, created_at, updated_at)
	          VALUES (:id, :run_id, :status, :created_at, :updated_at)
	          ON CONFLICT (run_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`

	if _, err := GetExecutor(ctx, r.db).NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to update workflow run status: %w", err)
	}
	return nil
}
