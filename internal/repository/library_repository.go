package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dify-manga/internal/domain"
	"dify-manga/internal/repository/models"
	"dify-manga/internal/util"

	"github.com/jmoiron/sqlx"
)

const libraryColumns = `id, title, question, level, image_urls, run_id, created_at, updated_at`

// sqlxLibraryRepository implements domain.LibraryRepository using sqlx.
type sqlxLibraryRepository struct {
	db DBTX
}

// NewLibraryRepository creates a new library repository over db.
func NewLibraryRepository(db *sqlx.DB) domain.LibraryRepository {
	return &sqlxLibraryRepository{db: db}
}

func toDomainLibraryEntry(m *models.LibraryEntry) *domain.LibraryEntry {
	if m == nil {
		return nil
	}
	return &domain.LibraryEntry{
		ID:        m.ID,
		Title:     m.Title,
		Question:  m.Question,
		Level:     m.Level,
		ImageURLs: []string(m.ImageURLs),
		RunID:     m.RunID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromDomainLibraryEntry(e *domain.LibraryEntry) *models.LibraryEntry {
	if e == nil {
		return nil
	}
	return &models.LibraryEntry{
		ID:        e.ID,
		Title:     e.Title,
		Question:  e.Question,
		Level:     e.Level,
		ImageURLs: models.StringSlice(e.ImageURLs),
		RunID:     e.RunID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// Create assigns the ID and timestamps when they are unset.
func (r *sqlxLibraryRepository) Create(ctx context.Context, entry *domain.LibraryEntry) error {
	if entry.ID == "" {
		entry.ID = util.NewULID()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt

	query := `INSERT INTO library_entries (` + libraryColumns + `)
	          VALUES (:id, :title, :question, :level, :image_urls, :run_id, :created_at, :updated_at)`

	if _, err := GetExecutor(ctx, r.db).NamedExecContext(ctx, query, fromDomainLibraryEntry(entry)); err != nil {
		return fmt.Errorf("failed to create library entry: %w", err)
	}
	return nil
}

func (r *sqlxLibraryRepository) List(ctx context.Context) ([]*domain.LibraryEntry, error) {
	exec := GetExecutor(ctx, r.db)
	query := `SELECT ` + libraryColumns + ` FROM library_entries ORDER BY created_at DESC, id DESC`

	var rows []models.LibraryEntry
	if err := exec.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list library entries: %w", err)
	}

	entries := make([]*domain.LibraryEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, toDomainLibraryEntry(&rows[i]))
	}
	return entries, nil
}

func (r *sqlxLibraryRepository) getOne(ctx context.Context, column, value string) (*domain.LibraryEntry, error) {
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`SELECT ` + libraryColumns + ` FROM library_entries WHERE ` + column + ` = ?`)

	var row models.LibraryEntry
	if err := exec.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get library entry by %s: %w", column, err)
	}
	return toDomainLibraryEntry(&row), nil
}

func (r *sqlxLibraryRepository) GetByID(ctx context.Context, id string) (*domain.LibraryEntry, error) {
	return r.getOne(ctx, "id", id)
}

func (r *sqlxLibraryRepository) GetByRunID(ctx context.Context, runID string) (*domain.LibraryEntry, error) {
	return r.getOne(ctx, "run_id", runID)
}

// Update changes the non-nil fields of update and returns the stored entry.
func (r *sqlxLibraryRepository) Update(ctx context.Context, id string, update domain.LibraryUpdate) (*domain.LibraryEntry, error) {
	exec := GetExecutor(ctx, r.db)
	query := exec.Rebind(`UPDATE library_entries SET
	            title = COALESCE(?, title),
	            question = COALESCE(?, question),
	            level = COALESCE(?, level),
	            updated_at = ?
	          WHERE id = ?`)

	result, err := exec.ExecContext(ctx, query, update.Title, update.Question, update.Level, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update library entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, domain.ErrLibraryEntryNotFound
	}

	entry, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrLibraryEntryNotFound
	}
	return entry, nil
}

func (r *sqlxLibraryRepository) Delete(ctx context.Context, id string) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM library_entries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete library entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrLibraryEntryNotFound
	}
	return nil
}
