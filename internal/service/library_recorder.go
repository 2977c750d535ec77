package service

import (
	"context"

	"dify-manga/internal/domain"
	"dify-manga/internal/logger"

	"go.uber.org/zap"
)

// libraryRecorder persists finished runs. Every failure is logged and
// swallowed: the caller still returns its images.
type libraryRecorder struct {
	libraryRepo domain.LibraryRepository
	runRepo     domain.WorkflowRunRepository
	tm          domain.TransactionManager
}

type recordInput struct {
	RunID     string
	Title     string
	Question  string
	Level     string
	ImageURLs []string
}

func (r *libraryRecorder) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.tm == nil {
		return fn(ctx)
	}
	return r.tm.WithTransaction(ctx, fn)
}

// record stores the entry for a run unless one already exists and marks the
// run completed. It returns the library entry id, or "" when nothing was saved.
func (r *libraryRecorder) record(ctx context.Context, in recordInput) string {
	if r == nil || r.libraryRepo == nil {
		return ""
	}
	log := logger.Get().With(zap.String("run_id", in.RunID))

	existing, err := r.libraryRepo.GetByRunID(ctx, in.RunID)
	if err != nil {
		log.Error("Failed to look up library entry for run", zap.Error(err))
		return ""
	}
	if existing != nil {
		return existing.ID
	}

	entry, err := domain.NewLibraryEntry(in.Title, in.Question, in.Level, in.ImageURLs, in.RunID)
	if err != nil {
		log.Error("Refusing to save invalid library entry", zap.Error(err))
		return ""
	}

	err = r.withTx(ctx, func(txCtx context.Context) error {
		if err := r.libraryRepo.Create(txCtx, entry); err != nil {
			return err
		}
		if r.runRepo != nil {
			return r.runRepo.UpdateStatus(txCtx, in.RunID, domain.WorkflowRunCompleted)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to save library entry", zap.Error(err))
		return ""
	}

	log.Info("Saved library entry", zap.String("library_id", entry.ID), zap.Int("images", len(entry.ImageURLs)))
	return entry.ID
}

// markRun records state for a real run; failures are logged only.
func (r *libraryRecorder) markRun(ctx context.Context, runID string, state domain.WorkflowRunState) {
	if r == nil || r.runRepo == nil {
		return
	}
	var err error
	if state == domain.WorkflowRunProcessing {
		err = r.runRepo.Create(ctx, runID)
	} else {
		err = r.runRepo.UpdateStatus(ctx, runID, state)
	}
	if err != nil {
		logger.Get().Error("Failed to record workflow run state",
			zap.String("run_id", runID),
			zap.String("state", string(state)),
			zap.Error(err))
	}
}
