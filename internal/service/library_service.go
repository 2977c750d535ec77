package service

import (
	"context"
	"errors"

	"dify-manga/internal/domain"
	"dify-manga/internal/logger"
	"dify-manga/internal/validation"

	"go.uber.org/zap"
)

// LibraryService exposes the saved mangas.
type LibraryService interface {
	List(ctx context.Context) ([]*domain.LibraryEntry, error)
	Get(ctx context.Context, id string) (*domain.LibraryEntry, error)
	Update(ctx context.Context, id string, update domain.LibraryUpdate) (*domain.LibraryEntry, error)
	Delete(ctx context.Context, id string) error
}

type libraryService struct {
	repo      domain.LibraryRepository
	tm        domain.TransactionManager
	validator *validation.Validator
}

func NewLibraryService(repo domain.LibraryRepository, tm domain.TransactionManager) LibraryService {
	return &libraryService{repo: repo, tm: tm, validator: validation.NewValidator()}
}

func (s *libraryService) List(ctx context.Context) ([]*domain.LibraryEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		logger.Get().Error("Failed to list library entries", zap.Error(err))
		return nil, domain.NewInternalError("failed to list library entries", err)
	}
	if entries == nil {
		entries = []*domain.LibraryEntry{}
	}
	return entries, nil
}

func (s *libraryService) Get(ctx context.Context, id string) (*domain.LibraryEntry, error) {
	if errs := s.validator.ValidateLibraryEntryID(id); len(errs) > 0 {
		return nil, errs
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.Get().Error("Failed to get library entry", zap.String("id", id), zap.Error(err))
		return nil, domain.NewInternalError("failed to get library entry", err)
	}
	if entry == nil {
		return nil, domain.NewEntryNotFoundError(id)
	}
	return entry, nil
}

func (s *libraryService) Update(ctx context.Context, id string, update domain.LibraryUpdate) (*domain.LibraryEntry, error) {
	errs := s.validator.ValidateLibraryEntryID(id)
	errs = append(errs, s.validator.ValidateLibraryUpdate(update)...)
	if len(errs) > 0 {
		return nil, errs
	}

	var updated *domain.LibraryEntry
	err := s.tm.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.repo.Update(txCtx, id, update)
		return err
	})
	if errors.Is(err, domain.ErrLibraryEntryNotFound) {
		return nil, domain.NewEntryNotFoundError(id)
	}
	if err != nil {
		logger.Get().Error("Failed to update library entry", zap.String("id", id), zap.Error(err))
		return nil, domain.NewInternalError("failed to update library entry", err)
	}
	logger.Get().Info("Library entry updated", zap.String("id", id))
	return updated, nil
}

func (s *libraryService) Delete(ctx context.Context, id string) error {
	if errs := s.validator.ValidateLibraryEntryID(id); len(errs) > 0 {
		return errs
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrLibraryEntryNotFound) {
		return domain.NewEntryNotFoundError(id)
	}
	if err != nil {
		logger.Get().Error("Failed to delete library entry", zap.String("id", id), zap.Error(err))
		return domain.NewInternalError("failed to delete library entry", err)
	}
	logger.Get().Info("Library entry deleted", zap.String("id", id))
	return nil
}
