package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"dify-manga/internal/cache"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"
	"dify-manga/internal/validation"

	"go.uber.org/zap"
)

// SnapshotService persists per-session client state. owner is the
// authenticated user id, or "" when authentication is off; snapshots of
// different owners never share a key.
type SnapshotService interface {
	Save(ctx context.Context, owner, sessionID string, snapshot domain.Snapshot) error
	// Load returns a not-found error for missing, stale or corrupt snapshots.
	Load(ctx context.Context, owner, sessionID string) (*domain.Snapshot, error)
	Clear(ctx context.Context, owner, sessionID string) error
}

type snapshotService struct {
	cache     domain.Cache
	ttl       time.Duration
	validator *validation.Validator
	now       func() time.Time
}

func NewSnapshotService(c domain.Cache, ttl time.Duration) SnapshotService {
	return &snapshotService{cache: c, ttl: ttl, validator: validation.NewValidator(), now: time.Now}
}

func snapshotKey(owner, sessionID string) string {
	if owner == "" {
		return cache.GenerateCacheKey("session", "snapshot", sessionID)
	}
	return cache.GenerateCacheKey("session", "snapshot", sessionID, owner)
}

func (s *snapshotService) Save(ctx context.Context, owner, sessionID string, snapshot domain.Snapshot) error {
	errs := s.validator.ValidateSessionID(sessionID)
	errs = append(errs, s.validator.ValidateSnapshot(snapshot)...)
	if len(errs) > 0 {
		return errs
	}

	snapshot.Version = domain.SnapshotVersion
	snapshot.SavedAt = s.now().UTC()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return domain.NewInternalError("failed to encode snapshot", err)
	}
	if err := s.cache.Set(ctx, snapshotKey(owner, sessionID), string(data), s.ttl); err != nil {
		logger.Get().Error("Failed to save snapshot", zap.String("session_id", sessionID), zap.Error(err))
		return domain.NewInternalError("failed to save snapshot", err)
	}
	return nil
}

func (s *snapshotService) Load(ctx context.Context, owner, sessionID string) (*domain.Snapshot, error) {
	if errs := s.validator.ValidateSessionID(sessionID); len(errs) > 0 {
		return nil, errs
	}
	key := snapshotKey(owner, sessionID)

	data, err := s.cache.Get(ctx, key)
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil, domain.NewNotFoundError("snapshot not found")
	}
	if err != nil {
		logger.Get().Error("Failed to load snapshot", zap.String("session_id", sessionID), zap.Error(err))
		return nil, domain.NewInternalError("failed to load snapshot", err)
	}

	var snapshot domain.Snapshot
	reason := ""
	switch {
	case json.Unmarshal([]byte(data), &snapshot) != nil:
		reason = "corrupt"
	case snapshot.Version != domain.SnapshotVersion:
		reason = "version mismatch"
	case snapshot.Expired(s.now(), s.ttl):
		reason = "expired"
	}
	if reason != "" {
		logger.Get().Info("Discarding snapshot", zap.String("session_id", sessionID), zap.String("reason", reason))
		if err := s.cache.Delete(ctx, key); err != nil {
			logger.Get().Warn("Failed to delete discarded snapshot", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, domain.NewNotFoundError("snapshot not found")
	}
	return &snapshot, nil
}

func (s *snapshotService) Clear(ctx context.Context, owner, sessionID string) error {
	if errs := s.validator.ValidateSessionID(sessionID); len(errs) > 0 {
		return errs
	}
	if err := s.cache.Delete(ctx, snapshotKey(owner, sessionID)); err != nil {
		logger.Get().Error("Failed to clear snapshot", zap.String("session_id", sessionID), zap.Error(err))
		return domain.NewInternalError("failed to clear snapshot", err)
	}
	return nil
}
