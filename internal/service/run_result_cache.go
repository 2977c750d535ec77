package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dify-manga/internal/cache"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"

	"go.uber.org/zap"
)

// ErrRunResultNotFound is returned when no terminal result is cached for a run.
var ErrRunResultNotFound = errors.New("run result not found in cache")

// RunResultCache keeps terminal status results so repeated status checks for a
// finished run return the same images without touching Dify or the store again.
type RunResultCache interface {
	Put(ctx context.Context, result *domain.StatusResult) error
	Get(ctx context.Context, runID string) (*domain.StatusResult, error)
}

type cachedRunResult struct {
	RunID     string           `json:"run_id"`
	Status    domain.RunStatus `json:"status"`
	ImageURLs []string         `json:"image_urls,omitempty"`
	Message   string           `json:"message,omitempty"`
	LibraryID string           `json:"library_id,omitempty"`
}

type runResultCacheImpl struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewRunResultCache returns a no-op cache when c is nil.
func NewRunResultCache(c domain.Cache, ttl time.Duration) RunResultCache {
	if c == nil {
		logger.Get().Warn("RunResultCache initialized with nil cache. Service will be no-op.")
		return &noopRunResultCache{}
	}
	return &runResultCacheImpl{cache: c, ttl: ttl}
}

func (s *runResultCacheImpl) generateKey(runID string) string {
	return cache.GenerateCacheKey("generation", "result", runID)
}

func (s *runResultCacheImpl) Put(ctx context.Context, result *domain.StatusResult) error {
	if result == nil {
		return domain.NewInvalidInputError("cannot cache nil result")
	}
	if !result.Status.Terminal() {
		return nil
	}

	key := s.generateKey(result.RunID)
	dataBytes, err := json.Marshal(cachedRunResult{
		RunID:     result.RunID,
		Status:    result.Status,
		ImageURLs: result.ImageURLs,
		Message:   result.Message,
		LibraryID: result.LibraryID,
	})
	if err != nil {
		return domain.NewInternalError("failed to marshal run result for caching", err)
	}

	if err := s.cache.Set(ctx, key, string(dataBytes), s.ttl); err != nil {
		logger.Get().Error("Failed to cache run result", zap.Error(err), zap.String("key", key))
		return domain.NewInternalError(fmt.Sprintf("failed to set run result to cache for key %s", key), err)
	}
	logger.Get().Debug("Cached run result", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return nil
}

func (s *runResultCacheImpl) Get(ctx context.Context, runID string) (*domain.StatusResult, error) {
	key := s.generateKey(runID)
	dataString, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, ErrRunResultNotFound
		}
		logger.Get().Error("Failed to get run result from cache", zap.Error(err), zap.String("key", key))
		return nil, domain.NewInternalError(fmt.Sprintf("failed to get run result from cache for key %s", key), err)
	}
	if dataString == "" {
		return nil, ErrRunResultNotFound
	}

	var cached cachedRunResult
	if err := json.Unmarshal([]byte(dataString), &cached); err != nil {
		logger.Get().Warn("Discarding unreadable cached run result", zap.Error(err), zap.String("key", key))
		_ = s.cache.Delete(ctx, key)
		return nil, ErrRunResultNotFound
	}

	return &domain.StatusResult{
		RunID:     cached.RunID,
		Status:    cached.Status,
		ImageURLs: cached.ImageURLs,
		Message:   cached.Message,
		LibraryID: cached.LibraryID,
	}, nil
}

type noopRunResultCache struct{}

func (noopRunResultCache) Put(context.Context, *domain.StatusResult) error { return nil }

func (noopRunResultCache) Get(context.Context, string) (*domain.StatusResult, error) {
	return nil, ErrRunResultNotFound
}
