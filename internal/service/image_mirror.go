package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"dify-manga/internal/domain"
	"dify-manga/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImageMirror copies generated images into the object store. Mirroring is
// best-effort: any failure keeps the original URL in place.
type ImageMirror struct {
	store       domain.ImageStore
	prefix      string
	concurrency int
}

func NewImageMirror(store domain.ImageStore, prefix string, concurrency int) *ImageMirror {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ImageMirror{store: store, prefix: prefix, concurrency: concurrency}
}

// ObjectKey is the deterministic key of image index (0-based) of runID.
func (m *ImageMirror) ObjectKey(runID string, index int) string {
	name := fmt.Sprintf("%s_%d.png", url.PathEscape(runID), index+1)
	if m.prefix == "" {
		return name
	}
	return m.prefix + "/" + name
}

// MirrorOne returns the stored URL, or source when mirroring failed.
func (m *ImageMirror) MirrorOne(ctx context.Context, runID string, index int, source string) (string, bool) {
	if m == nil || m.store == nil {
		return source, false
	}
	key := m.ObjectKey(runID, index)
	stored, err := m.store.Mirror(ctx, source, key)
	if errors.Is(err, domain.ErrStorageDisabled) {
		return source, false
	}
	if err != nil || stored == "" {
		logger.Get().Warn("Image mirroring failed, keeping original URL",
			zap.String("run_id", runID),
			zap.String("key", key),
			zap.String("source", source),
			zap.Error(err))
		return source, false
	}
	return stored, true
}

// MirrorAll mirrors every image concurrently and returns the URLs in the input
// order. The result always has the same length as sources.
func (m *ImageMirror) MirrorAll(ctx context.Context, runID string, sources []string) []string {
	out := make([]string, len(sources))
	copy(out, sources)
	if m == nil || m.store == nil || len(sources) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, source := range sources {
		g.Go(func() error {
			out[i], _ = m.MirrorOne(ctx, runID, i, source)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
