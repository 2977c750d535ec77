package service

import (
	"context"
	"fmt"
	"time"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Generation modes accepted by generation.mode.
const (
	ModePolling   = "polling"
	ModeStreaming = "streaming"
)

// GenerationOutcome is the end state of one generation, whichever way it was
// driven.
type GenerationOutcome struct {
	RunID     string
	Status    domain.RunStatus
	ImageURLs []string
	LibraryID string
	Message   string
	Degraded  bool
}

// ProgressFunc observes intermediate progress. It may be nil.
type ProgressFunc func(message string)

// GenerationStrategy drives a generation from submission to a terminal outcome.
type GenerationStrategy interface {
	Name() string
	Generate(ctx context.Context, req domain.GenerationRequest, onProgress ProgressFunc) (*GenerationOutcome, error)
}

// NewGenerationStrategy selects the strategy for mode. Unknown modes fall back
// to streaming.
func NewGenerationStrategy(mode string, generation GenerationService, stream StreamService, cfg config.GenerationConfig) GenerationStrategy {
	if mode == ModePolling {
		return &pollingStrategy{
			generation:   generation,
			initialDelay: cfg.PollInitialDelay,
			interval:     cfg.PollInterval,
			maxAttempts:  cfg.PollMaxAttempts,
			sleep:        sleepContext,
		}
	}
	return &streamingStrategy{stream: stream}
}

func report(onProgress ProgressFunc, format string, args ...interface{}) {
	if onProgress != nil {
		onProgress(fmt.Sprintf(format, args...))
	}
}

type pollingStrategy struct {
	generation   GenerationService
	initialDelay time.Duration
	interval     time.Duration
	maxAttempts  int
	sleep        func(ctx context.Context, d time.Duration) error
}

func (p *pollingStrategy) Name() string { return ModePolling }

func (p *pollingStrategy) Generate(ctx context.Context, req domain.GenerationRequest, onProgress ProgressFunc) (*GenerationOutcome, error) {
	started, err := p.generation.Initiate(ctx, req)
	if err != nil {
		return nil, err
	}
	runID := started.Handle.RunID
	report(onProgress, "%s (run %s)", started.Message, runID)

	if err := p.sleep(ctx, p.initialDelay); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		result, err := p.generation.ResolveStatus(ctx, runID)
		if err != nil {
			logger.Get().Warn("Status check failed",
				zap.String("run_id", runID),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else if result.Status.Terminal() {
			return &GenerationOutcome{
				RunID:     runID,
				Status:    result.Status,
				ImageURLs: result.ImageURLs,
				LibraryID: result.LibraryID,
				Message:   result.Message,
				Degraded:  result.Degraded || started.Degraded,
			}, nil
		} else {
			report(onProgress, "waiting for run %s (%d/%d)", runID, attempt, p.maxAttempts)
		}

		if attempt == p.maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}

	return nil, domain.NewTimeoutError("漫画生成がタイムアウトしました。").
		WithContext("run_id", runID).
		WithContext("attempts", p.maxAttempts)
}

type streamingStrategy struct {
	stream StreamService
}

func (s *streamingStrategy) Name() string { return ModeStreaming }

func (s *streamingStrategy) Generate(ctx context.Context, req domain.GenerationRequest, onProgress ProgressFunc) (*GenerationOutcome, error) {
	var (
		outcome  *GenerationOutcome
		failure  string
		degraded bool
	)
	err := s.stream.Stream(ctx, req, func(event domain.StreamEvent) error {
		switch data := event.Data.(type) {
		case domain.MessagePayload:
			degraded = degraded || data.Degraded
			report(onProgress, "%s", data.Message)
		case domain.PanelProgressPayload:
			report(onProgress, "%s (%d%%)", data.Message, data.Progress)
		case domain.CompletePayload:
			outcome = &GenerationOutcome{
				RunID:  data.RunID,
				Status: domain.RunStatusSucceeded,
				ImageURLs: lo.Map(data.Panels, func(p domain.Panel, _ int) string {
					return p.ImageURL
				}),
				LibraryID: data.LibraryID,
				Message:   data.Message,
				Degraded:  data.Degraded || degraded,
			}
		case domain.ErrorPayload:
			failure = data.Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return outcome, nil
	}
	if failure == "" {
		failure = msgPlanningNoResult
	}
	return &GenerationOutcome{Status: domain.RunStatusFailed, Message: failure, Degraded: degraded}, nil
}
