package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"
	"dify-manga/internal/util"
	"dify-manga/internal/validation"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	msgStreamStart      = "漫画生成を開始しています..."
	msgStreamPlanning   = "漫画の構成を計画中..."
	msgStreamComplete   = "漫画生成が完了しました！"
	msgStreamDegraded   = "漫画生成が完了しました！（モックモード）"
	msgPlanningFailed   = "計画フェーズでエラーが発生しました"
	msgPlanningNoResult = "計画フェーズの結果を取得できませんでした"

	// streamRunTag prefixes run ids of streams whose run id never arrived.
	streamRunTag = "dify_streaming"
)

// StreamService runs a generation over one long-lived connection and relays
// progress as StreamEvents.
type StreamService interface {
	// Stream validates req before emitting anything. Once events flow, every
	// failure is reported as a single error event and Stream returns nil; a
	// non-nil error after that point means the sink rejected an event.
	Stream(ctx context.Context, req domain.GenerationRequest, sink domain.EventSink) error
}

type streamService struct {
	client    domain.WorkflowClient
	recorder  *libraryRecorder
	mirror    *ImageMirror
	validator *validation.Validator
	cfg       *config.Config
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewStreamService(
	client domain.WorkflowClient,
	libraryRepo domain.LibraryRepository,
	runRepo domain.WorkflowRunRepository,
	tm domain.TransactionManager,
	mirror *ImageMirror,
	cfg *config.Config,
) StreamService {
	return &streamService{
		client:    client,
		recorder:  &libraryRecorder{libraryRepo: libraryRepo, runRepo: runRepo, tm: tm},
		mirror:    mirror,
		validator: validation.NewValidator(),
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sinkError marks errors returned by the sink so they are not reported as
// error events to a client that is already gone.
type sinkError struct{ err error }

func (e sinkError) Error() string { return e.err.Error() }
func (e sinkError) Unwrap() error { return e.err }

type emitter struct {
	sink domain.EventSink
}

func (e emitter) emit(t domain.EventType, data interface{}) error {
	if err := e.sink(domain.StreamEvent{Type: t, Data: data}); err != nil {
		return sinkError{err}
	}
	return nil
}

func progress(i, total int) int {
	return int(math.Round(float64(i) / float64(total) * 100))
}

func (s *streamService) Stream(ctx context.Context, req domain.GenerationRequest, sink domain.EventSink) error {
	if errs := s.validator.ValidateGenerationRequest(req.Question, req.Level); len(errs) > 0 {
		return errs
	}
	out := emitter{sink: sink}

	var err error
	if s.cfg.Dify.Mocked() || s.client == nil {
		err = s.streamDegraded(ctx, req, out)
	} else {
		err = s.streamRemote(ctx, req, out)
	}
	if err == nil {
		return nil
	}

	var se sinkError
	if errors.As(err, &se) {
		logger.Get().Info("Stream client went away", zap.Error(se.err))
		return se.err
	}

	logger.Get().Error("Streaming generation failed", zap.Error(err))
	if emitErr := out.emit(domain.EventError, domain.ErrorPayload{Error: streamErrorMessage(err)}); emitErr != nil {
		return errors.Unwrap(emitErr)
	}
	return nil
}

func streamErrorMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Code == domain.CodeRemoteService {
			return msgPlanningFailed
		}
		return domainErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "タイムアウトしました"
	}
	return err.Error()
}

func (s *streamService) streamDegraded(ctx context.Context, req domain.GenerationRequest, out emitter) error {
	if err := out.emit(domain.EventStart, domain.MessagePayload{Message: msgStreamStart, Degraded: true}); err != nil {
		return err
	}
	if err := out.emit(domain.EventPlanning, domain.MessagePayload{Message: msgStreamPlanning, Degraded: true}); err != nil {
		return err
	}

	panels := domain.MockPanels(req.Question)
	if err := out.emit(domain.EventPlanComplete, domain.PlanCompletePayload{
		TotalPanels: len(panels),
		Panels:      panels,
	}); err != nil {
		return err
	}

	generated := make([]domain.Panel, 0, len(panels))
	for i, panel := range panels {
		if err := out.emit(domain.EventPanelGenerating, domain.PanelProgressPayload{
			PanelID:  i + 1,
			Progress: progress(i+1, len(panels)),
			Message:  fmt.Sprintf("コマ %d を生成中...", i+1),
		}); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.cfg.Generation.PanelDelay); err != nil {
			return err
		}
		panel.ImageURL = s.cfg.Generation.PlaceholderImage
		generated = append(generated, panel)
		if err := out.emit(domain.EventPanelComplete, panel); err != nil {
			return err
		}
	}

	return out.emit(domain.EventComplete, domain.CompletePayload{
		Message:     msgStreamDegraded,
		Panels:      generated,
		TotalPanels: len(generated),
		RunID:       util.NewPlaceholderRunID(s.now()),
		Degraded:    true,
	})
}

// planResult is what the planning phase of the remote stream produced.
type planResult struct {
	runID    string
	images   []string
	outputs  []byte
	finished bool
}

func (s *streamService) collectPlan(ctx context.Context, req domain.GenerationRequest) (*planResult, error) {
	res := &planResult{}
	err := s.client.StreamRun(ctx, req, func(event domain.WorkflowEvent) error {
		switch event.Event {
		case domain.WorkflowEventStarted:
			res.runID = lo.CoalesceOrEmpty(event.WorkflowRunID, event.Data.ID)
			if res.runID != "" {
				s.recorder.markRun(ctx, res.runID, domain.WorkflowRunProcessing)
			}
		case domain.WorkflowEventNodeFinished:
			res.images = append(res.images, domain.WorkflowFiles(event.Data.Outputs)...)
		case domain.WorkflowEventFinished:
			if event.Data.Status == domain.RemoteStatusFailed || event.Data.Status == domain.RemoteStatusStopped {
				return domain.NewRemoteServiceError(msgPlanningFailed, errors.New(event.Data.Error))
			}
			res.outputs = event.Data.Outputs
			res.finished = true
			if res.runID == "" {
				res.runID = lo.CoalesceOrEmpty(event.WorkflowRunID, event.Data.ID)
			}
			return domain.ErrStopStream
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.finished {
		return nil, errors.New(msgPlanningNoResult)
	}
	return res, nil
}

func (s *streamService) panelImage(ctx context.Context, runID string, index int, images []string) string {
	if index >= len(images) || images[index] == "" {
		return s.cfg.Generation.PlaceholderImage
	}
	source := images[index]
	if stored, ok := s.mirror.MirrorOne(ctx, runID, index, source); ok {
		return stored
	}
	return "/api/proxy-image?url=" + url.QueryEscape(source)
}

func (s *streamService) streamRemote(ctx context.Context, req domain.GenerationRequest, out emitter) error {
	if err := out.emit(domain.EventStart, domain.MessagePayload{Message: msgStreamStart}); err != nil {
		return err
	}
	if err := out.emit(domain.EventPlanning, domain.MessagePayload{Message: msgStreamPlanning}); err != nil {
		return err
	}

	res, err := s.collectPlan(ctx, req)
	if err != nil {
		return err
	}
	if res.runID == "" {
		res.runID = util.NewTaggedRunID(streamRunTag, s.now())
	}
	log := logger.Get().With(zap.String("run_id", res.runID))
	log.Info("Planning phase finished", zap.Int("images", len(res.images)))

	plan := domain.ParsePlan(res.outputs, res.images)
	if err := out.emit(domain.EventPlanComplete, domain.PlanCompletePayload{
		TotalPanels: plan.TotalPanels,
		StoryArc:    plan.StoryArc,
		Characters:  plan.MainCharacters,
	}); err != nil {
		return err
	}

	count := plan.PanelCount()
	panels := make([]domain.Panel, 0, count)
	for i := 0; i < count; i++ {
		if err := out.emit(domain.EventPanelGenerating, domain.PanelProgressPayload{
			PanelID:  i + 1,
			Progress: progress(i+1, count),
			Message:  fmt.Sprintf("コマ %d/%d を生成中...", i+1, count),
		}); err != nil {
			return err
		}

		if ctx.Err() != nil {
			if err := out.emit(domain.EventPanelError, domain.PanelErrorPayload{
				PanelID: i + 1,
				Error:   fmt.Sprintf("コマ %d の生成に失敗しました", i+1),
			}); err != nil {
				return err
			}
			return ctx.Err()
		}

		panel := domain.StreamPanel(i+1, req.Question, req.Level, s.panelImage(ctx, res.runID, i, plan.GeneratedImages))
		panels = append(panels, panel)
		if err := out.emit(domain.EventPanelComplete, panel); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.cfg.Generation.PanelDelay); err != nil {
			return err
		}
	}

	libraryID := s.recorder.record(ctx, recordInput{
		RunID:    res.runID,
		Title:    domain.TruncateRunes(req.Question, domain.TitleMaxRunes),
		Question: req.Question,
		Level:    req.Level,
		ImageURLs: lo.Map(panels, func(p domain.Panel, _ int) string {
			return p.ImageURL
		}),
	})

	return out.emit(domain.EventComplete, domain.CompletePayload{
		Message:     msgStreamComplete,
		Panels:      panels,
		TotalPanels: len(panels),
		RunID:       res.runID,
		LibraryID:   libraryID,
	})
}
