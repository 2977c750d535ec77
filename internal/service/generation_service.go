package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"dify-manga/internal/config"
	"dify-manga/internal/domain"
	"dify-manga/internal/logger"
	"dify-manga/internal/util"
	"dify-manga/internal/validation"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PlaceholderRunTag prefixes run ids synthesised in degraded mode.
const PlaceholderRunTag = "mock"

const (
	msgRunStarted        = "ワークフローの実行を開始しました"
	msgDegradedNoKey     = "ワークフローの実行を開始しました（モックモード）"
	msgDegradedAPIError  = "ワークフローの実行を開始しました（モックモード - API接続エラーのため）"
	msgDegradedError     = "ワークフローの実行を開始しました（モックモード - エラーのため）"
	msgDegradedResult    = "モックモードで生成されたサンプル漫画です"
	msgOutputsUnreadable = "漫画は生成されましたが、レスポンスの解析に失敗しました。"
	msgOutputTextMissing = "漫画は生成されましたが、画像が見つかりませんでした。レスポンスの形式が不正です。"
	msgOutputTextInvalid = "漫画は生成されましたが、画像データの解析に失敗しました。"
	msgSucceededEmpty    = "漫画は生成されましたが、Difyから画像が返されませんでした。Difyのワークフローを確認してください。"
	msgRunFailed         = "漫画の生成に失敗しました。"
)

// GenerationService starts workflow runs and resolves their status.
type GenerationService interface {
	// Initiate never returns an empty run id: when Dify is unavailable it
	// returns a degraded result carrying a placeholder id.
	Initiate(ctx context.Context, req domain.GenerationRequest) (*domain.InitiationResult, error)
	// ResolveStatus queries a run once. Terminal results are stable.
	ResolveStatus(ctx context.Context, runID string) (*domain.StatusResult, error)
}

type generationService struct {
	client    domain.WorkflowClient
	recorder  *libraryRecorder
	mirror    *ImageMirror
	results   RunResultCache
	validator *validation.Validator
	cfg       *config.Config
	now       func() time.Time
}

// NewGenerationService wires the initiator and the polling status resolver.
func NewGenerationService(
	client domain.WorkflowClient,
	libraryRepo domain.LibraryRepository,
	runRepo domain.WorkflowRunRepository,
	tm domain.TransactionManager,
	mirror *ImageMirror,
	results RunResultCache,
	cfg *config.Config,
) GenerationService {
	if results == nil {
		results = &noopRunResultCache{}
	}
	return &generationService{
		client:    client,
		recorder:  &libraryRecorder{libraryRepo: libraryRepo, runRepo: runRepo, tm: tm},
		mirror:    mirror,
		results:   results,
		validator: validation.NewValidator(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// IsPlaceholderRunID reports whether runID was synthesised in degraded mode.
func IsPlaceholderRunID(runID string) bool {
	return strings.HasPrefix(runID, PlaceholderRunTag+"_")
}

func (s *generationService) degraded(message string) *domain.InitiationResult {
	runID := util.NewPlaceholderRunID(s.now())
	return &domain.InitiationResult{
		Handle:   domain.RunHandle{RunID: runID, TaskID: "task_" + runID},
		Degraded: true,
		Message:  message,
	}
}

func (s *generationService) Initiate(ctx context.Context, req domain.GenerationRequest) (*domain.InitiationResult, error) {
	if errs := s.validator.ValidateGenerationRequest(req.Question, req.Level); len(errs) > 0 {
		return nil, errs
	}
	log := logger.Get().With(zap.String("user_level", req.Level))

	if s.cfg.Dify.Mocked() || s.client == nil {
		log.Info("Dify API key not configured, starting degraded run")
		return s.degraded(msgDegradedNoKey), nil
	}

	start := s.now()
	handle, err := s.client.StartRun(ctx, req, s.cfg.Dify.StreamReadAttempts)
	if err != nil {
		if domain.HasCode(err, domain.CodeNoRunID) {
			log.Error("Workflow run id could not be extracted", zap.Error(err))
			return nil, err
		}
		if domain.HasCode(err, domain.CodeRemoteService) {
			log.Warn("Workflow service unavailable, falling back to degraded run", zap.Error(err))
			return s.degraded(msgDegradedAPIError), nil
		}
		log.Error("Unexpected error starting workflow run, falling back to degraded run", zap.Error(err))
		return s.degraded(msgDegradedError), nil
	}

	log.Info("Workflow run started",
		zap.String("run_id", handle.RunID),
		zap.String("task_id", handle.TaskID),
		zap.Duration("elapsed", s.now().Sub(start)))

	s.recorder.markRun(ctx, handle.RunID, domain.WorkflowRunProcessing)

	return &domain.InitiationResult{Handle: *handle, Message: msgRunStarted}, nil
}

// placeholderImages are the panel images shown for degraded runs.
func (s *generationService) placeholderImages() []string {
	return lo.Map(domain.MockPanels(""), func(_ domain.Panel, _ int) string {
		return s.cfg.Generation.PlaceholderImage
	})
}

func (s *generationService) ResolveStatus(ctx context.Context, runID string) (*domain.StatusResult, error) {
	if errs := s.validator.ValidateRunID(runID); len(errs) > 0 {
		return nil, errs
	}

	if IsPlaceholderRunID(runID) {
		return &domain.StatusResult{
			RunID:     runID,
			Status:    domain.RunStatusSucceeded,
			ImageURLs: s.placeholderImages(),
			Message:   msgDegradedResult,
			Degraded:  true,
		}, nil
	}

	cached, err := s.results.Get(ctx, runID)
	if err == nil {
		logger.Get().Debug("Serving cached run result", zap.String("run_id", runID))
		return cached, nil
	}
	if !errors.Is(err, ErrRunResultNotFound) {
		logger.Get().Warn("Run result cache unavailable", zap.String("run_id", runID), zap.Error(err))
	}

	if s.client == nil {
		return nil, domain.NewRemoteServiceError("workflow service is not configured", nil)
	}
	detail, err := s.client.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	result := s.resolveDetail(ctx, runID, detail)
	if result.Status.Terminal() {
		if err := s.results.Put(ctx, result); err != nil {
			logger.Get().Warn("Failed to cache run result", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *generationService) resolveDetail(ctx context.Context, runID string, detail *domain.WorkflowRunDetail) *domain.StatusResult {
	log := logger.Get().With(zap.String("run_id", runID), zap.String("remote_status", detail.Status))

	switch detail.Status {
	case domain.RemoteStatusSucceeded:
	case domain.RemoteStatusFailed, domain.RemoteStatusStopped:
		log.Warn("Workflow run did not succeed")
		s.recorder.markRun(ctx, runID, domain.WorkflowRunFailed)
		return &domain.StatusResult{RunID: runID, Status: domain.RunStatusFailed, Message: msgRunFailed}
	default:
		return &domain.StatusResult{RunID: runID, Status: domain.RunStatusPending}
	}

	images, err := domain.ExtractImageURLs(detail.Outputs)
	if err != nil {
		log.Error("Workflow outputs could not be parsed", zap.Error(err))
		s.recorder.markRun(ctx, runID, domain.WorkflowRunFailed)
		return &domain.StatusResult{RunID: runID, Status: domain.RunStatusUnreadable, Message: unreadableMessage(err)}
	}
	if len(images) == 0 {
		log.Warn("Workflow succeeded without images")
		s.recorder.markRun(ctx, runID, domain.WorkflowRunFailed)
		return &domain.StatusResult{RunID: runID, Status: domain.RunStatusSucceededButEmpty, Message: msgSucceededEmpty}
	}

	stored := s.mirror.MirrorAll(ctx, runID, images)

	question, level := domain.RunInputs(detail.Inputs)
	title := ""
	if question == domain.UnknownQuestion {
		title = domain.OutputTitle(detail.Outputs)
	}
	if title == "" {
		title = domain.TruncateRunes(question, domain.TitleMaxRunes)
	}

	libraryID := s.recorder.record(ctx, recordInput{
		RunID:     runID,
		Title:     title,
		Question:  question,
		Level:     level,
		ImageURLs: stored,
	})

	log.Info("Workflow run resolved", zap.Int("images", len(stored)), zap.String("library_id", libraryID))
	return &domain.StatusResult{
		RunID:     runID,
		Status:    domain.RunStatusSucceeded,
		ImageURLs: stored,
		LibraryID: libraryID,
	}
}

func unreadableMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutputsMalformed):
		return msgOutputsUnreadable
	case errors.Is(err, domain.ErrOutputTextMissing):
		return msgOutputTextMissing
	default:
		return msgOutputTextInvalid
	}
}
