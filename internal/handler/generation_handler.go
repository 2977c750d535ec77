package handler

import (
	"bufio"
	"context"

	"dify-manga/internal/domain"
	"dify-manga/internal/dto"
	"dify-manga/internal/logger"
	"dify-manga/internal/middleware"
	"dify-manga/internal/service"
	"dify-manga/internal/validation"

	"github.com/gin-contrib/sse"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GenerationHandler serves manga generation endpoints.
type GenerationHandler struct {
	generation service.GenerationService
	stream     service.StreamService
	validator  *validation.Validator
	// baseCtx bounds event streams, which outlive the request handler.
	baseCtx context.Context
}

func NewGenerationHandler(generation service.GenerationService, stream service.StreamService) *GenerationHandler {
	return &GenerationHandler{
		generation: generation,
		stream:     stream,
		validator:  validation.NewValidator(),
		baseCtx:    context.Background(),
	}
}

// WithBaseContext makes in-flight event streams stop when ctx is cancelled,
// typically on server shutdown.
func (h *GenerationHandler) WithBaseContext(ctx context.Context) *GenerationHandler {
	h.baseCtx = ctx
	return h
}

func parseGenerationRequest(c *fiber.Ctx) (domain.GenerationRequest, error) {
	var body dto.GenerationRequest
	if err := c.BodyParser(&body); err != nil {
		return domain.GenerationRequest{}, domain.NewInvalidInputError("request body must be JSON")
	}
	return domain.NewGenerationRequest(body.UserQuestion, body.UserLevel), nil
}

// Initiate godoc
// @Summary Start a manga generation
// @Description Starts a Dify workflow run. When Dify is unavailable a degraded run with a mock_ id is returned instead.
// @Tags generation
// @Accept json
// @Produce json
// @Param request body dto.GenerationRequest true "Question and level"
// @Success 200 {object} dto.InitiateResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /generations [post]
func (h *GenerationHandler) Initiate(c *fiber.Ctx) error {
	req, err := parseGenerationRequest(c)
	if err != nil {
		return err
	}
	result, err := h.generation.Initiate(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(dto.InitiateResponse{
		WorkflowRunID: result.Handle.RunID,
		TaskID:        result.Handle.TaskID,
		Message:       result.Message,
		Degraded:      result.Degraded,
	})
}

// CheckStatus godoc
// @Summary Check a generation
// @Description Queries the run once. Terminal results are cached, so repeated checks return the same images.
// @Tags generation
// @Produce json
// @Param runId path string true "Workflow run ID"
// @Success 200 {object} dto.StatusResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /generations/{runId} [get]
func (h *GenerationHandler) CheckStatus(c *fiber.Ctx) error {
	runID, _ := c.Locals(middleware.ValidatedRunIDKey).(string)
	if runID == "" {
		runID = c.Params("runId")
	}
	result, err := h.generation.ResolveStatus(c.UserContext(), runID)
	if err != nil {
		return err
	}
	return c.JSON(dto.ToStatusResponse(result))
}

// Stream godoc
// @Summary Generate a manga with live progress
// @Description Server-sent events: start, planning, plan_complete, panel_generating, panel_complete, panel_error, complete, error.
// @Tags generation
// @Accept json
// @Produce text/event-stream
// @Param request body dto.GenerationRequest true "Question and level"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /generations/stream [post]
func (h *GenerationHandler) Stream(c *fiber.Ctx) error {
	req, err := parseGenerationRequest(c)
	if err != nil {
		return err
	}
	// The body writer runs after this handler returns, so bad input has to be
	// rejected here while a JSON error can still be sent.
	if errs := h.validator.ValidateGenerationRequest(req.Question, req.Level); len(errs) > 0 {
		return errs
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(h.baseCtx)
		defer cancel()

		sink := func(event domain.StreamEvent) error {
			if err := sse.Encode(w, sse.Event{Event: string(event.Type), Data: event.Data}); err != nil {
				return err
			}
			return w.Flush()
		}
		if err := h.stream.Stream(ctx, req, sink); err != nil {
			logger.Get().Info("Event stream ended early", zap.Error(err))
		}
	})
	return nil
}
