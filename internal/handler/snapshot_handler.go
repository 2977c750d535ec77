package handler

import (
	"dify-manga/internal/domain"
	"dify-manga/internal/dto"
	"dify-manga/internal/middleware"
	"dify-manga/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SnapshotHandler persists browser session state.
type SnapshotHandler struct {
	service service.SnapshotService
}

func NewSnapshotHandler(service service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{service: service}
}

func sessionID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.ValidatedSessionIDKey).(string); ok && id != "" {
		return id
	}
	return c.Params("sessionId")
}

// snapshotOwner scopes snapshots to the authenticated user when auth is on.
func snapshotOwner(c *fiber.Ctx) string {
	owner, _ := c.Locals(middleware.UserIDKey).(string)
	return owner
}

// Load godoc
// @Summary Load a session snapshot
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 200 {object} dto.SnapshotResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /sessions/{sessionId}/snapshot [get]
func (h *SnapshotHandler) Load(c *fiber.Ctx) error {
	snapshot, err := h.service.Load(c.UserContext(), snapshotOwner(c), sessionID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.ToSnapshotResponse(snapshot))
}

// Save godoc
// @Summary Save a session snapshot
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Param request body dto.SnapshotRequest true "Client state"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /sessions/{sessionId}/snapshot [put]
func (h *SnapshotHandler) Save(c *fiber.Ctx) error {
	var body dto.SnapshotRequest
	if err := c.BodyParser(&body); err != nil {
		return domain.NewInvalidInputError("request body must be JSON")
	}
	if err := h.service.Save(c.UserContext(), snapshotOwner(c), sessionID(c), body.ToDomain()); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// Clear godoc
// @Summary Clear a session snapshot
// @Tags sessions
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Success 204
// @Router /sessions/{sessionId}/snapshot [delete]
func (h *SnapshotHandler) Clear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), snapshotOwner(c), sessionID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
