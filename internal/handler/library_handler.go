package handler

import (
	"dify-manga/internal/domain"
	"dify-manga/internal/dto"
	"dify-manga/internal/middleware"
	"dify-manga/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LibraryHandler serves the saved mangas.
type LibraryHandler struct {
	service service.LibraryService
}

func NewLibraryHandler(service service.LibraryService) *LibraryHandler {
	return &LibraryHandler{service: service}
}

func libraryID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.ValidatedLibraryIDKey).(string); ok && id != "" {
		return id
	}
	return c.Params("id")
}

// List godoc
// @Summary List saved mangas
// @Description Returns every library entry, newest first
// @Tags library
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MangaListResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /library [get]
func (h *LibraryHandler) List(c *fiber.Ctx) error {
	entries, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ToMangaListResponse(entries))
}

// Get godoc
// @Summary Get a saved manga
// @Tags library
// @Produce json
// @Security BearerAuth
// @Param id path string true "Library entry ID"
// @Success 200 {object} dto.MangaDetailResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /library/{id} [get]
func (h *LibraryHandler) Get(c *fiber.Ctx) error {
	entry, err := h.service.Get(c.UserContext(), libraryID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.MangaDetailResponse{Success: true, Manga: dto.ToMangaResponse(entry)})
}

// Update godoc
// @Summary Edit a saved manga
// @Description Updates title, question or level. Blank values are rejected.
// @Tags library
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Library entry ID"
// @Param request body dto.UpdateMangaRequest true "Fields to change"
// @Success 200 {object} dto.MangaDetailResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /library/{id} [patch]
func (h *LibraryHandler) Update(c *fiber.Ctx) error {
	var body dto.UpdateMangaRequest
	if err := c.BodyParser(&body); err != nil {
		return domain.NewInvalidInputError("request body must be JSON")
	}
	entry, err := h.service.Update(c.UserContext(), libraryID(c), domain.LibraryUpdate{
		Title:    body.Title,
		Question: body.Question,
		Level:    body.Level,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.MangaDetailResponse{Success: true, Manga: dto.ToMangaResponse(entry)})
}

// Delete godoc
// @Summary Delete a saved manga
// @Tags library
// @Produce json
// @Security BearerAuth
// @Param id path string true "Library entry ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /library/{id} [delete]
func (h *LibraryHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), libraryID(c)); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "漫画を削除しました"})
}
