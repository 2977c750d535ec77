package handler

import (
	"dify-manga/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Generation *GenerationHandler
	Library    *LibraryHandler
	Snapshot   *SnapshotHandler
	Proxy      *ProxyHandler
	Health     *HealthHandler
}

// SetupRoutes mounts the API under /api. protect guards the library and
// snapshot routes.
func SetupRoutes(app *fiber.App, h Handlers, protect fiber.Handler) {
	if protect == nil {
		protect = middleware.Passthrough()
	}
	vm := middleware.NewValidationMiddleware()

	app.Get("/swagger/*", swagger.HandlerDefault)
	if h.Health != nil {
		app.Get("/health", h.Health.Health)
	}

	api := app.Group("/api")

	generations := api.Group("/generations")
	generations.Post("/", h.Generation.Initiate)
	generations.Post("/stream", h.Generation.Stream)
	generations.Get("/:runId", vm.ValidateRunID(), h.Generation.CheckStatus)

	library := api.Group("/library", protect)
	library.Get("/", h.Library.List)
	library.Get("/:id", vm.ValidateLibraryID(), h.Library.Get)
	library.Patch("/:id", vm.ValidateLibraryID(), h.Library.Update)
	library.Delete("/:id", vm.ValidateLibraryID(), h.Library.Delete)

	sessions := api.Group("/sessions", protect)
	sessions.Get("/:sessionId/snapshot", vm.ValidateSessionID(), h.Snapshot.Load)
	sessions.Put("/:sessionId/snapshot", vm.ValidateSessionID(), h.Snapshot.Save)
	sessions.Delete("/:sessionId/snapshot", vm.ValidateSessionID(), h.Snapshot.Clear)

	api.Get("/proxy-image", h.Proxy.ProxyImage)
}
