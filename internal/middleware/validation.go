package middleware

import (
	"dify-manga/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the path validators.
const (
	ValidatedRunIDKey     = "validated_run_id"
	ValidatedLibraryIDKey = "validated_library_id"
	ValidatedSessionIDKey = "validated_session_id"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateRunID validates the :runId path parameter.
func (vm *ValidationMiddleware) ValidateRunID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		runID := c.Params("runId")
		if errors := vm.validator.ValidateRunID(runID); len(errors) > 0 {
			return errors // This will be handled by ErrorHandler middleware
		}
		c.Locals(ValidatedRunIDKey, runID)
		return c.Next()
	}
}

// ValidateLibraryID validates the :id path parameter.
func (vm *ValidationMiddleware) ValidateLibraryID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if errors := vm.validator.ValidateLibraryEntryID(id); len(errors) > 0 {
			return errors
		}
		c.Locals(ValidatedLibraryIDKey, id)
		return c.Next()
	}
}

// ValidateSessionID validates the :sessionId path parameter.
func (vm *ValidationMiddleware) ValidateSessionID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("sessionId")
		if errors := vm.validator.ValidateSessionID(sessionID); len(errors) > 0 {
			return errors
		}
		c.Locals(ValidatedSessionIDKey, sessionID)
		return c.Next()
	}
}
