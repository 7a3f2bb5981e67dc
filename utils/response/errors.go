package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/services/consistency"
)

// FromError writes the response for an error returned by the service layer
func FromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, consistency.ErrNotFound):
		return NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		return ErrorWithDetails(c, fiber.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR", err.Error())
	case errors.Is(err, services.ErrCodeTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyRegistered):
		return Conflict(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return Unauthorized(c, "Invalid email or password")
	case errors.Is(err, services.ErrLocked):
		c.Set("Retry-After", "1")
		return Error(c, fiber.StatusConflict, err.Error(), "LOCKED")
	case errors.Is(err, services.ErrNoCapacity), errors.Is(err, services.ErrNothingToProcess):
		return BadRequest(c, err.Error())
	case errors.Is(err, consistency.ErrTransientStore):
		return ServiceUnavailable(c, "Database temporarily unavailable, retry the request")
	case errors.Is(err, consistency.ErrConstraintViolation):
		return Error(c, fiber.StatusInternalServerError, "Catalog integrity check failed", "CONSTRAINT_VIOLATION")
	}
	return InternalServerError(c, "")
}
