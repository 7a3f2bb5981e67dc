package curriculum

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/response"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

// CurriculumHandler handles curriculum-related requests
type CurriculumHandler struct {
	service   *services.CurriculumService
	validator *validation.Validator
}

// NewCurriculumHandler creates a new curriculum handler
func NewCurriculumHandler(service *services.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// ListCurricula handles GET /api/v1/curricula
func (h *CurriculumHandler) ListCurricula(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	curricula, total, err := h.service.List(c.UserContext(), page, limit)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Paginated(c, curricula, response.CalculatePagination(page, limit, total))
}

// GetCurriculum handles GET /api/v1/curricula/:id
func (h *CurriculumHandler) GetCurriculum(c *fiber.Ctx) error {
	curriculum, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, curriculum)
}

// CreateCurriculum handles POST /api/v1/curricula
func (h *CurriculumHandler) CreateCurriculum(c *fiber.Ctx) error {
	req, ok, err := h.parse(c)
	if !ok {
		return err
	}

	result, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, result)
}

// UpdateCurriculum handles PUT /api/v1/curricula/:id. Faculties missing
// from faculty_ids are deleted together with their courses.
func (h *CurriculumHandler) UpdateCurriculum(c *fiber.Ctx) error {
	req, ok, err := h.parse(c)
	if !ok {
		return err
	}

	result, err := h.service.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Curriculum updated successfully", result)
}

// DeleteCurriculum handles DELETE /api/v1/curricula/:id
func (h *CurriculumHandler) DeleteCurriculum(c *fiber.Ctx) error {
	counts, err := h.service.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Curriculum deleted successfully", fiber.Map{
		"deleted": counts,
	})
}

// parse reads and validates the request body. ok is false when a response
// has already been written.
func (h *CurriculumHandler) parse(c *fiber.Ctx) (services.CurriculumInput, bool, error) {
	var req services.CurriculumInput
	if err := c.BodyParser(&req); err != nil {
		return req, false, response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return req, false, response.ValidationError(c, err)
	}

	req.Title = validation.SanitizeString(req.Title)
	req.Description = validation.SanitizeString(req.Description)
	return req, true, nil
}
