package applicant

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/response"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

// ApplicantHandler handles admission applications
type ApplicantHandler struct {
	service   *services.ApplicantService
	validator *validation.Validator
}

// NewApplicantHandler creates a new applicant handler
func NewApplicantHandler(service *services.ApplicantService) *ApplicantHandler {
	return &ApplicantHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

type upgradeRequest struct {
	ApplicantIDs []string `json:"applicant_ids" validate:"required,min=1,ids"`
}

// Apply handles POST /api/v1/applicants
func (h *ApplicantHandler) Apply(c *fiber.Ctx) error {
	var req services.ApplicantInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Name = validation.SanitizeString(req.Name)

	applicant, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, applicant)
}

// ListApplicants handles GET /api/v1/admin/applicants
func (h *ApplicantHandler) ListApplicants(c *fiber.Ctx) error {
	page := response.Page(c, 10)
	applicants, total, err := h.service.List(c.UserContext(), page.CurrentPage, page.PerPage)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, applicants, response.CalculatePagination(page.CurrentPage, page.PerPage, total))
}

// UpgradeApplicants handles POST /api/v1/admin/applicants/upgrade. The
// response carries each new account's temporary password.
func (h *ApplicantHandler) UpgradeApplicants(c *fiber.Ctx) error {
	var req upgradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	admitted, err := h.service.UpgradeToStudent(c.UserContext(), req.ApplicantIDs)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Applicants upgraded to students", admitted)
}

// DeleteApplicant handles DELETE /api/v1/admin/applicants/:id
func (h *ApplicantHandler) DeleteApplicant(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return response.FromError(c, err)
	}
	return response.NoContent(c)
}
