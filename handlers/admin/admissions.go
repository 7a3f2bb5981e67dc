package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/response"
)

type courseIDsRequest struct {
	CourseIDs []string `json:"course_ids" validate:"required,min=1,ids"`
}

func (h *UserHandler) admissionInput(c *fiber.Ctx) (services.AdmissionInput, bool, error) {
	var req courseIDsRequest
	if err := c.BodyParser(&req); err != nil {
		return services.AdmissionInput{}, false, response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return services.AdmissionInput{}, false, response.ValidationError(c, err)
	}
	return services.AdmissionInput{UserID: c.Params("id"), CourseIDs: req.CourseIDs}, true, nil
}

// ApproveRegistrations handles POST /api/v1/admin/users/:id/registrations/approve
func (h *UserHandler) ApproveRegistrations(c *fiber.Ctx) error {
	in, ok, err := h.admissionInput(c)
	if !ok {
		return err
	}

	enrollments, err := h.admissions.Approve(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Registrations approved", enrollments)
}

// RejectRegistrations handles POST /api/v1/admin/users/:id/registrations/reject
func (h *UserHandler) RejectRegistrations(c *fiber.Ctx) error {
	in, ok, err := h.admissionInput(c)
	if !ok {
		return err
	}

	removed, err := h.admissions.Reject(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Registrations rejected", fiber.Map{"removed": removed})
}

// CompleteCourses handles POST /api/v1/admin/users/:id/enrollments/complete
func (h *UserHandler) CompleteCourses(c *fiber.Ctx) error {
	in, ok, err := h.admissionInput(c)
	if !ok {
		return err
	}

	updated, err := h.admissions.Complete(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Courses completed", fiber.Map{"updated": updated})
}
