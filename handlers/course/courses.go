package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/response"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	service   *services.CourseService
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(service *services.CourseService) *CourseHandler {
	return &CourseHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	services.CourseInput
	Requirements []services.RequirementInput `json:"requirements" validate:"omitempty,dive"`
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	courses, total, err := h.service.List(c.UserContext(), c.Query("faculty_id"), page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	sanitizeCourse(&req.CourseInput)

	course, err := h.service.Create(c.UserContext(), req.CourseInput, req.Requirements)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	sanitizeCourse(&req)

	course, err := h.service.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	counts, err := h.service.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted successfully", fiber.Map{
		"deleted": counts,
	})
}

// AddRequirement handles POST /api/v1/courses/:id/requirements
func (h *CourseHandler) AddRequirement(c *fiber.Ctx) error {
	var req services.RequirementInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Title = validation.SanitizeString(req.Title)

	requirement, err := h.service.AddRequirement(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, requirement)
}

// UpdateRequirement handles PUT /api/v1/courses/:id/requirements/:requirement_id.
// A course_id in the body moves the requirement to that course.
func (h *CourseHandler) UpdateRequirement(c *fiber.Ctx) error {
	var req services.RequirementUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Title = validation.SanitizeString(req.Title)

	requirement, err := h.service.UpdateRequirement(c.UserContext(), c.Params("id"), c.Params("requirement_id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, requirement)
}

// DeleteRequirement handles DELETE /api/v1/courses/:id/requirements/:requirement_id
func (h *CourseHandler) DeleteRequirement(c *fiber.Ctx) error {
	if err := h.service.DeleteRequirement(c.UserContext(), c.Params("id"), c.Params("requirement_id")); err != nil {
		return response.FromError(c, err)
	}
	return response.NoContent(c)
}

func sanitizeCourse(in *services.CourseInput) {
	in.Title = validation.SanitizeString(in.Title)
	in.Description = validation.SanitizeString(in.Description)
}
