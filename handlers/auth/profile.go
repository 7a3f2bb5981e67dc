package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/middleware"
	"github.com/sahilchouksey/catalog-api/utils/response"
)

// CourseIDsRequest lists courses for a self-service registration
type CourseIDsRequest struct {
	CourseIDs []string `json:"course_ids" validate:"required,min=1,ids"`
}

// GetProfile handles GET /api/v1/profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}

// UpdateProfile handles PUT /api/v1/profile. Roles in the body are only
// honoured for admins.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.UserUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.users.Update(c.UserContext(), claims.UserID, req, claims.Roles)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}

// RegisterCourses handles POST /api/v1/profile/registrations. Courses
// without remaining capacity are skipped.
func (h *AuthHandler) RegisterCourses(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CourseIDsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	registrations, err := h.admissions.Register(c.UserContext(), services.AdmissionInput{
		UserID:    userID,
		CourseIDs: req.CourseIDs,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, registrations)
}
