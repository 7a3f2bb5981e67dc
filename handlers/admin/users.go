package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/middleware"
	"github.com/sahilchouksey/catalog-api/utils/response"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

// UserHandler handles admin user management and admission decisions
type UserHandler struct {
	users      *services.UserService
	admissions *services.AdmissionService
	validator  *validation.Validator
}

// NewUserHandler creates a new admin user handler
func NewUserHandler(users *services.UserService, admissions *services.AdmissionService) *UserHandler {
	return &UserHandler{
		users:      users,
		admissions: admissions,
		validator:  validation.NewValidator(),
	}
}

// CreateUser handles POST /api/v1/admin/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req services.UserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Name = validation.SanitizeString(req.Name)

	user, err := h.users.Create(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, user)
}

// GetUser handles GET /api/v1/admin/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}

// UpdateUser handles PUT /api/v1/admin/users/:id. A roles list replaces the
// user's roles.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	var req services.UserUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if req.Name != nil {
		name := validation.SanitizeString(*req.Name)
		req.Name = &name
	}

	var callerRoles []int
	if claims, ok := middleware.GetClaims(c); ok {
		callerRoles = claims.Roles
	}
	user, err := h.users.Update(c.UserContext(), c.Params("id"), req, callerRoles)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id. Roles, registrations
// and enrollments of the user go with it.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	counts, err := h.users.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "User deleted successfully", fiber.Map{
		"deleted": counts,
	})
}
