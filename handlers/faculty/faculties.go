package faculty

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/response"
	"github.com/sahilchouksey/catalog-api/utils/validation"
)

// maxThumbnailSize caps uploaded thumbnails at 2 MB
const maxThumbnailSize = 2 << 20

// ThumbnailUploader stores thumbnail images; spaces.Client implements it
type ThumbnailUploader interface {
	UploadThumbnail(ctx context.Context, facultyID, filename string, data []byte, contentType string) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}

// FacultyHandler handles faculty-related requests
type FacultyHandler struct {
	service   *services.FacultyService
	uploader  ThumbnailUploader
	validator *validation.Validator
	log       zerolog.Logger
}

// NewFacultyHandler creates a new faculty handler. uploader may be nil, in
// which case thumbnail uploads are rejected.
func NewFacultyHandler(service *services.FacultyService, uploader ThumbnailUploader, logger zerolog.Logger) *FacultyHandler {
	return &FacultyHandler{
		service:   service,
		uploader:  uploader,
		validator: validation.NewValidator(),
		log:       logger,
	}
}

// ListFaculties handles GET /api/v1/faculties
func (h *FacultyHandler) ListFaculties(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	faculties, total, err := h.service.List(c.UserContext(), c.Query("curriculum_id"), page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, faculties, response.CalculatePagination(page, limit, total))
}

// GetFaculty handles GET /api/v1/faculties/:id
func (h *FacultyHandler) GetFaculty(c *fiber.Ctx) error {
	faculty, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, faculty)
}

// CreateFaculty handles POST /api/v1/faculties
func (h *FacultyHandler) CreateFaculty(c *fiber.Ctx) error {
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

// UpdateFaculty handles PUT /api/v1/faculties/:id. Courses missing from
// course_ids are deleted together with their registrations and enrollments.
func (h *FacultyHandler) UpdateFaculty(c *fiber.Ctx) error {
	req, ok, err := h.parse(c)
	if !ok {
		return err
	}

	result, err := h.service.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Faculty updated successfully", result)
}

// DeleteFaculty handles DELETE /api/v1/faculties/:id
func (h *FacultyHandler) DeleteFaculty(c *fiber.Ctx) error {
	counts, err := h.service.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Faculty deleted successfully", fiber.Map{
		"deleted": counts,
	})
}

// UploadThumbnail handles POST /api/v1/faculties/:id/thumbnail (multipart
// field "file")
func (h *FacultyHandler) UploadThumbnail(c *fiber.Ctx) error {
	if h.uploader == nil {
		return response.ServiceUnavailable(c, "Thumbnail storage is not configured")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file is required")
	}
	if file.Size > maxThumbnailSize {
		return response.BadRequest(c, "Thumbnail must be at most 2 MB")
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return response.BadRequest(c, "Thumbnail must be an image")
	}

	// Reject unknown faculties before uploading anything
	if _, err := h.service.Get(c.UserContext(), c.Params("id")); err != nil {
		return response.FromError(c, err)
	}

	f, err := file.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return response.BadRequest(c, "Failed to read file")
	}

	url, err := h.uploader.UploadThumbnail(c.UserContext(), c.Params("id"), file.Filename, data, contentType)
	if err != nil {
		return response.ServiceUnavailable(c, "Failed to store thumbnail")
	}

	faculty, err := h.service.SetThumbnail(c.UserContext(), c.Params("id"), url)
	if err != nil {
		// nothing points at the new object
		if derr := h.uploader.DeleteByURL(context.WithoutCancel(c.UserContext()), url); derr != nil {
			h.log.Warn().Err(derr).Str("url", url).Msg("failed to delete unused thumbnail")
		}
		return response.FromError(c, err)
	}
	return response.Success(c, faculty)
}

func (h *FacultyHandler) parse(c *fiber.Ctx) (services.FacultyInput, bool, error) {
	var req services.FacultyInput
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
