package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"gorm.io/gorm"
)

// CourseService manages courses and their requirements
type CourseService struct {
	base
}

// NewCourseService creates a new course service
func NewCourseService(db *gorm.DB, engine *consistency.Engine, opts Options) *CourseService {
	return &CourseService{base: newBase(db, engine, opts)}
}

// CourseInput is the writable part of a course
type CourseInput struct {
	FacultyID     string    `json:"faculty_id" validate:"required"`
	Title         string    `json:"title" validate:"required,max=255"`
	Code          string    `json:"code" validate:"required,max=50"`
	Description   string    `json:"description"`
	DurationStart time.Time `json:"duration_start" validate:"required"`
	DurationEnd   time.Time `json:"duration_end" validate:"required,gtfield=DurationStart"`
	Quantity      int       `json:"quantity" validate:"gte=0"`
}

// RequirementInput describes one course requirement
type RequirementInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Code        string `json:"code" validate:"max=50"`
	Description string `json:"description"`
}

// List returns one page of courses, optionally limited to one faculty
func (s *CourseService) List(ctx context.Context, facultyID string, page, limit int) ([]model.Course, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Course{})
	if facultyID != "" {
		q = q.Where("faculty_id = ?", facultyID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, consistency.Classify("list_courses", err)
	}

	offset, size := paginate(page, limit)
	var out []model.Course
	if err := q.Order("code").Offset(offset).Limit(size).Find(&out).Error; err != nil {
		return nil, 0, consistency.Classify("list_courses", err)
	}
	return out, total, nil
}

// Get loads a course with its requirements
func (s *CourseService) Get(ctx context.Context, id string) (*model.Course, error) {
	var c model.Course
	err := s.db.WithContext(ctx).
		Preload("Requirements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consistency.NotFound("get_course", consistency.Course, id)
	}
	if err != nil {
		return nil, consistency.Classify("get_course", err)
	}
	return &c, nil
}

// Create inserts a course under an existing faculty, with optional requirements
func (s *CourseService) Create(ctx context.Context, in CourseInput, requirements []RequirementInput) (*model.Course, error) {
	c := &model.Course{
		ID:            uuid.NewString(),
		FacultyID:     consistency.NormalizeID(in.FacultyID),
		Title:         in.Title,
		Code:          in.Code,
		Description:   in.Description,
		DurationStart: in.DurationStart,
		DurationEnd:   in.DurationEnd,
		Quantity:      in.Quantity,
	}

	err := s.withLocks(ctx, []string{LockKey(consistency.Faculty, c.FacultyID)}, func() error {
		return s.engine.Run(ctx, "create_course", func(ctx context.Context, tx *consistency.Tx) error {
			if err := s.checkWritable(ctx, tx, in.Code, c.FacultyID, ""); err != nil {
				return err
			}
			if err := tx.Store().Create(ctx, c); err != nil {
				return err
			}
			if len(requirements) == 0 {
				return nil
			}
			rows := make([]model.CourseRequirement, 0, len(requirements))
			for _, r := range requirements {
				rows = append(rows, newRequirement(c.ID, r))
			}
			return tx.Store().Create(ctx, &rows)
		})
	})
	if err != nil {
		return nil, codeConflict(err, in.Code)
	}
	return s.Get(ctx, c.ID)
}

// Update replaces the course fields, possibly moving it to another faculty
func (s *CourseService) Update(ctx context.Context, id string, in CourseInput) (*model.Course, error) {
	facultyID := consistency.NormalizeID(in.FacultyID)
	keys := []string{
		LockKey(consistency.Course, id),
		LockKey(consistency.Faculty, facultyID),
	}
	from, err := s.currentParents(ctx, consistency.Course, "faculty_id", []string{id})
	if err != nil {
		return nil, err
	}
	for _, p := range from {
		keys = append(keys, LockKey(consistency.Faculty, p))
	}

	err = s.withLocks(ctx, keys, func() error {
		return s.engine.Run(ctx, "update_course", func(ctx context.Context, tx *consistency.Tx) error {
			ok, err := tx.Store().Exists(ctx, consistency.Course, id)
			if err != nil {
				return err
			}
			if !ok {
				return consistency.NotFound("update_course", consistency.Course, id)
			}
			if err := s.checkWritable(ctx, tx, in.Code, facultyID, id); err != nil {
				return err
			}

			_, err = tx.Store().Updates(ctx, consistency.Course, id, map[string]any{
				"faculty_id":     facultyID,
				"title":          in.Title,
				"code":           in.Code,
				"description":    in.Description,
				"duration_start": in.DurationStart,
				"duration_end":   in.DurationEnd,
				"quantity":       in.Quantity,
			})
			return err
		})
	})
	if err != nil {
		return nil, codeConflict(err, in.Code)
	}
	return s.Get(ctx, id)
}

// Delete permanently removes a course with its requirements, registrations
// and enrollments
func (s *CourseService) Delete(ctx context.Context, id string) (consistency.Counts, error) {
	var counts consistency.Counts
	err := s.withLocks(ctx, []string{LockKey(consistency.Course, id)}, func() error {
		return s.engine.Run(ctx, "delete_course", func(ctx context.Context, tx *consistency.Tx) error {
			var err error
			counts, err = tx.DeleteSubtree(ctx, consistency.Course, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// AddRequirement attaches a requirement to an existing course
func (s *CourseService) AddRequirement(ctx context.Context, courseID string, in RequirementInput) (*model.CourseRequirement, error) {
	req := newRequirement(consistency.NormalizeID(courseID), in)

	err := s.engine.Run(ctx, "add_requirement", func(ctx context.Context, tx *consistency.Tx) error {
		ok, err := tx.Store().Exists(ctx, consistency.Course, req.CourseID)
		if err != nil {
			return err
		}
		if !ok {
			return consistency.NotFound("add_requirement", consistency.Course, courseID)
		}
		return tx.Store().Create(ctx, &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// RequirementUpdate edits a requirement. A non-empty CourseID moves it to
// that course.
type RequirementUpdate struct {
	RequirementInput
	CourseID string `json:"course_id" validate:"omitempty,max=36"`
}

// UpdateRequirement rewrites a requirement of courseID and optionally moves
// it to another course. Both courses stay locked while it runs.
func (s *CourseService) UpdateRequirement(ctx context.Context, courseID, requirementID string, in RequirementUpdate) (*model.CourseRequirement, error) {
	from := consistency.NormalizeID(courseID)
	to := from
	if in.CourseID != "" {
		to = consistency.NormalizeID(in.CourseID)
	}

	var req model.CourseRequirement
	keys := []string{LockKey(consistency.Course, from), LockKey(consistency.Course, to)}
	err := s.withLocks(ctx, keys, func() error {
		return s.engine.Run(ctx, "update_requirement", func(ctx context.Context, tx *consistency.Tx) error {
			err := tx.Store().First(ctx, &req, requirementID)
			if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && req.CourseID != from) {
				return consistency.NotFound("update_requirement", consistency.CourseRequirement, requirementID)
			}
			if err != nil {
				return err
			}

			if to != from {
				ok, err := tx.Store().Exists(ctx, consistency.Course, to)
				if err != nil {
					return err
				}
				if !ok {
					return invalidf("course %s does not exist", to)
				}
			}

			req.CourseID = to
			req.Title = in.Title
			req.Code = in.Code
			req.Description = in.Description
			_, err = tx.Store().Updates(ctx, consistency.CourseRequirement, req.ID, map[string]any{
				"course_id":   req.CourseID,
				"title":       req.Title,
				"code":        req.Code,
				"description": req.Description,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// DeleteRequirement removes one requirement of a course. A requirement that
// belongs to another course is reported as not found.
func (s *CourseService) DeleteRequirement(ctx context.Context, courseID, requirementID string) error {
	return s.engine.Run(ctx, "delete_requirement", func(ctx context.Context, tx *consistency.Tx) error {
		var req model.CourseRequirement
		err := tx.Store().First(ctx, &req, requirementID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && req.CourseID != consistency.NormalizeID(courseID)) {
			return consistency.NotFound("delete_requirement", consistency.CourseRequirement, requirementID)
		}
		if err != nil {
			return err
		}
		_, err = tx.DeleteSubtree(ctx, consistency.CourseRequirement, req.ID)
		return err
	})
}

func (s *CourseService) checkWritable(ctx context.Context, tx *consistency.Tx, code, facultyID, selfID string) error {
	ok, err := tx.Store().Exists(ctx, consistency.Faculty, facultyID)
	if err != nil {
		return err
	}
	if !ok {
		return invalidf("faculty %s does not exist", facultyID)
	}

	taken, err := codeInUse(tx.DB(), &model.Course{}, code, selfID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrCodeTaken, code)
	}
	return nil
}

func newRequirement(courseID string, in RequirementInput) model.CourseRequirement {
	return model.CourseRequirement{
		ID:          uuid.NewString(),
		CourseID:    courseID,
		Title:       in.Title,
		Code:        in.Code,
		Description: in.Description,
	}
}
