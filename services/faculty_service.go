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

// FacultyService manages faculties and their course membership
type FacultyService struct {
	base
}

// NewFacultyService creates a new faculty service
func NewFacultyService(db *gorm.DB, engine *consistency.Engine, opts Options) *FacultyService {
	return &FacultyService{base: newBase(db, engine, opts)}
}

// FacultyInput is the writable part of a faculty. A nil CourseIDs leaves
// membership untouched; an empty ThumbnailURL keeps the stored thumbnail.
type FacultyInput struct {
	CurriculumID  string    `json:"curriculum_id" validate:"required"`
	Title         string    `json:"title" validate:"required,max=255"`
	Code          string    `json:"code" validate:"required,max=50"`
	Description   string    `json:"description"`
	DurationStart time.Time `json:"duration_start" validate:"required"`
	DurationEnd   time.Time `json:"duration_end" validate:"required,gtfield=DurationStart"`
	ThumbnailURL  string    `json:"thumbnail_url" validate:"omitempty,url,max=512"`
	CourseIDs     []string  `json:"course_ids" validate:"omitempty,ids"`
}

// FacultyResult is a written faculty plus what happened to its courses
type FacultyResult struct {
	Faculty *model.Faculty               `json:"faculty"`
	Courses *consistency.ReconcileResult `json:"courses,omitempty"`
}

// List returns one page of faculties, optionally limited to one curriculum
func (s *FacultyService) List(ctx context.Context, curriculumID string, page, limit int) ([]model.Faculty, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Faculty{})
	if curriculumID != "" {
		q = q.Where("curriculum_id = ?", curriculumID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, consistency.Classify("list_faculties", err)
	}

	offset, size := paginate(page, limit)
	var out []model.Faculty
	if err := q.Order("code").Offset(offset).Limit(size).Find(&out).Error; err != nil {
		return nil, 0, consistency.Classify("list_faculties", err)
	}
	return out, total, nil
}

// Get loads a faculty with its courses
func (s *FacultyService) Get(ctx context.Context, id string) (*model.Faculty, error) {
	var f model.Faculty
	err := s.db.WithContext(ctx).
		Preload("Courses", func(db *gorm.DB) *gorm.DB { return db.Order("code") }).
		Where("id = ?", id).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consistency.NotFound("get_faculty", consistency.Faculty, id)
	}
	if err != nil {
		return nil, consistency.Classify("get_faculty", err)
	}
	return &f, nil
}

// Create inserts a faculty under an existing curriculum
func (s *FacultyService) Create(ctx context.Context, in FacultyInput) (*FacultyResult, error) {
	f := &model.Faculty{
		ID:            uuid.NewString(),
		CurriculumID:  consistency.NormalizeID(in.CurriculumID),
		Title:         in.Title,
		Code:          in.Code,
		Description:   in.Description,
		DurationStart: in.DurationStart,
		DurationEnd:   in.DurationEnd,
		ThumbnailURL:  in.ThumbnailURL,
	}

	keys := []string{LockKey(consistency.Curriculum, f.CurriculumID)}
	if in.CourseIDs != nil {
		moved, err := s.membershipKeys(ctx, consistency.Faculty, in.CourseIDs)
		if err != nil {
			return nil, err
		}
		keys = append(keys, moved...)
	}

	var reconciled *consistency.ReconcileResult
	err := s.withLocks(ctx, keys, func() error {
		return s.engine.Run(ctx, "create_faculty", func(ctx context.Context, tx *consistency.Tx) error {
			if err := s.checkWritable(ctx, tx, in.Code, f.CurriculumID, ""); err != nil {
				return err
			}
			if err := tx.Store().Create(ctx, f); err != nil {
				return err
			}
			if in.CourseIDs != nil {
				var err error
				reconciled, err = tx.Reconcile(ctx, consistency.Faculty, f.ID, in.CourseIDs)
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, codeConflict(err, in.Code)
	}

	created, err := s.Get(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return &FacultyResult{Faculty: created, Courses: reconciled}, nil
}

// Update replaces the faculty fields, possibly moving it to another
// curriculum, and reconciles its courses when CourseIDs is set. Courses
// dropped from the list are deleted with their requirements, registrations
// and enrollments.
func (s *FacultyService) Update(ctx context.Context, id string, in FacultyInput) (*FacultyResult, error) {
	var (
		reconciled   *consistency.ReconcileResult
		oldThumbnail string
	)

	curriculumID := consistency.NormalizeID(in.CurriculumID)
	keys := []string{
		LockKey(consistency.Faculty, id),
		LockKey(consistency.Curriculum, curriculumID),
	}
	// the curriculum the faculty leaves
	from, err := s.currentParents(ctx, consistency.Faculty, "curriculum_id", []string{id})
	if err != nil {
		return nil, err
	}
	for _, p := range from {
		keys = append(keys, LockKey(consistency.Curriculum, p))
	}
	if in.CourseIDs != nil {
		moved, err := s.membershipKeys(ctx, consistency.Faculty, in.CourseIDs)
		if err != nil {
			return nil, err
		}
		keys = append(keys, moved...)
	}

	err = s.withLocks(ctx, keys, func() error {
		return s.engine.Run(ctx, "update_faculty", func(ctx context.Context, tx *consistency.Tx) error {
			var current model.Faculty
			if err := tx.Store().First(ctx, &current, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return consistency.NotFound("update_faculty", consistency.Faculty, id)
				}
				return err
			}
			if err := s.checkWritable(ctx, tx, in.Code, curriculumID, id); err != nil {
				return err
			}

			fields := map[string]any{
				"curriculum_id":  curriculumID,
				"title":          in.Title,
				"code":           in.Code,
				"description":    in.Description,
				"duration_start": in.DurationStart,
				"duration_end":   in.DurationEnd,
			}
			if in.ThumbnailURL != "" && in.ThumbnailURL != current.ThumbnailURL {
				fields["thumbnail_url"] = in.ThumbnailURL
				oldThumbnail = current.ThumbnailURL
			}
			if _, err := tx.Store().Updates(ctx, consistency.Faculty, id, fields); err != nil {
				return err
			}

			if in.CourseIDs != nil {
				var err error
				reconciled, err = tx.Reconcile(ctx, consistency.Faculty, id, in.CourseIDs)
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, codeConflict(err, in.Code)
	}

	s.removeThumbnails(ctx, []string{oldThumbnail})

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FacultyResult{Faculty: updated, Courses: reconciled}, nil
}

// Delete permanently removes a faculty with all courses and their dependants
func (s *FacultyService) Delete(ctx context.Context, id string) (consistency.Counts, error) {
	var (
		counts    consistency.Counts
		thumbnail string
	)

	err := s.withLocks(ctx, []string{LockKey(consistency.Faculty, id)}, func() error {
		return s.engine.Run(ctx, "delete_faculty", func(ctx context.Context, tx *consistency.Tx) error {
			byID, err := facultyThumbnails(tx.DB(), "id", []string{id})
			if err != nil {
				return err
			}
			counts, err = tx.DeleteSubtree(ctx, consistency.Faculty, id)
			if err != nil {
				return err
			}
			thumbnail = byID[consistency.NormalizeID(id)]
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.removeThumbnails(ctx, []string{thumbnail})
	return counts, nil
}

// SetThumbnail points the faculty at a newly uploaded thumbnail and removes
// the previous object
func (s *FacultyService) SetThumbnail(ctx context.Context, id, url string) (*model.Faculty, error) {
	var old string
	err := s.engine.Run(ctx, "set_faculty_thumbnail", func(ctx context.Context, tx *consistency.Tx) error {
		var current model.Faculty
		if err := tx.Store().First(ctx, &current, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return consistency.NotFound("set_faculty_thumbnail", consistency.Faculty, id)
			}
			return err
		}
		old = current.ThumbnailURL
		_, err := tx.Store().Updates(ctx, consistency.Faculty, id, map[string]any{"thumbnail_url": url})
		return err
	})
	if err != nil {
		return nil, err
	}

	if old != url {
		s.removeThumbnails(ctx, []string{old})
	}
	return s.Get(ctx, id)
}

// checkWritable verifies the target curriculum exists and code is free
func (s *FacultyService) checkWritable(ctx context.Context, tx *consistency.Tx, code, curriculumID, selfID string) error {
	ok, err := tx.Store().Exists(ctx, consistency.Curriculum, curriculumID)
	if err != nil {
		return err
	}
	if !ok {
		return invalidf("curriculum %s does not exist", curriculumID)
	}

	taken, err := codeInUse(tx.DB(), &model.Faculty{}, code, selfID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrCodeTaken, code)
	}
	return nil
}
