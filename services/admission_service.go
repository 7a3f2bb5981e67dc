package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"gorm.io/gorm"
)

// AdmissionService moves users through registration, enrollment and completion
type AdmissionService struct {
	base
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(db *gorm.DB, engine *consistency.Engine, opts Options) *AdmissionService {
	return &AdmissionService{base: newBase(db, engine, opts)}
}

// AdmissionInput names a user and a set of courses
type AdmissionInput struct {
	UserID    string   `json:"user_id" validate:"required"`
	CourseIDs []string `json:"course_ids" validate:"required,min=1,ids"`
}

// Register files pending registrations for every requested course that still
// has capacity. It fails if any of the courses is already registered.
func (s *AdmissionService) Register(ctx context.Context, in AdmissionInput) ([]model.CourseRegistration, error) {
	userID := consistency.NormalizeID(in.UserID)
	courseIDs := consistency.NewIDSet(in.CourseIDs...).Slice()
	if len(courseIDs) == 0 {
		return nil, invalidf("course_ids must name at least one course")
	}

	var created []model.CourseRegistration
	err := s.withLocks(ctx, []string{LockKey(consistency.User, userID)}, func() error {
		return s.engine.Run(ctx, "register_courses", func(ctx context.Context, tx *consistency.Tx) error {
			if err := requireUser(ctx, tx, "register_courses", userID); err != nil {
				return err
			}

			var existing []string
			err := tx.DB().Model(&model.CourseRegistration{}).
				Where("user_id = ? AND course_id IN ?", userID, courseIDs).
				Pluck("course_id", &existing).Error
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return fmt.Errorf("%w: %v", ErrAlreadyRegistered, existing)
			}

			var open []string
			err = tx.DB().Model(&model.Course{}).
				Where("id IN ? AND quantity > 0", courseIDs).
				Order("id").
				Pluck("id", &open).Error
			if err != nil {
				return err
			}
			if len(open) == 0 {
				return ErrNoCapacity
			}

			created = make([]model.CourseRegistration, 0, len(open))
			for _, courseID := range open {
				created = append(created, model.CourseRegistration{
					ID:       uuid.NewString(),
					UserID:   userID,
					CourseID: courseID,
				})
			}
			return tx.Store().Create(ctx, &created)
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Approve turns the user's registrations for the given courses into
// enrollments in processing state and removes the registrations
func (s *AdmissionService) Approve(ctx context.Context, in AdmissionInput) ([]model.UserCourse, error) {
	userID := consistency.NormalizeID(in.UserID)
	courseIDs := consistency.NewIDSet(in.CourseIDs...).Slice()

	var enrolled []model.UserCourse
	err := s.withLocks(ctx, []string{LockKey(consistency.User, userID)}, func() error {
		return s.engine.Run(ctx, "approve_registrations", func(ctx context.Context, tx *consistency.Tx) error {
			regs, err := pendingRegistrations(tx, userID, courseIDs)
			if err != nil {
				return err
			}

			var already []string
			err = tx.DB().Model(&model.UserCourse{}).
				Where("user_id = ? AND course_id IN ?", userID, courseIDs).
				Pluck("course_id", &already).Error
			if err != nil {
				return err
			}
			skip := consistency.NewIDSet(already...)

			regIDs := make([]string, 0, len(regs))
			for _, r := range regs {
				regIDs = append(regIDs, r.ID)
				if skip.Has(r.CourseID) {
					continue
				}
				skip.Add(r.CourseID)
				enrolled = append(enrolled, model.UserCourse{
					ID:       uuid.NewString(),
					UserID:   userID,
					CourseID: r.CourseID,
					Status:   model.EnrollmentProcessing,
				})
			}

			if len(enrolled) > 0 {
				if err := tx.Store().Create(ctx, &enrolled); err != nil {
					return err
				}
			}
			_, err = tx.Store().DeleteByIDs(ctx, consistency.CourseRegistration, regIDs)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return enrolled, nil
}

// Reject drops the user's registrations for the given courses and returns
// how many were removed
func (s *AdmissionService) Reject(ctx context.Context, in AdmissionInput) (int64, error) {
	userID := consistency.NormalizeID(in.UserID)
	courseIDs := consistency.NewIDSet(in.CourseIDs...).Slice()

	var removed int64
	err := s.withLocks(ctx, []string{LockKey(consistency.User, userID)}, func() error {
		return s.engine.Run(ctx, "reject_registrations", func(ctx context.Context, tx *consistency.Tx) error {
			regs, err := pendingRegistrations(tx, userID, courseIDs)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(regs))
			for _, r := range regs {
				ids = append(ids, r.ID)
			}
			removed, err = tx.Store().DeleteByIDs(ctx, consistency.CourseRegistration, ids)
			return err
		})
	})
	return removed, err
}

// Complete marks the user's enrollments in the given courses as completed
func (s *AdmissionService) Complete(ctx context.Context, in AdmissionInput) (int64, error) {
	userID := consistency.NormalizeID(in.UserID)
	courseIDs := consistency.NewIDSet(in.CourseIDs...).Slice()

	var updated int64
	err := s.engine.Run(ctx, "complete_courses", func(ctx context.Context, tx *consistency.Tx) error {
		res := tx.DB().Model(&model.UserCourse{}).
			Where("user_id = ? AND course_id IN ?", userID, courseIDs).
			Update("status", model.EnrollmentCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNothingToProcess
		}
		updated = res.RowsAffected
		return nil
	})
	return updated, err
}

func requireUser(ctx context.Context, tx *consistency.Tx, op, userID string) error {
	ok, err := tx.Store().Exists(ctx, consistency.User, userID)
	if err != nil {
		return err
	}
	if !ok {
		return consistency.NotFound(op, consistency.User, userID)
	}
	return nil
}

func pendingRegistrations(tx *consistency.Tx, userID string, courseIDs []string) ([]model.CourseRegistration, error) {
	var regs []model.CourseRegistration
	err := tx.DB().
		Where("user_id = ? AND course_id IN ?", userID, courseIDs).
		Order("course_id").
		Find(&regs).Error
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, ErrNothingToProcess
	}
	return regs, nil
}
