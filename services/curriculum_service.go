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

// CurriculumService manages curricula and their faculty membership
type CurriculumService struct {
	base
}

// NewCurriculumService creates a new curriculum service
func NewCurriculumService(db *gorm.DB, engine *consistency.Engine, opts Options) *CurriculumService {
	return &CurriculumService{base: newBase(db, engine, opts)}
}

// CurriculumInput is the writable part of a curriculum. A nil FacultyIDs
// leaves membership untouched; an empty, non-nil slice removes (and deletes)
// every faculty.
type CurriculumInput struct {
	Title         string    `json:"title" validate:"required,max=255"`
	Code          string    `json:"code" validate:"required,max=50"`
	Description   string    `json:"description"`
	DurationStart time.Time `json:"duration_start" validate:"required"`
	DurationEnd   time.Time `json:"duration_end" validate:"required,gtfield=DurationStart"`
	FacultyIDs    []string  `json:"faculty_ids" validate:"omitempty,ids"`
}

// CurriculumResult is a written curriculum plus what happened to its faculties
type CurriculumResult struct {
	Curriculum *model.Curriculum             `json:"curriculum"`
	Faculties  *consistency.ReconcileResult `json:"faculties,omitempty"`
}

// List returns one page of curricula ordered by code
func (s *CurriculumService) List(ctx context.Context, page, limit int) ([]model.Curriculum, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Curriculum{}).Count(&total).Error; err != nil {
		return nil, 0, consistency.Classify("list_curricula", err)
	}

	offset, size := paginate(page, limit)
	var out []model.Curriculum
	err := s.db.WithContext(ctx).Order("code").Offset(offset).Limit(size).Find(&out).Error
	if err != nil {
		return nil, 0, consistency.Classify("list_curricula", err)
	}
	return out, total, nil
}

// Get loads a curriculum with its faculties
func (s *CurriculumService) Get(ctx context.Context, id string) (*model.Curriculum, error) {
	var c model.Curriculum
	err := s.db.WithContext(ctx).
		Preload("Faculties", func(db *gorm.DB) *gorm.DB { return db.Order("code") }).
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consistency.NotFound("get_curriculum", consistency.Curriculum, id)
	}
	if err != nil {
		return nil, consistency.Classify("get_curriculum", err)
	}
	return &c, nil
}

// Create inserts a curriculum. Listed faculties are moved under it.
func (s *CurriculumService) Create(ctx context.Context, in CurriculumInput) (*CurriculumResult, error) {
	c := &model.Curriculum{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Code:          in.Code,
		Description:   in.Description,
		DurationStart: in.DurationStart,
		DurationEnd:   in.DurationEnd,
	}

	keys := []string{LockKey(consistency.Curriculum, c.ID)}
	if in.FacultyIDs != nil {
		moved, err := s.membershipKeys(ctx, consistency.Curriculum, in.FacultyIDs)
		if err != nil {
			return nil, err
		}
		keys = append(keys, moved...)
	}

	var reconciled *consistency.ReconcileResult
	err := s.withLocks(ctx, keys, func() error {
		return s.engine.Run(ctx, "create_curriculum", func(ctx context.Context, tx *consistency.Tx) error {
			taken, err := codeInUse(tx.DB(), &model.Curriculum{}, in.Code, "")
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %s", ErrCodeTaken, in.Code)
			}

			if err := tx.Store().Create(ctx, c); err != nil {
				return err
			}

			if in.FacultyIDs != nil {
				reconciled, err = tx.Reconcile(ctx, consistency.Curriculum, c.ID, in.FacultyIDs)
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, codeConflict(err, in.Code)
	}

	created, err := s.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &CurriculumResult{Curriculum: created, Faculties: reconciled}, nil
}

// Update replaces the curriculum fields and, when FacultyIDs is set,
// reconciles its faculties. Faculties dropped from the list are deleted with
// their courses.
func (s *CurriculumService) Update(ctx context.Context, id string, in CurriculumInput) (*CurriculumResult, error) {
	var (
		reconciled *consistency.ReconcileResult
		thumbs     []string
	)

	keys := []string{LockKey(consistency.Curriculum, id)}
	if in.FacultyIDs != nil {
		moved, err := s.membershipKeys(ctx, consistency.Curriculum, in.FacultyIDs)
		if err != nil {
			return nil, err
		}
		keys = append(keys, moved...)
	}

	err := s.withLocks(ctx, keys, func() error {
		return s.engine.Run(ctx, "update_curriculum", func(ctx context.Context, tx *consistency.Tx) error {
			ok, err := tx.Store().Exists(ctx, consistency.Curriculum, id)
			if err != nil {
				return err
			}
			if !ok {
				return consistency.NotFound("update_curriculum", consistency.Curriculum, id)
			}

			taken, err := codeInUse(tx.DB(), &model.Curriculum{}, in.Code, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %s", ErrCodeTaken, in.Code)
			}

			_, err = tx.Store().Updates(ctx, consistency.Curriculum, id, map[string]any{
				"title":          in.Title,
				"code":           in.Code,
				"description":    in.Description,
				"duration_start": in.DurationStart,
				"duration_end":   in.DurationEnd,
			})
			if err != nil {
				return err
			}

			if in.FacultyIDs == nil {
				return nil
			}

			before, err := facultyThumbnails(tx.DB(), "curriculum_id", []string{id})
			if err != nil {
				return err
			}
			reconciled, err = tx.Reconcile(ctx, consistency.Curriculum, id, in.FacultyIDs)
			if err != nil {
				return err
			}
			for _, fid := range reconciled.Unlinked {
				if url, ok := before[fid]; ok {
					thumbs = append(thumbs, url)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, codeConflict(err, in.Code)
	}

	s.removeThumbnails(ctx, thumbs)

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CurriculumResult{Curriculum: updated, Faculties: reconciled}, nil
}

// Delete permanently removes a curriculum with all faculties, courses and
// their dependants
func (s *CurriculumService) Delete(ctx context.Context, id string) (consistency.Counts, error) {
	var (
		counts consistency.Counts
		thumbs []string
	)

	err := s.withLocks(ctx, []string{LockKey(consistency.Curriculum, id)}, func() error {
		return s.engine.Run(ctx, "delete_curriculum", func(ctx context.Context, tx *consistency.Tx) error {
			byID, err := facultyThumbnails(tx.DB(), "curriculum_id", []string{id})
			if err != nil {
				return err
			}

			counts, err = tx.DeleteSubtree(ctx, consistency.Curriculum, id)
			if err != nil {
				return err
			}
			for _, url := range byID {
				thumbs = append(thumbs, url)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.removeThumbnails(ctx, thumbs)
	return counts, nil
}
