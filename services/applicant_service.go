package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/auth"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApplicantService handles admission applications
type ApplicantService struct {
	base
}

// NewApplicantService creates a new applicant service
func NewApplicantService(db *gorm.DB, engine *consistency.Engine, opts Options) *ApplicantService {
	return &ApplicantService{base: newBase(db, engine, opts)}
}

// ApplicantInput is a public admission application
type ApplicantInput struct {
	Email    string    `json:"email" validate:"required,email"`
	Name     string    `json:"name" validate:"required,max=255"`
	Birthday time.Time `json:"birthday"`
	Phone    string    `json:"phone" validate:"max=32"`
	Gender   string    `json:"gender" validate:"max=16"`
	Address  string    `json:"address"`
}

// Admitted is a student account created from an application. The temporary
// password is only ever returned here.
type Admitted struct {
	ApplicantID       string      `json:"applicant_id"`
	User              *model.User `json:"user"`
	TemporaryPassword string      `json:"temporary_password"`
}

// List returns one page of applications, newest first
func (s *ApplicantService) List(ctx context.Context, page, limit int) ([]model.Applicant, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Applicant{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, consistency.Classify("list_applicants", err)
	}

	offset, size := paginate(page, limit)
	var out []model.Applicant
	if err := q.Order("created_at DESC").Offset(offset).Limit(size).Find(&out).Error; err != nil {
		return nil, 0, consistency.Classify("list_applicants", err)
	}
	return out, total, nil
}

// Create files an application. The email must be free among both
// applications and accounts.
func (s *ApplicantService) Create(ctx context.Context, in ApplicantInput) (*model.Applicant, error) {
	a := &model.Applicant{
		ID:       uuid.NewString(),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Name:     strings.TrimSpace(in.Name),
		Birthday: datatypes.Date(in.Birthday),
		Phone:    strings.TrimSpace(in.Phone),
		Gender:   strings.TrimSpace(in.Gender),
		Address:  strings.TrimSpace(in.Address),
	}

	err := s.engine.Run(ctx, "create_applicant", func(ctx context.Context, tx *consistency.Tx) error {
		if err := emailFree(tx, a.Email); err != nil {
			return err
		}
		return tx.Store().Create(ctx, a)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, a.Email)
		}
		return nil, err
	}
	return a, nil
}

// UpgradeToStudent turns every listed application into a student account
// and deletes the applications. It is all or nothing: an unknown id or an
// email that has meanwhile been taken fails the whole batch.
func (s *ApplicantService) UpgradeToStudent(ctx context.Context, ids []string) ([]Admitted, error) {
	set := consistency.NewIDSet(ids...)
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: no applicants given", ErrNothingToProcess)
	}

	keys := make([]string, 0, set.Len())
	for _, id := range set.Slice() {
		keys = append(keys, LockKey(consistency.Applicant, id))
	}

	var admitted []Admitted
	err := s.withLocks(ctx, keys, func() error {
		admitted = admitted[:0]
		return s.engine.Run(ctx, "upgrade_applicants", func(ctx context.Context, tx *consistency.Tx) error {
			var apps []model.Applicant
			if err := tx.DB().Where("id IN ?", set.Slice()).Order("email").Find(&apps).Error; err != nil {
				return err
			}
			if len(apps) != set.Len() {
				found := consistency.NewIDSet()
				for _, a := range apps {
					found.Add(a.ID)
				}
				for _, id := range set.Slice() {
					if !found.Has(id) {
						return consistency.NotFound("upgrade_applicants", consistency.Applicant, id)
					}
				}
			}

			roles, err := resolveRoles(tx, []int{model.RoleStudent})
			if err != nil {
				return err
			}

			for _, a := range apps {
				var n int64
				if err := tx.DB().Model(&model.User{}).Where("email = ?", a.Email).Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					return fmt.Errorf("%w: %s", ErrEmailTaken, a.Email)
				}

				password := temporaryPassword()
				hash, err := auth.HashPasswordWithCost(password, s.passwordCost)
				if err != nil {
					return fmt.Errorf("failed to hash password: %w", err)
				}
				u := &model.User{
					ID:           uuid.NewString(),
					Email:        a.Email,
					PasswordHash: hash,
					Name:         a.Name,
					Birthday:     a.Birthday,
					Phone:        a.Phone,
					Address:      a.Address,
				}
				if err := tx.Store().Create(ctx, u); err != nil {
					return err
				}
				if err := linkRoles(ctx, tx, u.ID, roles); err != nil {
					return err
				}
				admitted = append(admitted, Admitted{ApplicantID: a.ID, User: u, TemporaryPassword: password})
			}

			_, err = tx.Store().DeleteByIDs(ctx, consistency.Applicant, set.Slice())
			return err
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: applicant email already has an account", ErrEmailTaken)
		}
		return nil, err
	}

	s.log.Info().Int("count", len(admitted)).Msg("applicants upgraded to students")
	return admitted, nil
}

// Delete permanently removes an application
func (s *ApplicantService) Delete(ctx context.Context, id string) error {
	return s.withLocks(ctx, []string{LockKey(consistency.Applicant, id)}, func() error {
		return s.engine.Run(ctx, "delete_applicant", func(ctx context.Context, tx *consistency.Tx) error {
			_, err := tx.DeleteSubtree(ctx, consistency.Applicant, id)
			return err
		})
	})
}

func emailFree(tx *consistency.Tx, email string) error {
	for _, m := range []any{&model.Applicant{}, &model.User{}} {
		var n int64
		if err := tx.DB().Model(m).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}
	return nil
}

// temporaryPassword is 24 hex characters drawn from two random UUIDs
func temporaryPassword() string {
	raw := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return raw[:24]
}
