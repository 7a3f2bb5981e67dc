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

// UserService manages user accounts
type UserService struct {
	base
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, engine *consistency.Engine, opts Options) *UserService {
	return &UserService{base: newBase(db, engine, opts)}
}

// UserInput describes a new account. Roles holds role numbers
// (model.RoleAdmin, model.RoleStudent); it defaults to student.
type UserInput struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8,max=72"`
	Name     string    `json:"name" validate:"required,max=255"`
	Birthday time.Time `json:"birthday"`
	Phone    string    `json:"phone" validate:"max=32"`
	Address  string    `json:"address"`
	Roles    []int     `json:"roles" validate:"omitempty,dive,oneof=1 2"`
}

// Create registers a user with the requested roles
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	hash, err := auth.HashPasswordWithCost(in.Password, s.passwordCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, invalidf("%s", err.Error())
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         in.Name,
		Birthday:     datatypes.Date(in.Birthday),
		Phone:        in.Phone,
		Address:      in.Address,
	}

	wanted := in.Roles
	if len(wanted) == 0 {
		wanted = []int{model.RoleStudent}
	}

	err = s.engine.Run(ctx, "create_user", func(ctx context.Context, tx *consistency.Tx) error {
		var n int64
		if err := tx.DB().Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}

		roles, err := resolveRoles(tx, wanted)
		if err != nil {
			return err
		}
		if err := tx.Store().Create(ctx, u); err != nil {
			return err
		}
		return linkRoles(ctx, tx, u.ID, roles)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		return nil, err
	}
	return s.Get(ctx, u.ID)
}

// UserUpdate edits a profile. Nil fields keep their stored value. A
// non-empty Roles replaces every role of the user.
type UserUpdate struct {
	Email    *string    `json:"email" validate:"omitempty,email"`
	Name     *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Birthday *time.Time `json:"birthday"`
	Phone    *string    `json:"phone" validate:"omitempty,max=32"`
	Address  *string    `json:"address"`
	Roles    []int      `json:"roles" validate:"omitempty,dive,oneof=1 2"`
}

// Update applies a profile edit. callerRoles are the role numbers of whoever
// asks; only an admin may change roles, anyone else gets ErrForbidden.
func (s *UserService) Update(ctx context.Context, id string, in UserUpdate, callerRoles []int) (*model.User, error) {
	if len(in.Roles) > 0 && !hasRole(callerRoles, model.RoleAdmin) {
		return nil, fmt.Errorf("%w: changing roles needs the admin role", ErrForbidden)
	}

	fields := map[string]any{}
	var email string
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		fields["email"] = email
	}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Birthday != nil {
		fields["birthday"] = datatypes.Date(*in.Birthday)
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		fields["address"] = strings.TrimSpace(*in.Address)
	}

	err := s.withLocks(ctx, []string{LockKey(consistency.User, id)}, func() error {
		return s.engine.Run(ctx, "update_user", func(ctx context.Context, tx *consistency.Tx) error {
			var current model.User
			if err := tx.Store().First(ctx, &current, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return consistency.NotFound("update_user", consistency.User, id)
				}
				return err
			}

			if email != "" && email != current.Email {
				var n int64
				if err := tx.DB().Model(&model.User{}).Where("email = ? AND id <> ?", email, id).Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					return fmt.Errorf("%w: %s", ErrEmailTaken, email)
				}
			}
			if len(fields) > 0 {
				if _, err := tx.Store().Updates(ctx, consistency.User, id, fields); err != nil {
					return err
				}
			}

			if len(in.Roles) == 0 {
				return nil
			}
			roles, err := resolveRoles(tx, in.Roles)
			if err != nil {
				return err
			}
			links, err := tx.Store().Pluck(ctx, consistency.UserRole, "id", "user_id", []string{id})
			if err != nil {
				return err
			}
			if _, err := tx.Store().DeleteByIDs(ctx, consistency.UserRole, links); err != nil {
				return err
			}
			return linkRoles(ctx, tx, id, roles)
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get loads a user with roles, pending registrations and enrollments
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Preload("Roles.Role").
		Preload("Registrations.Course").
		Preload("Enrollments.Course").
		Where("id = ?", id).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consistency.NotFound("get_user", consistency.User, id)
	}
	if err != nil {
		return nil, consistency.Classify("get_user", err)
	}
	return &u, nil
}

// Delete permanently removes a user with roles, registrations and enrollments
func (s *UserService) Delete(ctx context.Context, id string) (consistency.Counts, error) {
	var counts consistency.Counts
	err := s.withLocks(ctx, []string{LockKey(consistency.User, id)}, func() error {
		return s.engine.Run(ctx, "delete_user", func(ctx context.Context, tx *consistency.Tx) error {
			var err error
			counts, err = tx.DeleteSubtree(ctx, consistency.User, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Authenticate checks credentials and returns the user with roles loaded
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Preload("Roles.Role").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, consistency.Classify("authenticate", err)
	}

	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Hashes from an older cost setting are upgraded on the next good login
	if auth.NeedsRehash(u.PasswordHash, s.passwordCost) {
		if hash, err := auth.HashPasswordWithCost(password, s.passwordCost); err == nil {
			err = s.db.WithContext(ctx).Model(&model.User{}).
				Where("id = ?", u.ID).
				Update("password_hash", hash).Error
			if err != nil {
				s.log.Warn().Err(err).Str("user_id", u.ID).Msg("failed to rehash password")
			} else {
				u.PasswordHash = hash
			}
		}
	}
	return &u, nil
}

// RoleNumbers returns the role numbers of a user loaded with Roles.Role
func RoleNumbers(u *model.User) []int {
	out := make([]int, 0, len(u.Roles))
	for _, ur := range u.Roles {
		if ur.Role != nil {
			out = append(out, ur.Role.Role)
		}
	}
	return out
}

// resolveRoles loads the roles with the given numbers and fails on any
// number that has no row
func resolveRoles(tx *consistency.Tx, wanted []int) ([]model.Role, error) {
	var roles []model.Role
	if err := tx.DB().Where("role IN ?", wanted).Find(&roles).Error; err != nil {
		return nil, err
	}
	if len(roles) != len(unique(wanted)) {
		return nil, invalidf("unknown role in %v", wanted)
	}
	return roles, nil
}

func linkRoles(ctx context.Context, tx *consistency.Tx, userID string, roles []model.Role) error {
	links := make([]model.UserRole, 0, len(roles))
	for _, r := range roles {
		links = append(links, model.UserRole{ID: uuid.NewString(), UserID: userID, RoleID: r.ID})
	}
	return tx.Store().Create(ctx, &links)
}

func hasRole(roles []int, want int) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func unique(values []int) []int {
	seen := make(map[int]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
