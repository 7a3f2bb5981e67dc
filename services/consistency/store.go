package consistency

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/catalog-api/model"
	"gorm.io/gorm"
)

// batchSize caps the number of ids bound into a single IN (...) clause
const batchSize = 500

// Store is the table-scoped view of one open transaction. Every method runs
// against the same handle, so a Store must never outlive the Run call that
// produced it.
type Store interface {
	// Exists reports whether a row of type t with the given id exists
	Exists(ctx context.Context, t EntityType, id string) (bool, error)
	// First loads the row with the given primary key into dest
	First(ctx context.Context, dest any, id string, preloads ...string) error
	// Pluck returns column of every row of t whose filterColumn is in values
	Pluck(ctx context.Context, t EntityType, column, filterColumn string, values []string) ([]string, error)
	// Count returns the number of rows of t whose filterColumn is in values
	Count(ctx context.Context, t EntityType, filterColumn string, values []string) (int64, error)
	// Create inserts value, a pointer to a model or a slice of models
	Create(ctx context.Context, value any) error
	// Updates applies fields to the row of t with the given id
	Updates(ctx context.Context, t EntityType, id string, fields map[string]any) (int64, error)
	// Relink points foreignKey of every row of t in ids at parentID
	Relink(ctx context.Context, t EntityType, foreignKey string, ids []string, parentID string) (int64, error)
	// DeleteByIDs removes every row of t in ids
	DeleteByIDs(ctx context.Context, t EntityType, ids []string) (int64, error)
}

// GormStore implements Store on a *gorm.DB, normally a transaction handle
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for queries the Store does not cover
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// newModel returns a fresh model pointer for t. GORM writes back into the
// model passed to Model(), so instances are never shared between calls.
func newModel(t EntityType) (any, error) {
	switch t {
	case Curriculum:
		return &model.Curriculum{}, nil
	case Faculty:
		return &model.Faculty{}, nil
	case Course:
		return &model.Course{}, nil
	case CourseRequirement:
		return &model.CourseRequirement{}, nil
	case CourseRegistration:
		return &model.CourseRegistration{}, nil
	case Enrollment:
		return &model.UserCourse{}, nil
	case User:
		return &model.User{}, nil
	case Role:
		return &model.Role{}, nil
	case UserRole:
		return &model.UserRole{}, nil
	case Applicant:
		return &model.Applicant{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, t)
}

// Table returns the table name backing t
func Table(t EntityType) (string, error) {
	m, err := newModel(t)
	if err != nil {
		return "", err
	}
	tabler, ok := m.(interface{ TableName() string })
	if !ok {
		return "", fmt.Errorf("%w: %q has no table", ErrUnknownEntity, t)
	}
	return tabler.TableName(), nil
}

func (s *GormStore) Exists(ctx context.Context, t EntityType, id string) (bool, error) {
	n, err := s.Count(ctx, t, "id", []string{id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *GormStore) First(ctx context.Context, dest any, id string, preloads ...string) error {
	q := s.db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	return q.Where("id = ?", id).First(dest).Error
}

func (s *GormStore) Pluck(ctx context.Context, t EntityType, column, filterColumn string, values []string) ([]string, error) {
	var out []string
	for _, chunk := range chunks(values) {
		m, err := newModel(t)
		if err != nil {
			return nil, err
		}
		var part []string
		err = s.db.WithContext(ctx).Model(m).
			Where(fmt.Sprintf("%s IN ?", filterColumn), chunk).
			Pluck(column, &part).Error
		if err != nil {
			return nil, wrapf(err, "pluck %s.%s", t, column)
		}
		out = append(out, part...)
	}
	return out, nil
}

func (s *GormStore) Count(ctx context.Context, t EntityType, filterColumn string, values []string) (int64, error) {
	var total int64
	for _, chunk := range chunks(values) {
		m, err := newModel(t)
		if err != nil {
			return 0, err
		}
		var n int64
		err = s.db.WithContext(ctx).Model(m).
			Where(fmt.Sprintf("%s IN ?", filterColumn), chunk).
			Count(&n).Error
		if err != nil {
			return 0, wrapf(err, "count %s", t)
		}
		total += n
	}
	return total, nil
}

func (s *GormStore) Create(ctx context.Context, value any) error {
	return s.db.WithContext(ctx).Create(value).Error
}

func (s *GormStore) Updates(ctx context.Context, t EntityType, id string, fields map[string]any) (int64, error) {
	m, err := newModel(t)
	if err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return 0, wrapf(res.Error, "update %s %s", t, id)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Relink(ctx context.Context, t EntityType, foreignKey string, ids []string, parentID string) (int64, error) {
	var total int64
	for _, chunk := range chunks(ids) {
		m, err := newModel(t)
		if err != nil {
			return 0, err
		}
		res := s.db.WithContext(ctx).Model(m).
			Where("id IN ?", chunk).
			Update(foreignKey, parentID)
		if res.Error != nil {
			return 0, wrapf(res.Error, "relink %s.%s", t, foreignKey)
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (s *GormStore) DeleteByIDs(ctx context.Context, t EntityType, ids []string) (int64, error) {
	var total int64
	for _, chunk := range chunks(ids) {
		m, err := newModel(t)
		if err != nil {
			return 0, err
		}
		res := s.db.WithContext(ctx).Where("id IN ?", chunk).Delete(m)
		if res.Error != nil {
			return 0, wrapf(res.Error, "delete %s", t)
		}
		total += res.RowsAffected
	}
	return total, nil
}

// chunks splits values into slices of at most batchSize
func chunks(values []string) [][]string {
	if len(values) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(values)+batchSize-1)/batchSize)
	for start := 0; start < len(values); start += batchSize {
		end := start + batchSize
		if end > len(values) {
			end = len(values)
		}
		out = append(out, values[start:end])
	}
	return out
}
