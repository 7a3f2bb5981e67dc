package consistency_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/sahilchouksey/catalog-api/services/consistency"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want consistency.Kind
	}{
		{"record not found", gorm.ErrRecordNotFound, consistency.KindNotFound},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, consistency.KindConstraintViolation},
		{"gorm duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), consistency.KindConstraintViolation},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, consistency.KindConstraintViolation},
		{"pgx unique", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"}), consistency.KindConstraintViolation},
		{"pq foreign key", &pq.Error{Code: "23503"}, consistency.KindConstraintViolation},
		{"pgx serialization", &pgconn.PgError{Code: "40001"}, consistency.KindTransient},
		{"pgx admin shutdown", &pgconn.PgError{Code: "57P01"}, consistency.KindTransient},
		{"pq connection", &pq.Error{Code: "08006"}, consistency.KindTransient},
		{"deadline", context.DeadlineExceeded, consistency.KindTransient},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), consistency.KindTransient},
		{"syntax error", &pgconn.PgError{Code: "42601"}, consistency.KindInternal},
		{"plain", errors.New("boom"), consistency.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := consistency.Classify("op", tt.err)
			assert.Equal(t, tt.want, consistency.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestErrorMatchesSentinels(t *testing.T) {
	err := consistency.Classify("delete_subtree", &pgconn.PgError{Code: "23503"})

	assert.ErrorIs(t, err, consistency.ErrConstraintViolation)
	assert.NotErrorIs(t, err, consistency.ErrNotFound)
	assert.NotErrorIs(t, err, consistency.ErrTransientStore)

	var e *consistency.Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, "delete_subtree", e.Op)
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	orig := &consistency.Error{Kind: consistency.KindNotFound, Entity: consistency.Course, ID: "c1"}

	err := consistency.Classify("reconcile", fmt.Errorf("step: %w", orig))

	assert.Equal(t, consistency.KindNotFound, consistency.KindOf(err))
	assert.ErrorIs(t, err, consistency.ErrNotFound)
	assert.Equal(t, "reconcile course c1: not_found", err.Error())
}
