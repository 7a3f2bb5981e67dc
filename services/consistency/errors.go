package consistency

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Sentinel errors. Engine operations return them wrapped in *Error so
// callers can use errors.Is without knowing about the store driver.
var (
	ErrNotFound            = errors.New("not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrTransientStore      = errors.New("transient store error")
	ErrNestedTransaction   = errors.New("nested catalog transaction")
	ErrUnknownEntity       = errors.New("unknown entity type")
)

// Kind is the failure class of an engine error
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConstraintViolation
	KindTransient
	// KindRejected is a refusal by the caller's own checks (bad input, a
	// conflict), not a store fault
	KindRejected
)

// Rejection is implemented by errors a Run callback returns to refuse the
// operation. They roll back like any failure but classify as KindRejected.
type Rejection interface {
	error
	Rejected() bool
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	default:
		return "internal"
	}
}

// Error is returned by every failed engine operation
type Error struct {
	Op     string
	Kind   Kind
	Entity EntityType
	ID     string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(string(e.Entity))
		if e.ID != "" {
			b.WriteString(" ")
			b.WriteString(e.ID)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConstraintViolation:
		return e.Kind == KindConstraintViolation
	case ErrTransientStore:
		return e.Kind == KindTransient
	}
	return false
}

// KindOf returns the kind of err, KindInternal when err is not an engine error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classifyKind(err)
}

func notFound(op string, t EntityType, id string) *Error {
	return &Error{Op: op, Kind: KindNotFound, Entity: t, ID: id, Err: gorm.ErrRecordNotFound}
}

// NotFound reports a missing row of type t, for callers outside the engine
func NotFound(op string, t EntityType, id string) error {
	return notFound(op, t, id)
}

// Classify wraps a low-level store error into an *Error for op. Errors that
// are already classified keep their kind.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			e.Op = op
		}
		return e
	}
	return &Error{Op: op, Kind: classifyKind(err), Err: err}
}

func classifyKind(err error) Kind {
	var rej Rejection
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &rej) && rej.Rejected():
		return KindRejected
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrConstraintViolation),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return KindConstraintViolation
	case errors.Is(err, ErrTransientStore),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn):
		return KindTransient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return kindForSQLState(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return kindForSQLState(string(pqErr.Code))
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindInternal
}

// kindForSQLState maps a Postgres SQLSTATE to a kind
func kindForSQLState(code string) Kind {
	switch {
	case strings.HasPrefix(code, "23"): // integrity_constraint_violation
		return KindConstraintViolation
	case strings.HasPrefix(code, "08"): // connection_exception
		return KindTransient
	}
	switch code {
	case "40001", "40P01", "53300", "57P01", "57P02", "57P03":
		return KindTransient
	}
	return KindInternal
}

// wrapf annotates err with context without losing its classification
func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
