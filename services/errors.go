package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Service errors. They implement consistency.Rejection, so a Run that fails
// with one is logged as a refusal rather than a store fault. Engine failures
// (not found, constraint, transient) pass through as *consistency.Error.
var (
	ErrInvalidInput       = reject("invalid input")
	ErrCodeTaken          = reject("code already in use")
	ErrEmailTaken         = reject("email already in use")
	ErrLocked             = reject("resource is being modified, retry shortly")
	ErrNoCapacity         = reject("none of the requested courses has remaining capacity")
	ErrNothingToProcess   = reject("nothing to process")
	ErrAlreadyRegistered  = reject("course already registered")
	ErrInvalidCredentials = reject("invalid email or password")
	ErrForbidden          = reject("not allowed to perform this change")
)

type rejection struct{ msg string }

func reject(msg string) error { return &rejection{msg: msg} }

func (e *rejection) Error() string  { return e.msg }
func (e *rejection) Rejected() bool { return true }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// codeConflict turns a unique violation that slipped past the pre-check
// (two concurrent creates) into ErrCodeTaken
func codeConflict(err error, code string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrCodeTaken, code)
	}
	return err
}
