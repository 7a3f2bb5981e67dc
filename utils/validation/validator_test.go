package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type facultyRequest struct {
	Title      string    `json:"title" validate:"required,max=255"`
	Start      time.Time `json:"duration_start" validate:"required"`
	End        time.Time `json:"duration_end" validate:"required,gtfield=Start"`
	CourseIDs  []string  `json:"course_ids" validate:"omitempty,ids"`
	Quantity   int       `json:"quantity" validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	v := NewValidator()
	now := time.Now()

	ok := facultyRequest{Title: "SE", Start: now, End: now.Add(time.Hour), CourseIDs: []string{"a"}}
	require.NoError(t, v.ValidateStruct(ok))

	bad := facultyRequest{Start: now, End: now.Add(-time.Hour), CourseIDs: []string{"a", " "}, Quantity: -1}
	err := v.ValidateStruct(bad)
	require.Error(t, err)

	msgs := FormatValidationErrors(err)
	assert.Equal(t, "title is required", msgs["title"])
	assert.Contains(t, msgs["duration_end"], "must be after")
	assert.Equal(t, "course_ids must not contain blank ids", msgs["course_ids"])
	assert.Contains(t, msgs, "quantity")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Software Engineering", SanitizeString("  Software\x00 Engineering \n"))
	assert.Empty(t, SanitizeString(" \t"))
}
