// Package consistency keeps the academic catalog free of orphaned rows.
//
// It owns the two operations that touch more than one table at a time:
// cascading deletion of a Curriculum, Faculty, Course or User subtree, and
// reconciliation of a parent's child membership set (Faculty.courses,
// Curriculum.faculties). Both run inside a single database transaction opened
// by Engine.Run; nothing is ever partially committed.
package consistency

import (
	"sort"
	"strconv"
	"strings"
)

// EntityType names a catalog table as the engine sees it
type EntityType string

const (
	Curriculum         EntityType = "curriculum"
	Faculty            EntityType = "faculty"
	Course             EntityType = "course"
	CourseRequirement  EntityType = "course_requirement"
	CourseRegistration EntityType = "course_registration"
	Enrollment         EntityType = "enrollment"
	User               EntityType = "user"
	Role               EntityType = "role"
	UserRole           EntityType = "user_role"
	Applicant          EntityType = "applicant"
)

func (t EntityType) String() string { return string(t) }

// Counts holds the number of rows deleted per entity type
type Counts map[EntityType]int64

// Add merges other into c
func (c Counts) Add(other Counts) {
	for t, n := range other {
		c[t] += n
	}
}

// Total returns the sum over all types
func (c Counts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// String renders the counts in a stable order, e.g. "course=1 enrollment=3"
func (c Counts) String() string {
	keys := make([]string, 0, len(c))
	for t := range c {
		keys = append(keys, string(t))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.FormatInt(c[EntityType(k)], 10))
	}
	return strings.Join(parts, " ")
}
