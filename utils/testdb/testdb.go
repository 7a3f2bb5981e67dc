// Package testdb opens throwaway catalog databases for tests and seeds them
// with small fixtures.
package testdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory SQLite database with foreign keys
// enforced. Each call gets its own database, named after the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache database alive and
	// serialises writers the way SQLite expects.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// FailDeletesOn makes every DELETE against table fail with err
func FailDeletesOn(t testing.TB, db *gorm.DB, table string, err error) {
	t.Helper()
	name := "testdb:fail_delete_" + table
	cbErr := db.Callback().Delete().Before("gorm:delete").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, cbErr)
}

// Catalog inserts fixture rows. Every helper fails the test on error.
type Catalog struct {
	t  testing.TB
	db *gorm.DB
	n  int
}

// NewCatalog returns a fixture builder over db
func NewCatalog(t testing.TB, db *gorm.DB) *Catalog {
	return &Catalog{t: t, db: db}
}

func (c *Catalog) code(prefix string) string {
	c.n++
	return fmt.Sprintf("%s-%03d", prefix, c.n)
}

func (c *Catalog) create(v any) {
	c.t.Helper()
	require.NoError(c.t, c.db.Create(v).Error)
}

func (c *Catalog) Curriculum() *model.Curriculum {
	c.t.Helper()
	now := time.Now().UTC()
	m := &model.Curriculum{
		ID:            uuid.NewString(),
		Title:         "Curriculum",
		Code:          c.code("CUR"),
		DurationStart: now,
		DurationEnd:   now.AddDate(1, 0, 0),
	}
	c.create(m)
	return m
}

func (c *Catalog) Faculty(curriculumID string) *model.Faculty {
	c.t.Helper()
	m := &model.Faculty{
		ID:           uuid.NewString(),
		CurriculumID: curriculumID,
		Title:        "Faculty",
		Code:         c.code("FAC"),
	}
	c.create(m)
	return m
}

func (c *Catalog) Course(facultyID string, quantity int) *model.Course {
	c.t.Helper()
	m := &model.Course{
		ID:        uuid.NewString(),
		FacultyID: facultyID,
		Title:     "Course",
		Code:      c.code("CRS"),
		Quantity:  quantity,
	}
	c.create(m)
	return m
}

func (c *Catalog) Requirement(courseID string) *model.CourseRequirement {
	c.t.Helper()
	m := &model.CourseRequirement{
		ID:       uuid.NewString(),
		CourseID: courseID,
		Title:    "Requirement",
		Code:     c.code("REQ"),
	}
	c.create(m)
	return m
}

func (c *Catalog) User() *model.User {
	c.t.Helper()
	m := &model.User{
		ID:           uuid.NewString(),
		Email:        c.code("user") + "@example.com",
		PasswordHash: "x",
		Name:         "Student",
	}
	c.create(m)
	return m
}

func (c *Catalog) Role(level int) *model.Role {
	c.t.Helper()
	m := &model.Role{
		ID:    uuid.NewString(),
		Title: c.code("role"),
		Role:  level,
	}
	c.create(m)
	return m
}

func (c *Catalog) UserRole(userID, roleID string) *model.UserRole {
	c.t.Helper()
	m := &model.UserRole{ID: uuid.NewString(), UserID: userID, RoleID: roleID}
	c.create(m)
	return m
}

func (c *Catalog) Registration(userID, courseID string) *model.CourseRegistration {
	c.t.Helper()
	m := &model.CourseRegistration{ID: uuid.NewString(), UserID: userID, CourseID: courseID}
	c.create(m)
	return m
}

func (c *Catalog) Enrollment(userID, courseID string, status model.EnrollmentStatus) *model.UserCourse {
	c.t.Helper()
	m := &model.UserCourse{ID: uuid.NewString(), UserID: userID, CourseID: courseID, Status: status}
	c.create(m)
	return m
}

// Exists reports whether a row with id exists in the table of model m
func Exists(t testing.TB, db *gorm.DB, m any, id string) bool {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Where("id = ?", id).Count(&n).Error)
	return n > 0
}

// Count returns the number of rows in the table of model m
func Count(t testing.TB, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}
