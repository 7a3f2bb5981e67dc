package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/utils/auth"
	"github.com/sahilchouksey/catalog-api/utils/testdb"
)

func TestSeedCatalog(t *testing.T) {
	db := testdb.Open(t)
	s := NewSeeder(db)

	require.NoError(t, s.SeedCatalog())
	require.NoError(t, s.SeedCatalog(), "second run is a no-op")

	assert.EqualValues(t, 1, testdb.Count(t, db, &model.Curriculum{}))
	assert.EqualValues(t, 2, testdb.Count(t, db, &model.Faculty{}))
	assert.EqualValues(t, 5, testdb.Count(t, db, &model.Course{}))
	assert.EqualValues(t, 4, testdb.Count(t, db, &model.CourseRequirement{}))
}

func TestSeedAdminUser(t *testing.T) {
	db := testdb.Open(t)
	s := NewSeeder(db)
	require.NoError(t, s.SeedRoles())
	require.NoError(t, s.SeedRoles())
	assert.EqualValues(t, 2, testdb.Count(t, db, &model.Role{}))

	admin, err := s.SeedAdminUser("admin@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, admin)
	require.NoError(t, auth.VerifyPassword(admin.PasswordHash, "correct-horse"))

	again, err := s.SeedAdminUser("admin@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	var link model.UserRole
	require.NoError(t, db.Preload("Role").Where("user_id = ?", admin.ID).First(&link).Error)
	assert.Equal(t, model.RoleAdmin, link.Role.Role)

	none, err := s.SeedAdminUser("", "")
	require.NoError(t, err)
	assert.Nil(t, none)
}
