package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/testdb"
)

func apply(t *testing.T, svc *services.ApplicantService, email string) *model.Applicant {
	t.Helper()
	a, err := svc.Create(context.Background(), services.ApplicantInput{
		Email:   email,
		Name:    "Applicant " + email,
		Phone:   "555-0199",
		Address: "2 Campus Way",
	})
	require.NoError(t, err)
	return a
}

func TestApplicantCreateRejectsKnownEmails(t *testing.T) {
	e := newEnv(t)
	seedRoles(e)
	svc := services.NewApplicantService(e.db, e.engine, e.opts)
	users := services.NewUserService(e.db, e.engine, e.opts)
	ctx := context.Background()

	a := apply(t, svc, " New@Example.com ")
	assert.Equal(t, "new@example.com", a.Email)

	_, err := svc.Create(ctx, services.ApplicantInput{Email: "NEW@example.com", Name: "Again"})
	require.ErrorIs(t, err, services.ErrEmailTaken)

	_, err = users.Create(ctx, services.UserInput{Email: "member@example.com", Password: "correct-horse", Name: "M"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, services.ApplicantInput{Email: "member@example.com", Name: "M"})
	require.ErrorIs(t, err, services.ErrEmailTaken)

	assert.EqualValues(t, 1, testdb.Count(t, e.db, &model.Applicant{}))
}

func TestApplicantUpgradeCreatesStudents(t *testing.T) {
	e := newEnv(t)
	seedRoles(e)
	svc := services.NewApplicantService(e.db, e.engine, e.opts)
	users := services.NewUserService(e.db, e.engine, e.opts)
	ctx := context.Background()

	a := apply(t, svc, "a@example.com")
	b := apply(t, svc, "b@example.com")
	waiting := apply(t, svc, "c@example.com")

	admitted, err := svc.UpgradeToStudent(ctx, []string{b.ID, a.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, admitted, 2)

	for _, ad := range admitted {
		assert.NotEmpty(t, ad.TemporaryPassword)
		assert.False(t, testdb.Exists(t, e.db, &model.Applicant{}, ad.ApplicantID))

		u, err := users.Authenticate(ctx, ad.User.Email, ad.TemporaryPassword)
		require.NoError(t, err)
		assert.Equal(t, []int{model.RoleStudent}, services.RoleNumbers(u))
		assert.Equal(t, "555-0199", u.Phone)
	}
	assert.True(t, testdb.Exists(t, e.db, &model.Applicant{}, waiting.ID))
	assert.EqualValues(t, 2, testdb.Count(t, e.db, &model.User{}))
	assert.ElementsMatch(t, []string{
		services.LockKey(consistency.Applicant, a.ID),
		services.LockKey(consistency.Applicant, b.ID),
	}, e.locker.acquired)
}

func TestApplicantUpgradeIsAllOrNothing(t *testing.T) {
	e := newEnv(t)
	seedRoles(e)
	svc := services.NewApplicantService(e.db, e.engine, e.opts)
	users := services.NewUserService(e.db, e.engine, e.opts)
	ctx := context.Background()

	a := apply(t, svc, "a@example.com")
	b := apply(t, svc, "b@example.com")

	_, err := svc.UpgradeToStudent(ctx, []string{a.ID, "missing"})
	require.ErrorIs(t, err, consistency.ErrNotFound)

	// b registered on their own after applying
	_, err = users.Create(ctx, services.UserInput{Email: "b@example.com", Password: "correct-horse", Name: "B"})
	require.NoError(t, err)
	_, err = svc.UpgradeToStudent(ctx, []string{a.ID, b.ID})
	require.ErrorIs(t, err, services.ErrEmailTaken)

	_, err = svc.UpgradeToStudent(ctx, nil)
	require.ErrorIs(t, err, services.ErrNothingToProcess)

	assert.EqualValues(t, 2, testdb.Count(t, e.db, &model.Applicant{}))
	assert.EqualValues(t, 1, testdb.Count(t, e.db, &model.User{}))
	assert.EqualValues(t, 1, testdb.Count(t, e.db, &model.UserRole{}))
}

func TestApplicantDelete(t *testing.T) {
	e := newEnv(t)
	svc := services.NewApplicantService(e.db, e.engine, e.opts)
	ctx := context.Background()

	a := apply(t, svc, "a@example.com")

	e.locker.hold(services.LockKey(consistency.Applicant, a.ID))
	require.ErrorIs(t, svc.Delete(ctx, a.ID), services.ErrLocked)
	require.NoError(t, e.locker.Release(ctx, services.LockKey(consistency.Applicant, a.ID), "someone-else"))

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.False(t, testdb.Exists(t, e.db, &model.Applicant{}, a.ID))
	require.ErrorIs(t, svc.Delete(ctx, a.ID), consistency.ErrNotFound)
}

func TestApplicantList(t *testing.T) {
	e := newEnv(t)
	svc := services.NewApplicantService(e.db, e.engine, e.opts)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		apply(t, svc, email)
	}

	page, total, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)
}
