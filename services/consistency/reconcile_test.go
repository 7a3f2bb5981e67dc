package consistency_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/testdb"
)

func linkedCourses(t *testing.T, f *fixture, facultyID string) []string {
	t.Helper()
	var ids []string
	require.NoError(t, f.db.Model(&model.Course{}).Where("faculty_id = ?", facultyID).Order("id").Pluck("id", &ids).Error)
	return ids
}

func TestReconcileFacultyCourses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	elsewhere := f.catalog.Faculty(cur.ID)

	c1 := f.catalog.Course(fac.ID, 1)
	c2 := f.catalog.Course(fac.ID, 1)
	c3 := f.catalog.Course(elsewhere.ID, 1)
	req := f.catalog.Requirement(c1.ID)
	u := f.catalog.User()
	enr := f.catalog.Enrollment(u.ID, c1.ID, model.EnrollmentProcessing)
	keptEnr := f.catalog.Enrollment(u.ID, c2.ID, model.EnrollmentProcessing)

	res, err := f.engine.Reconcile(ctx, consistency.Faculty, fac.ID, []string{c2.ID, " " + c3.ID, "ghost"})
	require.NoError(t, err)

	assert.Equal(t, consistency.Faculty, res.Parent)
	assert.Equal(t, consistency.Course, res.Child)
	assert.Equal(t, []string{c3.ID}, res.Linked)
	assert.Equal(t, []string{c1.ID}, res.Unlinked)
	assert.Equal(t, []string{c2.ID}, res.Kept)
	assert.Equal(t, []string{"ghost"}, res.Ignored)
	assert.Equal(t, consistency.Counts{
		consistency.Enrollment:         1,
		consistency.CourseRegistration: 0,
		consistency.CourseRequirement:  1,
		consistency.Course:             1,
	}, res.OrphansDeleted)
	assert.True(t, res.Changed())

	assert.ElementsMatch(t, []string{c2.ID, c3.ID}, linkedCourses(t, f, fac.ID))
	assert.Empty(t, linkedCourses(t, f, elsewhere.ID))
	assert.False(t, testdb.Exists(t, f.db, &model.Course{}, c1.ID))
	assert.False(t, testdb.Exists(t, f.db, &model.CourseRequirement{}, req.ID))
	assert.False(t, testdb.Exists(t, f.db, &model.UserCourse{}, enr.ID))
	assert.True(t, testdb.Exists(t, f.db, &model.UserCourse{}, keptEnr.ID))
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	c1 := f.catalog.Course(fac.ID, 1)
	c2 := f.catalog.Course(fac.ID, 1)
	desired := []string{c2.ID, "ghost"}

	first, err := f.engine.Reconcile(ctx, consistency.Faculty, fac.ID, desired)
	require.NoError(t, err)
	assert.Equal(t, []string{c1.ID}, first.Unlinked)

	second, err := f.engine.Reconcile(ctx, consistency.Faculty, fac.ID, desired)
	require.NoError(t, err)
	assert.Empty(t, second.Linked)
	assert.Empty(t, second.Unlinked)
	assert.Equal(t, []string{c2.ID}, second.Kept)
	assert.Zero(t, second.OrphansDeleted.Total())
	assert.False(t, second.Changed())
}

func TestReconcileEmptyDesiredRemovesEverything(t *testing.T) {
	f := newFixture(t)
	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	f.catalog.Course(fac.ID, 1)
	f.catalog.Course(fac.ID, 1)

	res, err := f.engine.Reconcile(context.Background(), consistency.Faculty, fac.ID, nil)
	require.NoError(t, err)

	assert.Len(t, res.Unlinked, 2)
	assert.EqualValues(t, 2, res.OrphansDeleted[consistency.Course])
	assert.Empty(t, linkedCourses(t, f, fac.ID))
	assert.True(t, testdb.Exists(t, f.db, &model.Faculty{}, fac.ID))
}

func TestReconcileCurriculumFaculties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cur := f.catalog.Curriculum()
	other := f.catalog.Curriculum()
	dropped := f.catalog.Faculty(cur.ID)
	droppedCourse := f.catalog.Course(dropped.ID, 1)
	moved := f.catalog.Faculty(other.ID)

	res, err := f.engine.Reconcile(ctx, consistency.Curriculum, cur.ID, []string{moved.ID})
	require.NoError(t, err)

	assert.Equal(t, []string{moved.ID}, res.Linked)
	assert.Equal(t, []string{dropped.ID}, res.Unlinked)
	assert.EqualValues(t, 1, res.OrphansDeleted[consistency.Faculty])
	assert.EqualValues(t, 1, res.OrphansDeleted[consistency.Course])

	var got model.Faculty
	require.NoError(t, f.db.First(&got, "id = ?", moved.ID).Error)
	assert.Equal(t, cur.ID, got.CurriculumID)
	assert.False(t, testdb.Exists(t, f.db, &model.Course{}, droppedCourse.ID))
}

func TestReconcileRollsBackRelinkWhenOrphanDeleteFails(t *testing.T) {
	f := newFixture(t)
	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	elsewhere := f.catalog.Faculty(cur.ID)
	c1 := f.catalog.Course(fac.ID, 1)
	c3 := f.catalog.Course(elsewhere.ID, 1)
	testdb.FailDeletesOn(t, f.db, "courses", errors.New("lost connection"))

	_, err := f.engine.Reconcile(context.Background(), consistency.Faculty, fac.ID, []string{c3.ID})
	require.Error(t, err)

	assert.Equal(t, []string{c1.ID}, linkedCourses(t, f, fac.ID))
	assert.Equal(t, []string{c3.ID}, linkedCourses(t, f, elsewhere.ID), "relink must be rolled back")
}

func TestReconcileErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx, consistency.Faculty, "missing", []string{"a"})
	assert.ErrorIs(t, err, consistency.ErrNotFound)

	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	course := f.catalog.Course(fac.ID, 1)
	_, err = f.engine.Reconcile(ctx, consistency.Course, course.ID, nil)
	assert.ErrorIs(t, err, consistency.ErrUnknownEntity)
}
