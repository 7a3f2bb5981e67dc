package consistency_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/services/consistency"
	"github.com/sahilchouksey/catalog-api/utils/testdb"
)

func TestDeleteSubtreeCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	course := f.catalog.Course(fac.ID, 10)
	other := f.catalog.Course(fac.ID, 10)

	reqs := []string{f.catalog.Requirement(course.ID).ID, f.catalog.Requirement(course.ID).ID}
	var enrollments []string
	for i := 0; i < 3; i++ {
		u := f.catalog.User()
		enrollments = append(enrollments, f.catalog.Enrollment(u.ID, course.ID, model.EnrollmentProcessing).ID)
	}
	student := f.catalog.User()
	reg := f.catalog.Registration(student.ID, course.ID)
	untouched := f.catalog.Enrollment(student.ID, other.ID, model.EnrollmentPending)

	counts, err := f.engine.DeleteSubtree(ctx, consistency.Course, course.ID)
	require.NoError(t, err)

	assert.Equal(t, consistency.Counts{
		consistency.Enrollment:         3,
		consistency.CourseRegistration: 1,
		consistency.CourseRequirement:  2,
		consistency.Course:             1,
	}, counts)

	assert.False(t, testdb.Exists(t, f.db, &model.Course{}, course.ID))
	for _, id := range reqs {
		assert.False(t, testdb.Exists(t, f.db, &model.CourseRequirement{}, id))
	}
	for _, id := range enrollments {
		assert.False(t, testdb.Exists(t, f.db, &model.UserCourse{}, id))
	}
	assert.False(t, testdb.Exists(t, f.db, &model.CourseRegistration{}, reg.ID))

	assert.True(t, testdb.Exists(t, f.db, &model.Course{}, other.ID))
	assert.True(t, testdb.Exists(t, f.db, &model.UserCourse{}, untouched.ID))
	assert.True(t, testdb.Exists(t, f.db, &model.User{}, student.ID), "users are not descendants of courses")

	_, err = f.engine.DeleteSubtree(ctx, consistency.Course, course.ID)
	assert.ErrorIs(t, err, consistency.ErrNotFound)
}

type curriculumTree struct {
	curriculum   *model.Curriculum
	faculties    []string
	courses      []string
	requirements []string
}

// buildCurriculum creates 2 faculties, each with 2 courses of 1 requirement
func buildCurriculum(f *fixture) curriculumTree {
	tree := curriculumTree{curriculum: f.catalog.Curriculum()}
	for i := 0; i < 2; i++ {
		fac := f.catalog.Faculty(tree.curriculum.ID)
		tree.faculties = append(tree.faculties, fac.ID)
		for j := 0; j < 2; j++ {
			c := f.catalog.Course(fac.ID, 5)
			tree.courses = append(tree.courses, c.ID)
			tree.requirements = append(tree.requirements, f.catalog.Requirement(c.ID).ID)
		}
	}
	return tree
}

func TestDeleteSubtreeCurriculum(t *testing.T) {
	f := newFixture(t)
	tree := buildCurriculum(f)
	keep := f.catalog.Curriculum()

	counts, err := f.engine.DeleteSubtree(context.Background(), consistency.Curriculum, tree.curriculum.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 1, counts[consistency.Curriculum])
	assert.EqualValues(t, 2, counts[consistency.Faculty])
	assert.EqualValues(t, 4, counts[consistency.Course])
	assert.EqualValues(t, 4, counts[consistency.CourseRequirement])
	assert.EqualValues(t, 0, counts[consistency.Enrollment])
	assert.EqualValues(t, 0, counts[consistency.CourseRegistration])
	assert.Len(t, counts, 6)

	assert.Zero(t, testdb.Count(t, f.db, &model.Faculty{}))
	assert.Zero(t, testdb.Count(t, f.db, &model.Course{}))
	assert.Zero(t, testdb.Count(t, f.db, &model.CourseRequirement{}))
	assert.True(t, testdb.Exists(t, f.db, &model.Curriculum{}, keep.ID))
}

func TestDeleteSubtreeCurriculumRollsBackOnFacultyFailure(t *testing.T) {
	f := newFixture(t)
	tree := buildCurriculum(f)
	testdb.FailDeletesOn(t, f.db, "faculties", errors.New("disk full"))

	_, err := f.engine.DeleteSubtree(context.Background(), consistency.Curriculum, tree.curriculum.ID)
	require.Error(t, err)
	assert.Equal(t, consistency.KindInternal, consistency.KindOf(err))

	assert.True(t, testdb.Exists(t, f.db, &model.Curriculum{}, tree.curriculum.ID))
	for _, id := range tree.faculties {
		assert.True(t, testdb.Exists(t, f.db, &model.Faculty{}, id))
	}
	for _, id := range tree.courses {
		assert.True(t, testdb.Exists(t, f.db, &model.Course{}, id), "course %s deleted despite rollback", id)
	}
	for _, id := range tree.requirements {
		assert.True(t, testdb.Exists(t, f.db, &model.CourseRequirement{}, id))
	}
}

func TestDeleteSubtreeWithoutDescendants(t *testing.T) {
	f := newFixture(t)
	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)

	counts, err := f.engine.DeleteSubtree(context.Background(), consistency.Faculty, fac.ID)
	require.NoError(t, err)

	assert.Equal(t, consistency.Counts{
		consistency.Enrollment:         0,
		consistency.CourseRegistration: 0,
		consistency.CourseRequirement:  0,
		consistency.Course:             0,
		consistency.Faculty:            1,
	}, counts)
	assert.EqualValues(t, 1, counts.Total())
}

func TestDeleteSubtreeUser(t *testing.T) {
	f := newFixture(t)
	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	course := f.catalog.Course(fac.ID, 3)
	role := f.catalog.Role(model.RoleStudent)

	u := f.catalog.User()
	f.catalog.UserRole(u.ID, role.ID)
	f.catalog.Registration(u.ID, course.ID)
	f.catalog.Enrollment(u.ID, course.ID, model.EnrollmentCompleted)

	counts, err := f.engine.DeleteSubtree(context.Background(), consistency.User, u.ID)
	require.NoError(t, err)

	assert.Equal(t, consistency.Counts{
		consistency.Enrollment:         1,
		consistency.CourseRegistration: 1,
		consistency.UserRole:           1,
		consistency.User:               1,
	}, counts)
	assert.True(t, testdb.Exists(t, f.db, &model.Role{}, role.ID))
	assert.True(t, testdb.Exists(t, f.db, &model.Course{}, course.ID))
}

func TestDeleteSubtreeNotFound(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"missing", "", "   "} {
		_, err := f.engine.DeleteSubtree(context.Background(), consistency.Course, id)
		assert.ErrorIs(t, err, consistency.ErrNotFound, "id %q", id)
	}
}

func TestDeleteSubtreeUnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.DeleteSubtree(context.Background(), consistency.EntityType("school"), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, consistency.ErrUnknownEntity)
	assert.Equal(t, consistency.KindInternal, consistency.KindOf(err))
}

func TestDeleteSubtreeBatchesLargeLevels(t *testing.T) {
	f := newFixture(t)
	cur := f.catalog.Curriculum()
	fac := f.catalog.Faculty(cur.ID)
	course := f.catalog.Course(fac.ID, 0)

	const n = 1200
	reqs := make([]model.CourseRequirement, n)
	for i := range reqs {
		reqs[i] = model.CourseRequirement{ID: testID(i), CourseID: course.ID, Title: "r"}
	}
	require.NoError(t, f.db.CreateInBatches(reqs, 200).Error)

	counts, err := f.engine.DeleteSubtree(context.Background(), consistency.Course, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, counts[consistency.CourseRequirement])
	assert.Zero(t, testdb.Count(t, f.db, &model.CourseRequirement{}))
}

func testID(i int) string {
	return fmt.Sprintf("req-%04d", i)
}

func TestDeleteSubtreeRole(t *testing.T) {
	f := newFixture(t)

	admin := f.catalog.Role(model.RoleAdmin)
	student := f.catalog.Role(model.RoleStudent)
	u := f.catalog.User()
	adminLink := f.catalog.UserRole(u.ID, admin.ID)
	studentLink := f.catalog.UserRole(u.ID, student.ID)

	counts, err := f.engine.DeleteSubtree(context.Background(), consistency.Role, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, consistency.Counts{consistency.UserRole: 1, consistency.Role: 1}, counts)

	assert.False(t, testdb.Exists(t, f.db, &model.UserRole{}, adminLink.ID))
	assert.True(t, testdb.Exists(t, f.db, &model.UserRole{}, studentLink.ID))
	assert.True(t, testdb.Exists(t, f.db, &model.User{}, u.ID))
}
