package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

type mockClassRepo struct {
	classes     map[string]*models.Class
	listResult  []models.Class
	listTotal   int
	created     *models.Class
	updated     *models.Class
	deactivated []string
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = "generated"
	m.created = class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.updated = class
	return nil
}

func (m *mockClassRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
	calls   int
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	m.calls++
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

func newClassService(repo *mockClassRepo, courses *mockCourseReader) *ClassService {
	return NewClassService(repo, courses, validator.New(), zap.NewNop())
}

func TestClassCreateDeduplicatesTeachers(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{}}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": {ID: "course-1", Active: true}}}
	svc := newClassService(repo, courses)

	class, err := svc.Create(context.Background(), CreateClassRequest{
		CourseID:   "course-1",
		Name:       "  Grade 10-A  ",
		TeacherIDs: []string{"t-1", "t-1", " t-2 ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Grade 10-A", class.Name)
	assert.Equal(t, []string{"t-1", "t-2"}, []string(class.TeacherIDs))
	assert.True(t, class.Active)
}

func TestClassCreateUnknownCourse(t *testing.T) {
	svc := newClassService(&mockClassRepo{}, &mockCourseReader{courses: map[string]*models.Course{}})

	_, err := svc.Create(context.Background(), CreateClassRequest{CourseID: "missing", Name: "Grade 10-A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassUpdateRevalidatesCourseOnlyWhenChanged(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c-1": {ID: "c-1", CourseID: "course-1", Name: "Grade 10-A", Active: true},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Active: true},
		"course-2": {ID: "course-2", Active: true},
	}}
	svc := newClassService(repo, courses)

	_, err := svc.Update(context.Background(), "c-1", UpdateClassRequest{CourseID: "course-1", Name: "Grade 10-A"})
	require.NoError(t, err)
	assert.Equal(t, 0, courses.calls)

	class, err := svc.Update(context.Background(), "c-1", UpdateClassRequest{CourseID: "course-2", Name: "Grade 10-A"})
	require.NoError(t, err)
	assert.Equal(t, 1, courses.calls)
	assert.Equal(t, "course-2", class.CourseID)
}

func TestClassGetUnknown(t *testing.T) {
	svc := newClassService(&mockClassRepo{classes: map[string]*models.Class{}}, &mockCourseReader{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassListPaginationDefaults(t *testing.T) {
	repo := &mockClassRepo{listResult: []models.Class{{ID: "c-1"}}, listTotal: 41}
	svc := newClassService(repo, &mockCourseReader{})

	_, pagination, err := svc.List(context.Background(), models.ClassFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}

func TestClassDelete(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c-1": {ID: "c-1", CourseID: "course-1", Active: true},
	}}
	svc := newClassService(repo, &mockCourseReader{})

	require.NoError(t, svc.Delete(context.Background(), "c-1"))
	assert.Equal(t, []string{"c-1"}, repo.deactivated)
}
