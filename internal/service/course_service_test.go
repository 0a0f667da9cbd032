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

type mockCourseRepo struct {
	courses     map[string]*models.Course
	listResult  []models.Course
	listTotal   int
	created     *models.Course
	deactivated []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = "generated"
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	return nil
}

func (m *mockCourseRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func TestCourseCreateTrimsName(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	course, err := svc.Create(context.Background(), CreateCourseRequest{Name: "  Mathematics  "})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", course.Name)
	assert.True(t, course.Active)
}

func TestCourseCreateRejectsEmptyName(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateCourseRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseGetUnknownIsNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{courses: map[string]*models.Course{}}, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseListPaginationDefaults(t *testing.T) {
	repo := &mockCourseRepo{listResult: []models.Course{{ID: "c-1"}}, listTotal: 7}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	_, pagination, err := svc.List(context.Background(), models.CourseFilter{Page: -1, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 7, pagination.TotalCount)
}

func TestCourseDelete(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{"c-1": {ID: "c-1", Active: true}}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "c-1"))
	assert.Equal(t, []string{"c-1"}, repo.deactivated)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
