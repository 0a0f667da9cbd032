package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

type mockActivityRepo struct {
	created    []*models.ActivityLog
	createErr  error
	items      []models.ActivityLog
	total      int
	listErr    error
	lastFilter models.ActivityFilter
}

func (m *mockActivityRepo) Create(ctx context.Context, log *models.ActivityLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, log)
	return nil
}

func (m *mockActivityRepo) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error) {
	m.lastFilter = filter
	return m.items, m.total, m.listErr
}

func newActivityService(repo *mockActivityRepo) *ActivityService {
	// Queue deliberately not started: Record falls back to the synchronous
	// write, which keeps these tests deterministic.
	return NewActivityService(repo, zap.NewNop(), ActivityQueueConfig{})
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestActivityRecordSnapshotsUser(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := newActivityService(repo)

	meta := models.RequestMeta{
		UserID:    "u-1",
		UserEmail: "teacher@example.com",
		UserRole:  models.RoleTeacher,
		IP:        "10.0.0.7",
		UserAgent: chromeUA,
		Path:      "/api/v1/materials/m-1/preview",
		Method:    "GET",
	}
	log, err := svc.Record(context.Background(), meta, models.ActivityActionMaterialView, models.ActivityExtra{
		MaterialID: strPtr("m-1"),
		Meta:       map[string]interface{}{"title": "Notes"},
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	assert.NotEmpty(t, log.ID)
	assert.Equal(t, "u-1", log.UserID)
	assert.Equal(t, "teacher@example.com", log.UserEmail)
	assert.Equal(t, models.RoleTeacher, log.UserRole)
	assert.Equal(t, models.ActivityActionMaterialView, log.Action)
	require.NotNil(t, log.MaterialID)
	assert.Equal(t, "m-1", *log.MaterialID)
	assert.Equal(t, "10.0.0.7", log.IPAddress)
	assert.Equal(t, "Chrome", log.Browser)
	assert.NotEmpty(t, log.BrowserVersion)
	assert.NotEmpty(t, log.OS)
	assert.Contains(t, string(log.Meta), "Notes")
	assert.False(t, log.CreatedAt.IsZero())
}

func TestActivityRecordEmptyUserAgent(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := newActivityService(repo)

	log, err := svc.Record(context.Background(), models.RequestMeta{UserID: "u-1"}, models.ActivityActionLogin, models.ActivityExtra{})
	require.NoError(t, err)
	assert.Empty(t, log.Browser)
	assert.Empty(t, log.BrowserVersion)
	assert.Empty(t, log.OS)
	assert.Empty(t, log.Device)
}

func TestActivityRecordRejectsUnknownAction(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := newActivityService(repo)

	_, err := svc.Record(context.Background(), models.RequestMeta{UserID: "u-1"}, "PASSWORD_CHANGE", models.ActivityExtra{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestActivityRecordSynchronousFallbackError(t *testing.T) {
	repo := &mockActivityRepo{createErr: errors.New("insert failed")}
	svc := newActivityService(repo)

	_, err := svc.Record(context.Background(), models.RequestMeta{UserID: "u-1"}, models.ActivityActionLogin, models.ActivityExtra{})
	require.Error(t, err)
}

func TestActivityListClampsLimit(t *testing.T) {
	repo := &mockActivityRepo{items: []models.ActivityLog{}, total: 0}
	svc := newActivityService(repo)

	cases := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"defaults", 0, 0, 1, 30},
		{"negative page", -3, 10, 1, 10},
		{"limit above maximum", 1, 999, 1, 200},
		{"limit at maximum", 2, 200, 2, 200},
		{"limit of one", 1, 1, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := svc.List(context.Background(), models.ActivityFilter{Page: tc.page, Limit: tc.limit})
			require.NoError(t, err)
			assert.Equal(t, tc.wantPage, page.Page)
			assert.Equal(t, tc.wantLimit, page.Limit)
			assert.Equal(t, tc.wantLimit, repo.lastFilter.Limit)
		})
	}
}

func TestActivityListReportsFilteredTotal(t *testing.T) {
	repo := &mockActivityRepo{
		items: []models.ActivityLog{{ID: "l-1"}, {ID: "l-2"}},
		total: 57,
	}
	svc := newActivityService(repo)

	page, err := svc.List(context.Background(), models.ActivityFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 57, page.Total)
	assert.Len(t, page.Items, 2)
}

func TestActivityExportCSV(t *testing.T) {
	repo := &mockActivityRepo{items: []models.ActivityLog{
		{UserEmail: "teacher@example.com", UserRole: models.RoleTeacher, Action: models.ActivityActionLogin, IPAddress: "10.0.0.7"},
	}}
	svc := newActivityService(repo)

	payload, contentType, err := svc.Export(context.Background(), models.ActivityFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Time,User,Role,Action,Material,IP,Browser,OS"))
	assert.Contains(t, body, "teacher@example.com")
	assert.Contains(t, body, models.ActivityActionLogin)
}

func TestActivityExportDefaultsToCSV(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{})

	_, contentType, err := svc.Export(context.Background(), models.ActivityFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
}

func TestActivityExportPDF(t *testing.T) {
	repo := &mockActivityRepo{items: []models.ActivityLog{
		{UserEmail: "teacher@example.com", Action: models.ActivityActionMaterialView},
	}}
	svc := newActivityService(repo)

	payload, contentType, err := svc.Export(context.Background(), models.ActivityFilter{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestActivityExportUnsupportedFormat(t *testing.T) {
	svc := newActivityService(&mockActivityRepo{})

	_, _, err := svc.Export(context.Background(), models.ActivityFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestActivityExportCapsPageSize(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := NewActivityService(repo, zap.NewNop(), ActivityQueueConfig{ExportLimit: 500})

	_, _, err := svc.Export(context.Background(), models.ActivityFilter{Page: 7, Limit: 5}, "csv")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 500, repo.lastFilter.Limit)
}
