package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
)

type mockAccessFolderRepo struct {
	folders     map[string]*models.Folder
	findErr     error
	children    []models.Folder
	visible     []models.Folder
	listErr     error
	visibleArgs struct {
		parentID  *string
		teacherID string
	}
}

func (m *mockAccessFolderRepo) FindByID(ctx context.Context, id string) (*models.Folder, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	folder, ok := m.folders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return folder, nil
}

func (m *mockAccessFolderRepo) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	return m.children, m.listErr
}

func (m *mockAccessFolderRepo) ListChildrenVisible(ctx context.Context, parentID *string, teacherID string) ([]models.Folder, error) {
	m.visibleArgs.parentID = parentID
	m.visibleArgs.teacherID = teacherID
	return m.visible, m.listErr
}

type mockAccessMaterialRepo struct {
	materials map[string]*models.Material
	findErr   error
	byFolder  []models.Material
	visible   []models.Material
	listErr   error
}

func (m *mockAccessMaterialRepo) FindByID(ctx context.Context, id string) (*models.Material, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	material, ok := m.materials[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return material, nil
}

func (m *mockAccessMaterialRepo) ListByFolder(ctx context.Context, folderID *string) ([]models.Material, error) {
	return m.byFolder, m.listErr
}

func (m *mockAccessMaterialRepo) ListByFolderVisible(ctx context.Context, folderID *string, teacherID string) ([]models.Material, error) {
	return m.visible, m.listErr
}

func strPtr(s string) *string {
	return &s
}

func TestCanAccessFolderRootAlwaysReadable(t *testing.T) {
	svc := NewAccessService(&mockAccessFolderRepo{}, &mockAccessMaterialRepo{}, zap.NewNop())

	ok, err := svc.CanAccessFolder(context.Background(), models.Principal{ID: "t-1", Role: models.RoleTeacher}, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccessFolderAdminBypass(t *testing.T) {
	folders := &mockAccessFolderRepo{folders: map[string]*models.Folder{}}
	svc := NewAccessService(folders, &mockAccessMaterialRepo{}, zap.NewNop())

	// Admin is granted even when the folder does not exist.
	ok, err := svc.CanAccessFolder(context.Background(), models.Principal{ID: "a-1", Role: models.RoleAdmin}, strPtr("missing"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccessFolderVisibility(t *testing.T) {
	folders := &mockAccessFolderRepo{folders: map[string]*models.Folder{
		"pub":        {ID: "pub", Visibility: models.VisibilityPublic, Active: true},
		"restricted": {ID: "restricted", Visibility: models.VisibilityRestricted, AllowTeacherIDs: []string{"t-1", "t-2"}, Active: true},
		"inactive":   {ID: "inactive", Visibility: models.VisibilityPublic, Active: false},
	}}
	svc := NewAccessService(folders, &mockAccessMaterialRepo{}, zap.NewNop())
	teacher := models.Principal{ID: "t-2", Role: models.RoleTeacher}
	outsider := models.Principal{ID: "t-9", Role: models.RoleTeacher}

	cases := []struct {
		name      string
		principal models.Principal
		folderID  string
		want      bool
	}{
		{"public grants any teacher", outsider, "pub", true},
		{"restricted grants listed teacher", teacher, "restricted", true},
		{"restricted denies unlisted teacher", outsider, "restricted", false},
		{"inactive folder denies", teacher, "inactive", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := svc.CanAccessFolder(context.Background(), tc.principal, strPtr(tc.folderID))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestCanAccessFolderMissingIsDenialNotError(t *testing.T) {
	folders := &mockAccessFolderRepo{folders: map[string]*models.Folder{}}
	svc := NewAccessService(folders, &mockAccessMaterialRepo{}, zap.NewNop())

	ok, err := svc.CanAccessFolder(context.Background(), models.Principal{ID: "t-1", Role: models.RoleTeacher}, strPtr("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessFolderInfrastructureErrorPropagates(t *testing.T) {
	folders := &mockAccessFolderRepo{findErr: errors.New("connection reset")}
	svc := NewAccessService(folders, &mockAccessMaterialRepo{}, zap.NewNop())

	_, err := svc.CanAccessFolder(context.Background(), models.Principal{ID: "t-1", Role: models.RoleTeacher}, strPtr("f-1"))
	require.Error(t, err)
}

func TestCanViewMaterialFolderFallback(t *testing.T) {
	folders := &mockAccessFolderRepo{folders: map[string]*models.Folder{
		"open":   {ID: "open", Visibility: models.VisibilityPublic, Active: true},
		"closed": {ID: "closed", Visibility: models.VisibilityRestricted, AllowTeacherIDs: []string{"t-other"}, Active: true},
	}}
	svc := NewAccessService(folders, &mockAccessMaterialRepo{}, zap.NewNop())
	teacher := models.Principal{ID: "t-1", Role: models.RoleTeacher}

	// Material denies on its own descriptor but the folder grants: broader wins.
	granted := &models.Material{ID: "m-1", Visibility: models.VisibilityRestricted, FolderID: strPtr("open"), Active: true}
	ok, err := svc.CanViewMaterial(context.Background(), teacher, granted)
	require.NoError(t, err)
	assert.True(t, ok)

	// Both the material and the folder deny.
	denied := &models.Material{ID: "m-2", Visibility: models.VisibilityRestricted, FolderID: strPtr("closed"), Active: true}
	ok, err = svc.CanViewMaterial(context.Background(), teacher, denied)
	require.NoError(t, err)
	assert.False(t, ok)

	// Material grants directly through its own allow list; folder never consulted.
	direct := &models.Material{ID: "m-3", Visibility: models.VisibilityRestricted, AllowTeacherIDs: []string{"t-1"}, FolderID: strPtr("closed"), Active: true}
	ok, err = svc.CanViewMaterial(context.Background(), teacher, direct)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanViewMaterialRootRestrictedDenies(t *testing.T) {
	svc := NewAccessService(&mockAccessFolderRepo{}, &mockAccessMaterialRepo{}, zap.NewNop())
	teacher := models.Principal{ID: "t-1", Role: models.RoleTeacher}

	material := &models.Material{ID: "m-1", Visibility: models.VisibilityRestricted, Active: true}
	ok, err := svc.CanViewMaterial(context.Background(), teacher, material)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanViewMaterialInactiveDenies(t *testing.T) {
	svc := NewAccessService(&mockAccessFolderRepo{}, &mockAccessMaterialRepo{}, zap.NewNop())

	material := &models.Material{ID: "m-1", Visibility: models.VisibilityPublic, Active: false}
	ok, err := svc.CanViewMaterial(context.Background(), models.Principal{ID: "t-1", Role: models.RoleTeacher}, material)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccessMaterialMissingIsDenialNotError(t *testing.T) {
	materials := &mockAccessMaterialRepo{materials: map[string]*models.Material{}}
	svc := NewAccessService(&mockAccessFolderRepo{}, materials, zap.NewNop())

	ok, err := svc.CanAccessMaterial(context.Background(), models.Principal{ID: "t-1", Role: models.RoleTeacher}, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListVisibleFoldersSelectsQueryByRole(t *testing.T) {
	folders := &mockAccessFolderRepo{
		children: []models.Folder{{ID: "all-1"}, {ID: "all-2"}},
		visible:  []models.Folder{{ID: "vis-1"}},
	}
	svc := NewAccessService(folders, &mockAccessMaterialRepo{}, zap.NewNop())

	adminList, err := svc.ListVisibleFolders(context.Background(), models.Principal{ID: "a-1", Role: models.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.Len(t, adminList, 2)

	teacherList, err := svc.ListVisibleFolders(context.Background(), models.Principal{ID: "t-1", Role: models.RoleTeacher}, nil)
	require.NoError(t, err)
	assert.Len(t, teacherList, 1)
	assert.Equal(t, "t-1", folders.visibleArgs.teacherID)
}

func TestListVisibleMaterialsNeverNil(t *testing.T) {
	svc := NewAccessService(&mockAccessFolderRepo{}, &mockAccessMaterialRepo{}, zap.NewNop())

	materials, err := svc.ListVisibleMaterials(context.Background(), models.Principal{ID: "t-1", Role: models.RoleTeacher}, nil)
	require.NoError(t, err)
	assert.NotNil(t, materials)
	assert.Empty(t, materials)
}
