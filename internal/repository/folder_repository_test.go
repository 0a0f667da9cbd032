package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-console-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func folderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "parent_id", "visibility", "allow_teacher_ids", "active", "created_by", "created_at", "updated_at"})
}

func TestFolderRepositoryFindByIDActiveOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFolderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, parent_id, visibility, allow_teacher_ids, active, created_by, created_at, updated_at FROM folders WHERE id = $1 AND active = TRUE")).
		WithArgs("f-1").
		WillReturnRows(folderRows().AddRow("f-1", "Docs", nil, "PUBLIC", "{}", true, nil, time.Now(), time.Now()))

	folder, err := repo.FindByID(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", folder.Name)
	assert.Equal(t, models.VisibilityPublic, folder.Visibility)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryListChildrenVisible(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFolderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM folders WHERE parent_id = $2 AND active = TRUE AND (visibility = 'PUBLIC' OR $1 = ANY(allow_teacher_ids)) ORDER BY name ASC")).
		WithArgs("t-1", "parent-1").
		WillReturnRows(folderRows().AddRow("f-1", "Visible", "parent-1", "RESTRICTED", `{t-1}`, true, nil, time.Now(), time.Now()))

	folders, err := repo.ListChildrenVisible(context.Background(), strPtrRepo("parent-1"), "t-1")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "Visible", folders[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryListChildrenRoot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFolderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM folders WHERE parent_id IS NULL AND active = TRUE ORDER BY name ASC")).
		WillReturnRows(folderRows().AddRow("f-1", "Root A", nil, "PUBLIC", "{}", true, nil, time.Now(), time.Now()))

	folders, err := repo.ListChildren(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryListChildIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFolderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM folders WHERE active = TRUE AND parent_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("child-a").AddRow("child-b"))

	ids, err := repo.ListChildIDs(context.Background(), []string{"root"})
	require.NoError(t, err)
	assert.Equal(t, []string{"child-a", "child-b"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryListChildIDsEmptyInputSkipsQuery(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFolderRepository(db)

	ids, err := repo.ListChildIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFolderRepository(db)

	mock.ExpectExec("INSERT INTO folders").
		WillReturnResult(sqlmock.NewResult(1, 1))

	folder := &models.Folder{Name: "Docs", Visibility: models.VisibilityPublic, Active: true}
	require.NoError(t, repo.Create(context.Background(), folder))
	assert.NotEmpty(t, folder.ID)
	assert.NotNil(t, folder.AllowTeacherIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryDeactivateMany(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFolderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE folders SET active = FALSE, updated_at = $2 WHERE id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeactivateMany(context.Background(), []string{"a", "b", "c"}))
	assert.NoError(t, mock.ExpectationsWereMet())

	// Empty id set is a no-op.
	require.NoError(t, repo.DeactivateMany(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtrRepo(s string) *string {
	return &s
}
