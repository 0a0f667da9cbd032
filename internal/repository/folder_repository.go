package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-console-api/internal/models"
)

// FolderRepository manages persistence for folders. Every read filters on
// active = TRUE; soft-deleted rows behave as nonexistent.
type FolderRepository struct {
	db *sqlx.DB
}

// NewFolderRepository constructs a new folder repository.
func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

const folderColumns = "id, name, parent_id, visibility, allow_teacher_ids, active, created_by, created_at, updated_at"

// FindByID returns an active folder by ID.
func (r *FolderRepository) FindByID(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf("SELECT %s FROM folders WHERE id = $1 AND active = TRUE", folderColumns)
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListChildren returns every active folder directly under the parent.
// A nil parent selects root-level folders.
func (r *FolderRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	var folders []models.Folder
	if parentID == nil {
		query := fmt.Sprintf("SELECT %s FROM folders WHERE parent_id IS NULL AND active = TRUE ORDER BY name ASC", folderColumns)
		if err := r.db.SelectContext(ctx, &folders, query); err != nil {
			return nil, fmt.Errorf("list root folders: %w", err)
		}
		return folders, nil
	}
	query := fmt.Sprintf("SELECT %s FROM folders WHERE parent_id = $1 AND active = TRUE ORDER BY name ASC", folderColumns)
	if err := r.db.SelectContext(ctx, &folders, query, *parentID); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// ListChildrenVisible returns active children readable by the teacher:
// public folders plus restricted folders listing the teacher. The filter is
// pushed into the query so listing stays a single round trip.
func (r *FolderRepository) ListChildrenVisible(ctx context.Context, parentID *string, teacherID string) ([]models.Folder, error) {
	visible := fmt.Sprintf("(visibility = '%s' OR $1 = ANY(allow_teacher_ids))", models.VisibilityPublic)
	var folders []models.Folder
	if parentID == nil {
		query := fmt.Sprintf("SELECT %s FROM folders WHERE parent_id IS NULL AND active = TRUE AND %s ORDER BY name ASC", folderColumns, visible)
		if err := r.db.SelectContext(ctx, &folders, query, teacherID); err != nil {
			return nil, fmt.Errorf("list visible root folders: %w", err)
		}
		return folders, nil
	}
	query := fmt.Sprintf("SELECT %s FROM folders WHERE parent_id = $2 AND active = TRUE AND %s ORDER BY name ASC", folderColumns, visible)
	if err := r.db.SelectContext(ctx, &folders, query, teacherID, *parentID); err != nil {
		return nil, fmt.Errorf("list visible folders: %w", err)
	}
	return folders, nil
}

// ListChildIDs returns ids of active folders whose parent is in the given
// set. Used by the cascade delete worklist traversal.
func (r *FolderRepository) ListChildIDs(ctx context.Context, parentIDs []string) ([]string, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var ids []string
	const query = `SELECT id FROM folders WHERE active = TRUE AND parent_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(parentIDs)); err != nil {
		return nil, fmt.Errorf("list child folder ids: %w", err)
	}
	return ids, nil
}

// Create persists a folder record.
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	folder.UpdatedAt = now
	if folder.AllowTeacherIDs == nil {
		folder.AllowTeacherIDs = pq.StringArray{}
	}

	const query = `INSERT INTO folders (id, name, parent_id, visibility, allow_teacher_ids, active, created_by, created_at, updated_at) VALUES (:id, :name, :parent_id, :visibility, :allow_teacher_ids, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, folder); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// Update modifies folder metadata and its visibility descriptor.
func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	folder.UpdatedAt = time.Now().UTC()
	if folder.AllowTeacherIDs == nil {
		folder.AllowTeacherIDs = pq.StringArray{}
	}
	const query = `UPDATE folders SET name = :name, parent_id = :parent_id, visibility = :visibility, allow_teacher_ids = :allow_teacher_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, folder); err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	return nil
}

// DeactivateMany soft-deletes every folder in the id set with one statement.
func (r *FolderRepository) DeactivateMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE folders SET active = FALSE, updated_at = $2 WHERE id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids), time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate folders: %w", err)
	}
	return nil
}
