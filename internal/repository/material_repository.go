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

// MaterialRepository manages persistence for materials. Every read filters
// on active = TRUE.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs a new material repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

const materialColumns = "id, title, description, file_url, mime_type, folder_id, visibility, allow_teacher_ids, scope, course_id, class_id, active, created_by, created_at, updated_at"

// FindByID returns an active material by ID.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.Material, error) {
	query := fmt.Sprintf("SELECT %s FROM materials WHERE id = $1 AND active = TRUE", materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// ListByFolder returns every active material inside the folder. A nil
// folder selects root-level materials.
func (r *MaterialRepository) ListByFolder(ctx context.Context, folderID *string) ([]models.Material, error) {
	var materials []models.Material
	if folderID == nil {
		query := fmt.Sprintf("SELECT %s FROM materials WHERE folder_id IS NULL AND scope IS NULL AND active = TRUE ORDER BY title ASC", materialColumns)
		if err := r.db.SelectContext(ctx, &materials, query); err != nil {
			return nil, fmt.Errorf("list root materials: %w", err)
		}
		return materials, nil
	}
	query := fmt.Sprintf("SELECT %s FROM materials WHERE folder_id = $1 AND active = TRUE ORDER BY title ASC", materialColumns)
	if err := r.db.SelectContext(ctx, &materials, query, *folderID); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// ListByFolderVisible returns active materials in the folder readable by
// the teacher, filtered in a single query: public materials plus restricted
// materials listing the teacher.
func (r *MaterialRepository) ListByFolderVisible(ctx context.Context, folderID *string, teacherID string) ([]models.Material, error) {
	visible := fmt.Sprintf("(visibility = '%s' OR $1 = ANY(allow_teacher_ids))", models.VisibilityPublic)
	var materials []models.Material
	if folderID == nil {
		query := fmt.Sprintf("SELECT %s FROM materials WHERE folder_id IS NULL AND scope IS NULL AND active = TRUE AND %s ORDER BY title ASC", materialColumns, visible)
		if err := r.db.SelectContext(ctx, &materials, query, teacherID); err != nil {
			return nil, fmt.Errorf("list visible root materials: %w", err)
		}
		return materials, nil
	}
	query := fmt.Sprintf("SELECT %s FROM materials WHERE folder_id = $2 AND active = TRUE AND %s ORDER BY title ASC", materialColumns, visible)
	if err := r.db.SelectContext(ctx, &materials, query, teacherID, *folderID); err != nil {
		return nil, fmt.Errorf("list visible materials: %w", err)
	}
	return materials, nil
}

// ListScoped returns active legacy-scoped materials visible under the given
// access footprint: public scope, or course/class scope matching the sets.
func (r *MaterialRepository) ListScoped(ctx context.Context, courseIDs, classIDs []string) ([]models.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE active = TRUE AND scope IS NOT NULL AND (scope = '%s' OR (scope = '%s' AND course_id = ANY($1)) OR (scope = '%s' AND class_id = ANY($2))) ORDER BY title ASC`,
		materialColumns, models.ScopePublic, models.ScopeCourse, models.ScopeClass)
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query, pq.Array(courseIDs), pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("list scoped materials: %w", err)
	}
	return materials, nil
}

// ListAllScoped returns every active legacy-scoped material, unfiltered.
func (r *MaterialRepository) ListAllScoped(ctx context.Context) ([]models.Material, error) {
	query := fmt.Sprintf("SELECT %s FROM materials WHERE active = TRUE AND scope IS NOT NULL ORDER BY title ASC", materialColumns)
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query); err != nil {
		return nil, fmt.Errorf("list all scoped materials: %w", err)
	}
	return materials, nil
}

// Create persists a material record.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if material.CreatedAt.IsZero() {
		material.CreatedAt = now
	}
	material.UpdatedAt = now
	if material.AllowTeacherIDs == nil {
		material.AllowTeacherIDs = pq.StringArray{}
	}

	const query = `INSERT INTO materials (id, title, description, file_url, mime_type, folder_id, visibility, allow_teacher_ids, scope, course_id, class_id, active, created_by, created_at, updated_at) VALUES (:id, :title, :description, :file_url, :mime_type, :folder_id, :visibility, :allow_teacher_ids, :scope, :course_id, :class_id, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Update modifies material metadata.
func (r *MaterialRepository) Update(ctx context.Context, material *models.Material) error {
	material.UpdatedAt = time.Now().UTC()
	const query = `UPDATE materials SET title = :title, description = :description, file_url = :file_url, mime_type = :mime_type, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

// UpdateVisibility patches the visibility descriptor, letting a material
// diverge from the permission copied off its folder at creation time.
func (r *MaterialRepository) UpdateVisibility(ctx context.Context, id string, visibility models.Visibility, allowTeacherIDs []string) error {
	if allowTeacherIDs == nil {
		allowTeacherIDs = []string{}
	}
	const query = `UPDATE materials SET visibility = $2, allow_teacher_ids = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, visibility, pq.Array(allowTeacherIDs), time.Now().UTC()); err != nil {
		return fmt.Errorf("update material visibility: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a material.
func (r *MaterialRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE materials SET active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate material: %w", err)
	}
	return nil
}

// DeactivateByFolderIDs soft-deletes every active material directly inside
// any of the folders, as one bulk statement.
func (r *MaterialRepository) DeactivateByFolderIDs(ctx context.Context, folderIDs []string) error {
	if len(folderIDs) == 0 {
		return nil
	}
	const query = `UPDATE materials SET active = FALSE, updated_at = $2 WHERE active = TRUE AND folder_id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(folderIDs), time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate folder materials: %w", err)
	}
	return nil
}

// CountActive returns the number of active materials.
func (r *MaterialRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM materials WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return count, nil
}
