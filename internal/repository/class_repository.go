package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-console-api/internal/models"
)

// ClassRepository manages persistence for classes. Reads are active-only;
// teacher membership checks lean on the text[] containment operator.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = "id, course_id, name, teacher_ids, active, created_at, updated_at"

// List returns active classes matching filter criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes WHERE active = TRUE"
	var args []interface{}

	if filter.CourseID != "" {
		base += fmt.Sprintf(" AND course_id = $%d", len(args)+1)
		args = append(args, filter.CourseID)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "created_at": true, "updated_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", classColumns, base, sortBy, order, size, offset)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns an active class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = $1 AND active = TRUE", classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListByTeacher returns active classes whose teacher set contains the id.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE active = TRUE AND teacher_ids @> ARRAY[$1]::text[]", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by teacher: %w", err)
	}
	return classes, nil
}

// HasTeacher reports whether the teacher is assigned to the active class.
func (r *ClassRepository) HasTeacher(ctx context.Context, classID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM classes WHERE id = $1 AND active = TRUE AND teacher_ids @> ARRAY[$2]::text[] LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class teacher: %w", err)
	}
	return true, nil
}

// HasTeacherInCourse reports whether the teacher is assigned to any active
// class of the course.
func (r *ClassRepository) HasTeacherInCourse(ctx context.Context, courseID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM classes WHERE course_id = $1 AND active = TRUE AND teacher_ids @> ARRAY[$2]::text[] LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course teacher: %w", err)
	}
	return true, nil
}

// Create persists a class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	if class.TeacherIDs == nil {
		class.TeacherIDs = pq.StringArray{}
	}

	const query = `INSERT INTO classes (id, course_id, name, teacher_ids, active, created_at, updated_at) VALUES (:id, :course_id, :name, :teacher_ids, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies a class record including its teacher set.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	if class.TeacherIDs == nil {
		class.TeacherIDs = pq.StringArray{}
	}
	const query = `UPDATE classes SET course_id = :course_id, name = :name, teacher_ids = :teacher_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a class.
func (r *ClassRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE classes SET active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate class: %w", err)
	}
	return nil
}

// CountActive returns the number of active classes.
func (r *ClassRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM classes WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count classes: %w", err)
	}
	return count, nil
}
