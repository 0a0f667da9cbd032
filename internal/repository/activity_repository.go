package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-console-api/internal/models"
)

// ActivityRepository appends and queries the append-only activity log.
// Records are never updated or deleted.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs a new activity repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = "id, user_id, user_role, user_email, action, material_id, folder_id, ip_address, user_agent, browser, browser_version, os, device, referer, path, method, meta, created_at"

// Create appends an activity record.
func (r *ActivityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO activity_logs (id, user_id, user_role, user_email, action, material_id, folder_id, ip_address, user_agent, browser, browser_version, os, device, referer, path, method, meta, created_at) VALUES (:id, :user_id, :user_role, :user_email, :action, :material_id, :folder_id, :ip_address, :user_agent, :browser, :browser_version, :os, :device, :referer, :path, :method, :meta, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// List returns records matching the filter, newest first, plus the filtered
// count irrespective of page. The keyword matches case-insensitively across
// user email, IP, user agent and the meta title, as a logical OR.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error) {
	base := "FROM activity_logs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.MaterialID != "" {
		conditions = append(conditions, fmt.Sprintf("material_id = $%d", len(args)+1))
		args = append(args, filter.MaterialID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Keyword != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(user_email ILIKE $%d OR ip_address ILIKE $%d OR user_agent ILIKE $%d OR meta->>'title' ILIKE $%d)", n, n, n, n))
		args = append(args, "%"+filter.Keyword+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 30
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", activityColumns, base, limit, offset)
	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	return logs, total, nil
}

// CountByActionSince counts records for one action at or after the cutoff.
func (r *ActivityRepository) CountByActionSince(ctx context.Context, action string, since time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM activity_logs WHERE action = $1 AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, action, since); err != nil {
		return 0, fmt.Errorf("count activity logs by action: %w", err)
	}
	return count, nil
}
