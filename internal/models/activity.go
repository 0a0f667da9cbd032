package models

import "time"

// ActivityAction constants form the closed set of audited actions.
// Extending this set is a deliberate schema change.
const (
	ActivityActionLogin        = "LOGIN"
	ActivityActionMaterialView = "MATERIAL_VIEW"
)

// ActivityLog is an immutable audit record. User role and email are
// denormalized snapshots taken at write time; later user edits never
// retroactively alter historical records.
type ActivityLog struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	UserRole       UserRole  `db:"user_role" json:"user_role"`
	UserEmail      string    `db:"user_email" json:"user_email"`
	Action         string    `db:"action" json:"action"`
	MaterialID     *string   `db:"material_id" json:"material_id,omitempty"`
	FolderID       *string   `db:"folder_id" json:"folder_id,omitempty"`
	IPAddress      string    `db:"ip_address" json:"ip_address"`
	UserAgent      string    `db:"user_agent" json:"user_agent"`
	Browser        string    `db:"browser" json:"browser"`
	BrowserVersion string    `db:"browser_version" json:"browser_version"`
	OS             string    `db:"os" json:"os"`
	Device         string    `db:"device" json:"device"`
	Referer        string    `db:"referer" json:"referer"`
	Path           string    `db:"path" json:"path"`
	Method         string    `db:"method" json:"method"`
	Meta           []byte    `db:"meta" json:"meta,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// RequestMeta carries the request-derived fields captured on every audit
// record, resolved by the controller layer.
type RequestMeta struct {
	UserID    string
	UserEmail string
	UserRole  UserRole
	IP        string
	UserAgent string
	Referer   string
	Path      string
	Method    string
}

// ActivityExtra holds caller-supplied context merged into the record.
type ActivityExtra struct {
	MaterialID *string
	FolderID   *string
	Meta       map[string]interface{}
}

// ActivityFilter defines the admin query surface over activity logs.
type ActivityFilter struct {
	Action     string
	UserID     string
	MaterialID string
	From       *time.Time
	To         *time.Time
	Keyword    string
	Page       int
	Limit      int
}

// ActivityPage is the paginated listing result.
type ActivityPage struct {
	Items []ActivityLog `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
