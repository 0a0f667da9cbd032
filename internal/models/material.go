package models

import (
	"time"

	"github.com/lib/pq"
)

// MaterialScope is the legacy audience marker carried by materials created
// before folders existed. New materials never set it.
type MaterialScope string

const (
	ScopePublic MaterialScope = "PUBLIC"
	ScopeCourse MaterialScope = "COURSE"
	ScopeClass  MaterialScope = "CLASS"
)

// Material is a file entry. Folder materials carry a visibility descriptor
// copied from their folder at creation time; legacy materials carry a scope
// plus the course or class it targets.
type Material struct {
	ID              string         `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Description     *string        `db:"description" json:"description,omitempty"`
	FileURL         string         `db:"file_url" json:"file_url"`
	MimeType        string         `db:"mime_type" json:"mime_type"`
	FolderID        *string        `db:"folder_id" json:"folder_id,omitempty"`
	Visibility      Visibility     `db:"visibility" json:"visibility"`
	AllowTeacherIDs pq.StringArray `db:"allow_teacher_ids" json:"allow_teacher_ids"`
	Scope           *MaterialScope `db:"scope" json:"scope,omitempty"`
	CourseID        *string        `db:"course_id" json:"course_id,omitempty"`
	ClassID         *string        `db:"class_id" json:"class_id,omitempty"`
	Active          bool           `db:"active" json:"active"`
	CreatedBy       *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// IsScoped reports whether the material uses the legacy scope model.
func (m *Material) IsScoped() bool {
	return m.Scope != nil
}

// AllowsTeacher reports whether the teacher id appears in the allow list.
func (m *Material) AllowsTeacher(teacherID string) bool {
	for _, id := range m.AllowTeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}

// MaterialPreview is a short-lived signed link to a material's file.
type MaterialPreview struct {
	MaterialID string    `json:"material_id"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}
