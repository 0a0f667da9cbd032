package models

import (
	"time"

	"github.com/lib/pq"
)

// Visibility controls who can read a folder or material.
type Visibility string

const (
	// VisibilityPublic makes the resource readable by every active user.
	VisibilityPublic Visibility = "PUBLIC"
	// VisibilityRestricted limits reads to the allow list plus admins.
	VisibilityRestricted Visibility = "RESTRICTED"
)

// Folder is a node in the material tree. A nil ParentID marks a root
// folder. Restricted folders carry an explicit teacher allow list.
type Folder struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	ParentID        *string        `db:"parent_id" json:"parent_id,omitempty"`
	Visibility      Visibility     `db:"visibility" json:"visibility"`
	AllowTeacherIDs pq.StringArray `db:"allow_teacher_ids" json:"allow_teacher_ids"`
	Active          bool           `db:"active" json:"active"`
	CreatedBy       *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// AllowsTeacher reports whether the teacher id appears in the allow list.
func (f *Folder) AllowsTeacher(teacherID string) bool {
	for _, id := range f.AllowTeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}
