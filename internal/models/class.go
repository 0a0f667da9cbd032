package models

import (
	"time"

	"github.com/lib/pq"
)

// Class belongs to exactly one course and carries the set of assigned
// teacher ids. Membership in TeacherIDs is the teacher's access footprint.
type Class struct {
	ID         string         `db:"id" json:"id"`
	CourseID   string         `db:"course_id" json:"course_id"`
	Name       string         `db:"name" json:"name"`
	TeacherIDs pq.StringArray `db:"teacher_ids" json:"teacher_ids"`
	Active     bool           `db:"active" json:"active"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// HasTeacher reports whether the teacher id is assigned to the class.
func (c *Class) HasTeacher(teacherID string) bool {
	for _, id := range c.TeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	CourseID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TeacherAccess is a teacher's transitive visibility footprint under the
// legacy scope model: the classes they are assigned to plus the courses
// those classes belong to.
type TeacherAccess struct {
	ClassIDs  []string `json:"class_ids"`
	CourseIDs []string `json:"course_ids"`
}
