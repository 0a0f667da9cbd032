package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

type scopeClassRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	HasTeacher(ctx context.Context, classID, teacherID string) (bool, error)
	HasTeacherInCourse(ctx context.Context, courseID, teacherID string) (bool, error)
}

// ScopeService resolves a teacher's transitive access footprint for the
// legacy scope model on materials. Footprints are recomputed from storage
// on every call; class assignment changes take effect immediately.
type ScopeService struct {
	classes scopeClassRepository
	logger  *zap.Logger
}

// NewScopeService constructs a ScopeService.
func NewScopeService(classes scopeClassRepository, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeService{classes: classes, logger: logger}
}

// TeacherAccessIDs returns the ids of all active classes assigned to the
// teacher plus the deduplicated set of courses those classes belong to.
// Unknown teacher ids yield empty sets, not errors.
func (s *ScopeService) TeacherAccessIDs(ctx context.Context, teacherID string) (*models.TeacherAccess, error) {
	classes, err := s.classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher classes")
	}

	access := &models.TeacherAccess{
		ClassIDs:  make([]string, 0, len(classes)),
		CourseIDs: make([]string, 0, len(classes)),
	}
	seenCourses := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		access.ClassIDs = append(access.ClassIDs, class.ID)
		if _, ok := seenCourses[class.CourseID]; ok {
			continue
		}
		seenCourses[class.CourseID] = struct{}{}
		access.CourseIDs = append(access.CourseIDs, class.CourseID)
	}
	return access, nil
}

// HasClassAccess reports whether the teacher is assigned to the class.
// Evaluated directly rather than through the aggregate resolver.
func (s *ScopeService) HasClassAccess(ctx context.Context, teacherID, classID string) (bool, error) {
	ok, err := s.classes.HasTeacher(ctx, classID, teacherID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class access")
	}
	return ok, nil
}

// HasCourseAccess reports whether the teacher is assigned to any active
// class of the course.
func (s *ScopeService) HasCourseAccess(ctx context.Context, teacherID, courseID string) (bool, error) {
	ok, err := s.classes.HasTeacherInCourse(ctx, courseID, teacherID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course access")
	}
	return ok, nil
}

// CanAccessScopedMaterial evaluates a legacy-scoped material against the
// principal. Non-scoped materials are denied here; they belong to the
// visibility evaluator.
func (s *ScopeService) CanAccessScopedMaterial(ctx context.Context, principal models.Principal, material *models.Material) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}
	if material == nil || !material.Active || material.Scope == nil {
		return false, nil
	}
	switch *material.Scope {
	case models.ScopePublic:
		return true, nil
	case models.ScopeCourse:
		if material.CourseID == nil {
			return false, nil
		}
		return s.HasCourseAccess(ctx, principal.ID, *material.CourseID)
	case models.ScopeClass:
		if material.ClassID == nil {
			return false, nil
		}
		return s.HasClassAccess(ctx, principal.ID, *material.ClassID)
	default:
		return false, nil
	}
}
