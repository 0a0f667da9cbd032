package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

type materialRepository interface {
	FindByID(ctx context.Context, id string) (*models.Material, error)
	ListScoped(ctx context.Context, courseIDs, classIDs []string) ([]models.Material, error)
	ListAllScoped(ctx context.Context) ([]models.Material, error)
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, material *models.Material) error
	UpdateVisibility(ctx context.Context, id string, visibility models.Visibility, allowTeacherIDs []string) error
	Deactivate(ctx context.Context, id string) error
}

type materialFolderReader interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
}

type visibilityEvaluator interface {
	CanViewMaterial(ctx context.Context, principal models.Principal, material *models.Material) (bool, error)
}

type scopeEvaluator interface {
	CanAccessScopedMaterial(ctx context.Context, principal models.Principal, material *models.Material) (bool, error)
	TeacherAccessIDs(ctx context.Context, teacherID string) (*models.TeacherAccess, error)
}

type activityRecorder interface {
	Record(ctx context.Context, meta models.RequestMeta, action string, extra models.ActivityExtra) (*models.ActivityLog, error)
}

type previewSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
}

// CreateMaterialRequest represents payload for registering a material.
// Either the folder model or the legacy scope model applies; mixing the
// two on one material is rejected.
type CreateMaterialRequest struct {
	Title       string                `json:"title" validate:"required,max=300"`
	Description *string               `json:"description" validate:"omitempty,max=2000"`
	FileURL     string                `json:"file_url" validate:"required"`
	MimeType    string                `json:"mime_type" validate:"omitempty,max=150"`
	FolderID    *string               `json:"folder_id"`
	Scope       *models.MaterialScope `json:"scope" validate:"omitempty,oneof=PUBLIC COURSE CLASS"`
	CourseID    *string               `json:"course_id"`
	ClassID     *string               `json:"class_id"`
}

// UpdateMaterialRequest represents payload for updating material metadata.
type UpdateMaterialRequest struct {
	Title       string  `json:"title" validate:"required,max=300"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	FileURL     string  `json:"file_url" validate:"required"`
	MimeType    string  `json:"mime_type" validate:"omitempty,max=150"`
}

// UpdateMaterialVisibilityRequest patches the visibility descriptor of a
// folder-model material, letting it diverge from its folder.
type UpdateMaterialVisibilityRequest struct {
	Visibility      models.Visibility `json:"visibility" validate:"required,oneof=PUBLIC RESTRICTED"`
	AllowTeacherIDs []string          `json:"allow_teacher_ids"`
}

// MaterialService orchestrates material lifecycle and the authorized view
// flow that feeds the activity log.
type MaterialService struct {
	repo      materialRepository
	folders   materialFolderReader
	access    visibilityEvaluator
	scope     scopeEvaluator
	activity  activityRecorder
	signer    previewSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs a MaterialService.
func NewMaterialService(repo materialRepository, folders materialFolderReader, access visibilityEvaluator, scope scopeEvaluator, activity activityRecorder, signer previewSigner, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{
		repo:      repo,
		folders:   folders,
		access:    access,
		scope:     scope,
		activity:  activity,
		signer:    signer,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a new material. Folder-model materials copy the
// containing folder's visibility descriptor verbatim at creation time;
// root-level materials default to PUBLIC with an empty allow list.
func (s *MaterialService) Create(ctx context.Context, principal models.Principal, req CreateMaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}

	material := &models.Material{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		FileURL:     strings.TrimSpace(req.FileURL),
		MimeType:    req.MimeType,
		Active:      true,
		CreatedBy:   &principal.ID,
	}

	if req.Scope != nil {
		if req.FolderID != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scoped materials cannot live inside a folder")
		}
		switch *req.Scope {
		case models.ScopeCourse:
			if req.CourseID == nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, "course scope requires course_id")
			}
		case models.ScopeClass:
			if req.ClassID == nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, "class scope requires class_id")
			}
		}
		material.Scope = req.Scope
		material.CourseID = req.CourseID
		material.ClassID = req.ClassID
		material.Visibility = models.VisibilityPublic
	} else {
		if req.CourseID != nil || req.ClassID != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course_id/class_id require a scope")
		}
		material.FolderID = req.FolderID
		material.Visibility = models.VisibilityPublic
		material.AllowTeacherIDs = []string{}
		if req.FolderID != nil {
			folder, err := s.folders.FindByID(ctx, *req.FolderID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
			}
			material.Visibility = folder.Visibility
			material.AllowTeacherIDs = append([]string{}, folder.AllowTeacherIDs...)
		}
	}

	if err := s.repo.Create(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create material")
	}
	return material, nil
}

// Get returns a material after authorizing the principal against whichever
// permission model the material carries.
func (s *MaterialService) Get(ctx context.Context, principal models.Principal, id string) (*models.Material, error) {
	material, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canView(ctx, principal, material)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "material access denied")
	}
	return material, nil
}

// Preview authorizes the view, issues a signed expiring URL, and records a
// MATERIAL_VIEW activity entry. An audit failure is logged and swallowed;
// the preview already prepared for the caller is returned regardless.
func (s *MaterialService) Preview(ctx context.Context, principal models.Principal, meta models.RequestMeta, id string) (*models.MaterialPreview, error) {
	material, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(material.ID, material.FileURL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign preview url")
	}
	preview := &models.MaterialPreview{
		MaterialID: material.ID,
		URL:        fmt.Sprintf("/files/%s?token=%s", material.ID, token),
		ExpiresAt:  expiresAt,
	}

	extra := models.ActivityExtra{
		MaterialID: &material.ID,
		FolderID:   material.FolderID,
		Meta:       map[string]interface{}{"title": material.Title},
	}
	if _, err := s.activity.Record(ctx, meta, models.ActivityActionMaterialView, extra); err != nil {
		s.logger.Warn("failed to record material view", zap.String("material_id", material.ID), zap.Error(err))
	}

	return preview, nil
}

// ListScoped returns legacy-scoped materials visible to the principal:
// everything for admins, the scope-filtered set for teachers.
func (s *MaterialService) ListScoped(ctx context.Context, principal models.Principal) ([]models.Material, error) {
	if principal.IsAdmin() {
		materials, err := s.repo.ListAllScoped(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scoped materials")
		}
		if materials == nil {
			materials = []models.Material{}
		}
		return materials, nil
	}

	access, err := s.scope.TeacherAccessIDs(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	materials, err := s.repo.ListScoped(ctx, access.CourseIDs, access.ClassIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scoped materials")
	}
	if materials == nil {
		materials = []models.Material{}
	}
	return materials, nil
}

// Update modifies material metadata.
func (s *MaterialService) Update(ctx context.Context, id string, req UpdateMaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	material, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	material.Title = strings.TrimSpace(req.Title)
	material.Description = req.Description
	material.FileURL = strings.TrimSpace(req.FileURL)
	material.MimeType = req.MimeType

	if err := s.repo.Update(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material")
	}
	return material, nil
}

// UpdateVisibility patches the visibility descriptor of a folder-model
// material. Legacy-scoped materials have no descriptor to patch.
func (s *MaterialService) UpdateVisibility(ctx context.Context, id string, req UpdateMaterialVisibilityRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visibility payload")
	}
	material, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if material.IsScoped() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scoped materials carry no visibility descriptor")
	}

	allowList := normalizeAllowList(req.Visibility, req.AllowTeacherIDs)
	if err := s.repo.UpdateVisibility(ctx, id, req.Visibility, allowList); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material visibility")
	}
	material.Visibility = req.Visibility
	material.AllowTeacherIDs = allowList
	return material, nil
}

// Delete soft-deletes a material.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate material")
	}
	return nil
}

func (s *MaterialService) load(ctx context.Context, id string) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	return material, nil
}

func (s *MaterialService) canView(ctx context.Context, principal models.Principal, material *models.Material) (bool, error) {
	if material.IsScoped() {
		return s.scope.CanAccessScopedMaterial(ctx, principal, material)
	}
	return s.access.CanViewMaterial(ctx, principal, material)
}
