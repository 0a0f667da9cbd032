package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

type accessFolderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
	ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error)
	ListChildrenVisible(ctx context.Context, parentID *string, teacherID string) ([]models.Folder, error)
}

type accessMaterialRepository interface {
	FindByID(ctx context.Context, id string) (*models.Material, error)
	ListByFolder(ctx context.Context, folderID *string) ([]models.Material, error)
	ListByFolderVisible(ctx context.Context, folderID *string, teacherID string) ([]models.Material, error)
}

// AccessService decides read access for folders and materials under the
// allow-list visibility model. Decisions are pure reads: a missing or
// soft-deleted resource is a denial, never an error. Only infrastructure
// failures propagate.
type AccessService struct {
	folders   accessFolderRepository
	materials accessMaterialRepository
	logger    *zap.Logger
}

// NewAccessService constructs an AccessService.
func NewAccessService(folders accessFolderRepository, materials accessMaterialRepository, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{folders: folders, materials: materials, logger: logger}
}

// CanAccessFolder reports whether the principal may read the folder. A nil
// folder id addresses the root, which is always readable. Only the target
// folder's own descriptor is consulted; ancestor permissions are not part
// of the decision.
func (s *AccessService) CanAccessFolder(ctx context.Context, principal models.Principal, folderID *string) (bool, error) {
	if folderID == nil {
		return true, nil
	}
	if principal.IsAdmin() {
		return true, nil
	}

	folder, err := s.folders.FindByID(ctx, *folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}

	return s.folderGrants(folder, principal), nil
}

// CanAccessMaterial reports whether the principal may read the material
// under the visibility model. A material denied by its own descriptor can
// still be granted by its folder's permission; the broader of the two wins.
func (s *AccessService) CanAccessMaterial(ctx context.Context, principal models.Principal, materialID string) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}

	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}

	return s.CanViewMaterial(ctx, principal, material)
}

// CanViewMaterial evaluates an already-loaded material. Exposed so callers
// holding the record avoid a second fetch.
func (s *AccessService) CanViewMaterial(ctx context.Context, principal models.Principal, material *models.Material) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}
	if material == nil || !material.Active {
		return false, nil
	}
	if material.Visibility == models.VisibilityPublic {
		return true, nil
	}
	if material.Visibility == models.VisibilityRestricted && material.AllowsTeacher(principal.ID) {
		return true, nil
	}
	if material.FolderID != nil {
		return s.CanAccessFolder(ctx, principal, material.FolderID)
	}
	return false, nil
}

// ListVisibleFolders returns the active children of the parent readable by
// the principal. Admins see everything; teachers get a single filtered
// query equivalent to per-item evaluation.
func (s *AccessService) ListVisibleFolders(ctx context.Context, principal models.Principal, parentID *string) ([]models.Folder, error) {
	var (
		folders []models.Folder
		err     error
	)
	if principal.IsAdmin() {
		folders, err = s.folders.ListChildren(ctx, parentID)
	} else {
		folders, err = s.folders.ListChildrenVisible(ctx, parentID, principal.ID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folders")
	}
	if folders == nil {
		folders = []models.Folder{}
	}
	return folders, nil
}

// ListVisibleMaterials returns the active materials in the folder readable
// by the principal.
func (s *AccessService) ListVisibleMaterials(ctx context.Context, principal models.Principal, folderID *string) ([]models.Material, error) {
	var (
		materials []models.Material
		err       error
	)
	if principal.IsAdmin() {
		materials, err = s.materials.ListByFolder(ctx, folderID)
	} else {
		materials, err = s.materials.ListByFolderVisible(ctx, folderID, principal.ID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	if materials == nil {
		materials = []models.Material{}
	}
	return materials, nil
}

func (s *AccessService) folderGrants(folder *models.Folder, principal models.Principal) bool {
	if folder == nil || !folder.Active {
		return false
	}
	if folder.Visibility == models.VisibilityPublic {
		return true
	}
	return folder.Visibility == models.VisibilityRestricted && folder.AllowsTeacher(principal.ID)
}
