package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

type folderRepository interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
	ListChildIDs(ctx context.Context, parentIDs []string) ([]string, error)
	Create(ctx context.Context, folder *models.Folder) error
	Update(ctx context.Context, folder *models.Folder) error
	DeactivateMany(ctx context.Context, ids []string) error
}

type folderMaterialRepository interface {
	DeactivateByFolderIDs(ctx context.Context, folderIDs []string) error
}

// CreateFolderRequest represents payload for creating folders.
type CreateFolderRequest struct {
	Name            string            `json:"name" validate:"required,max=200"`
	ParentID        *string           `json:"parent_id"`
	Visibility      models.Visibility `json:"visibility" validate:"required,oneof=PUBLIC RESTRICTED"`
	AllowTeacherIDs []string          `json:"allow_teacher_ids"`
}

// UpdateFolderRequest represents payload for updating folders.
type UpdateFolderRequest struct {
	Name            string            `json:"name" validate:"required,max=200"`
	ParentID        *string           `json:"parent_id"`
	Visibility      models.Visibility `json:"visibility" validate:"required,oneof=PUBLIC RESTRICTED"`
	AllowTeacherIDs []string          `json:"allow_teacher_ids"`
}

// FolderService orchestrates folder mutations, including the cascading
// soft delete over a folder's subtree.
type FolderService struct {
	repo      folderRepository
	materials folderMaterialRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFolderService constructs a FolderService.
func NewFolderService(repo folderRepository, materials folderMaterialRepository, validate *validator.Validate, logger *zap.Logger) *FolderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolderService{repo: repo, materials: materials, validator: validate, logger: logger}
}

// Get returns an active folder by id.
func (s *FolderService) Get(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	return folder, nil
}

// Create registers a new folder. The allow list is cleared under PUBLIC
// visibility and deduplicated under RESTRICTED.
func (s *FolderService) Create(ctx context.Context, principal models.Principal, req CreateFolderRequest) (*models.Folder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid folder payload")
	}
	if req.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *req.ParentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "parent folder not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent folder")
		}
	}

	folder := &models.Folder{
		Name:            strings.TrimSpace(req.Name),
		ParentID:        req.ParentID,
		Visibility:      req.Visibility,
		AllowTeacherIDs: normalizeAllowList(req.Visibility, req.AllowTeacherIDs),
		Active:          true,
		CreatedBy:       &principal.ID,
	}
	if err := s.repo.Create(ctx, folder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create folder")
	}
	return folder, nil
}

// Update modifies an existing folder's metadata and visibility descriptor.
func (s *FolderService) Update(ctx context.Context, id string, req UpdateFolderRequest) (*models.Folder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid folder payload")
	}

	folder, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, appErrors.Clone(appErrors.ErrValidation, "folder cannot be its own parent")
		}
		parent, err := s.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "parent folder not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent folder")
		}
		if err := s.ensureNotDescendant(ctx, id, parent); err != nil {
			return nil, err
		}
	}

	folder.Name = strings.TrimSpace(req.Name)
	folder.ParentID = req.ParentID
	folder.Visibility = req.Visibility
	folder.AllowTeacherIDs = normalizeAllowList(req.Visibility, req.AllowTeacherIDs)

	if err := s.repo.Update(ctx, folder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update folder")
	}
	return folder, nil
}

// Delete soft-deletes the folder, every descendant folder, and every
// material directly inside any of them. The traversal is an iterative
// worklist over child lookups, then one bulk deactivate per entity type.
// A crash mid-cascade can leave a partially deleted subtree; each update
// is an independent single-statement write.
func (s *FolderService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	// Seen ids are never re-enqueued, so a corrupted parent link cannot
	// loop the walk or inflate the deactivation set.
	ids := []string{id}
	seen := map[string]struct{}{id: {}}
	frontier := []string{id}
	for len(frontier) > 0 {
		children, err := s.repo.ListChildIDs(ctx, frontier)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk folder tree")
		}
		next := make([]string, 0, len(children))
		for _, child := range children {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			ids = append(ids, child)
			next = append(next, child)
		}
		frontier = next
	}

	if err := s.repo.DeactivateMany(ctx, ids); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate folders")
	}
	if err := s.materials.DeactivateByFolderIDs(ctx, ids); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate folder materials")
	}
	return nil
}

// ensureNotDescendant rejects a reparent that would place a folder under
// its own subtree. Walks the proposed parent's ancestor chain to the
// root; a repeated ancestor means the stored links are already cyclic
// and the move is refused too.
func (s *FolderService) ensureNotDescendant(ctx context.Context, id string, parent *models.Folder) error {
	seen := make(map[string]struct{})
	for current := parent; ; {
		if current.ID == id {
			return appErrors.Clone(appErrors.ErrValidation, "folder cannot be moved under its own descendant")
		}
		if _, ok := seen[current.ID]; ok {
			return appErrors.Clone(appErrors.ErrValidation, "folder parent chain is cyclic")
		}
		seen[current.ID] = struct{}{}
		if current.ParentID == nil {
			return nil
		}
		next, err := s.repo.FindByID(ctx, *current.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk parent chain")
		}
		current = next
	}
}

// normalizeAllowList collapses duplicates and enforces the invariant that
// public resources carry an empty allow list.
func normalizeAllowList(visibility models.Visibility, ids []string) []string {
	if visibility == models.VisibilityPublic {
		return []string{}
	}
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
