package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-console-api/internal/service"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
	"github.com/noah-isme/lms-console-api/pkg/response"
)

// FolderHandler wires HTTP endpoints to folder browsing and management.
// Listings go through the access evaluator so a teacher only ever sees the
// folders their allow lists grant.
type FolderHandler struct {
	service *service.FolderService
	access  *service.AccessService
}

// NewFolderHandler creates a new handler.
func NewFolderHandler(svc *service.FolderService, access *service.AccessService) *FolderHandler {
	return &FolderHandler{service: svc, access: access}
}

// List godoc
// @Summary Browse folders
// @Description List folders visible to the caller under a parent; omit parent_id for roots
// @Tags Folders
// @Produce json
// @Param parent_id query string false "Parent folder ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders [get]
func (h *FolderHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	principal := claims.Principal()

	var parentID *string
	if raw := c.Query("parent_id"); raw != "" {
		parentID = &raw
	}

	allowed, err := h.access.CanAccessFolder(c.Request.Context(), principal, parentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "folder access denied"))
		return
	}

	folders, err := h.access.ListVisibleFolders(c.Request.Context(), principal, parentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, folders, nil)
}

// Get godoc
// @Summary Get folder
// @Description Get one folder the caller may read
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /folders/{id} [get]
func (h *FolderHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id := c.Param("id")

	allowed, err := h.access.CanAccessFolder(c.Request.Context(), claims.Principal(), &id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "folder access denied"))
		return
	}

	folder, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, folder, nil)
}

// Materials godoc
// @Summary List folder materials
// @Description List materials visible to the caller inside the folder; omit id via /materials for roots
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders/{id}/materials [get]
func (h *FolderHandler) Materials(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	principal := claims.Principal()
	id := c.Param("id")

	allowed, err := h.access.CanAccessFolder(c.Request.Context(), principal, &id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "folder access denied"))
		return
	}

	materials, err := h.access.ListVisibleMaterials(c.Request.Context(), principal, &id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, nil)
}

// Create godoc
// @Summary Create folder
// @Description Register a new folder
// @Tags Folders
// @Accept json
// @Produce json
// @Param payload body service.CreateFolderRequest true "Folder payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /folders [post]
func (h *FolderHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid folder payload"))
		return
	}

	folder, err := h.service.Create(c.Request.Context(), claims.Principal(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, folder)
}

// Update godoc
// @Summary Update folder
// @Description Update folder details and visibility
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body service.UpdateFolderRequest true "Folder payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /folders/{id} [put]
func (h *FolderHandler) Update(c *gin.Context) {
	var req service.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid folder payload"))
		return
	}

	folder, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, folder, nil)
}

// Delete godoc
// @Summary Delete folder subtree
// @Description Soft-delete the folder, its descendant folders, and their materials
// @Tags Folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /folders/{id} [delete]
func (h *FolderHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
