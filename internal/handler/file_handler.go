package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
	"github.com/noah-isme/lms-console-api/pkg/response"
	"github.com/noah-isme/lms-console-api/pkg/storage"
)

type downloadTokenParser interface {
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// FileHandler serves material files against signed expiring tokens issued
// by the preview flow. The token is the sole credential; no session is
// required so the URL can be handed to a viewer component.
type FileHandler struct {
	signer  downloadTokenParser
	storage *storage.LocalStorage
}

// NewFileHandler creates a new handler.
func NewFileHandler(signer downloadTokenParser, store *storage.LocalStorage) *FileHandler {
	return &FileHandler{signer: signer, storage: store}
}

// Download validates the signed token and streams the referenced file.
func (h *FileHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing download token"))
		return
	}

	materialID, relPath, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token"))
		return
	}
	if materialID != c.Param("id") {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match material"))
		return
	}

	file, err := h.storage.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
