package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-console-api/pkg/storage"
)

func newFileRouter(t *testing.T, signer *storage.SignedURLSigner) (*gin.Engine, *storage.LocalStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	router := gin.New()
	router.GET("/files/:id", NewFileHandler(signer, store).Download)
	return router, store
}

func TestFileDownloadWithSignedToken(t *testing.T) {
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	router, store := newFileRouter(t, signer)

	_, err := store.Save("materials/notes.pdf", []byte("%PDF-1.4 body"))
	require.NoError(t, err)

	token, _, err := signer.Generate("m-1", "materials/notes.pdf")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/m-1?token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "%PDF-1.4")
}

func TestFileDownloadRejectsMissingToken(t *testing.T) {
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	router, _ := newFileRouter(t, signer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/m-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFileDownloadRejectsMismatchedMaterial(t *testing.T) {
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	router, _ := newFileRouter(t, signer)

	token, _, err := signer.Generate("m-1", "materials/notes.pdf")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/other?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFileDownloadRejectsExpiredToken(t *testing.T) {
	signer := storage.NewSignedURLSigner("secret", 10*time.Millisecond)
	router, _ := newFileRouter(t, signer)

	token, _, err := signer.Generate("m-1", "materials/notes.pdf")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/m-1?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFileDownloadMissingFileIsNotFound(t *testing.T) {
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	router, _ := newFileRouter(t, signer)

	token, _, err := signer.Generate("m-1", "materials/ghost.pdf")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/m-1?token="+token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
