package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/roastery/internal/storage/memstore"
)

func TestImagesServeStoredBlob(t *testing.T) {
	blobs := memstore.New("/images")
	require.NoError(t, blobs.Put(context.Background(), "2024/a.jpg", strings.NewReader("jpeg"), 4, "image/jpeg"))
	e := echo.New()
	NewImagesHandler(blobs).Register(e)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/images/2024/a.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
	assert.Equal(t, "jpeg", rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/images/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
