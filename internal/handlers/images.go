package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/roastery/internal/media"
	"github.com/memohai/roastery/internal/storage"
)

// ImagesHandler streams stored image blobs for backends without their own
// public endpoint.
type ImagesHandler struct {
	blobs storage.Provider
}

func NewImagesHandler(blobs storage.Provider) *ImagesHandler {
	return &ImagesHandler{blobs: blobs}
}

func (h *ImagesHandler) Register(e *echo.Echo) {
	e.GET("/images/*", h.Get)
}

// Get godoc
// @Summary Fetch an image
// @Tags images
// @Param key path string true "Storage key"
// @Produce jpeg
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /images/{key} [get]
func (h *ImagesHandler) Get(c echo.Context) error {
	key := strings.TrimPrefix(c.Param("*"), "/")
	if err := storage.ValidateKey(key); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, ErrorResponse{Message: "image not found"})
	}
	rc, err := h.blobs.Open(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, ErrorResponse{Message: "image not found"})
		}
		return toHTTPError(c, err)
	}
	defer func() { _ = rc.Close() }()

	// Keys are never overwritten, so a key's content is fixed.
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Stream(http.StatusOK, media.CanonicalContentType, rc)
}
