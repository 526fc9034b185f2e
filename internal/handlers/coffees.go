package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/roastery/internal/auth"
	"github.com/memohai/roastery/internal/coffees"
	"github.com/memohai/roastery/internal/ingest"
	"github.com/memohai/roastery/internal/media"
	"github.com/memohai/roastery/internal/reviews"
)

// CatalogReader serves catalog reads.
type CatalogReader interface {
	Get(ctx context.Context, id string) (coffees.Coffee, error)
	List(ctx context.Context) ([]coffees.Coffee, error)
}

// CatalogWriter runs the write flows that keep records and image blobs consistent.
type CatalogWriter interface {
	CreateWithImage(ctx context.Context, ownerID string, fields coffees.Fields, upload *media.Upload) (coffees.Coffee, error)
	ReplaceImage(ctx context.Context, id string, fields coffees.Fields, upload *media.Upload) (coffees.Coffee, error)
	Create(ctx context.Context, ownerID string, fields coffees.Fields, imageURL string) (coffees.Coffee, error)
	Update(ctx context.Context, id string, fields coffees.Fields, imageURL *string) (coffees.Coffee, error)
	Delete(ctx context.Context, id string) error
}

// ReviewLister lists the reviews of one coffee.
type ReviewLister interface {
	ListByCoffee(ctx context.Context, coffeeID string) ([]reviews.Review, error)
}

// CoffeesHandler serves the catalog routes.
type CoffeesHandler struct {
	reader    CatalogReader
	writer    CatalogWriter
	reviews   ReviewLister
	validator *ingest.Validator
}

// CoffeeRequest is the JSON or form body of create and update. An absent
// image_url on update keeps the current image.
type CoffeeRequest struct {
	coffees.Fields
	ImageURL *string `json:"image_url,omitempty" form:"image_url"`
}

// CoffeeDetail is a coffee with its reviews.
type CoffeeDetail struct {
	coffees.Coffee
	Reviews []reviews.Review `json:"reviews"`
}

// NewCoffeesHandler creates the catalog handler.
func NewCoffeesHandler(reader CatalogReader, writer CatalogWriter, reviewLister ReviewLister, validator *ingest.Validator) *CoffeesHandler {
	return &CoffeesHandler{
		reader:    reader,
		writer:    writer,
		reviews:   reviewLister,
		validator: validator,
	}
}

// Register mounts the catalog routes.
func (h *CoffeesHandler) Register(e *echo.Echo) {
	group := e.Group("/coffees")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary List coffees
// @Description Returns every catalog item, newest first
// @Tags coffees
// @Success 200 {array} coffees.Coffee
// @Failure 500 {object} ErrorResponse
// @Router /coffees [get]
func (h *CoffeesHandler) List(c echo.Context) error {
	items, err := h.reader.List(c.Request().Context())
	if err != nil {
		return toHTTPError(c, err)
	}
	if items == nil {
		items = []coffees.Coffee{}
	}
	return c.JSON(http.StatusOK, items)
}

// Get godoc
// @Summary Get a coffee
// @Description Returns one catalog item with its reviews
// @Tags coffees
// @Param id path string true "Coffee ID"
// @Success 200 {object} CoffeeDetail
// @Failure 404 {object} ErrorResponse
// @Router /coffees/{id} [get]
func (h *CoffeesHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))
	item, err := h.reader.Get(ctx, id)
	if err != nil {
		return toHTTPError(c, err)
	}
	detail := CoffeeDetail{Coffee: item, Reviews: []reviews.Review{}}
	if h.reviews != nil {
		list, err := h.reviews.ListByCoffee(ctx, item.ID)
		if err != nil {
			return toHTTPError(c, err)
		}
		if list != nil {
			detail.Reviews = list
		}
	}
	return c.JSON(http.StatusOK, detail)
}

// Create godoc
// @Summary Create a coffee
// @Description JSON bodies insert the record directly. Multipart bodies with an image file store the transcoded image first.
// @Tags coffees
// @Accept json,mpfd
// @Param image formData file false "Image file"
// @Success 201 {object} coffees.Coffee
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /coffees [post]
func (h *CoffeesHandler) Create(c echo.Context) error {
	ownerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	req, upload, err := h.bindRequest(c)
	if err != nil {
		return err
	}
	var item coffees.Coffee
	if upload != nil {
		item, err = h.writer.CreateWithImage(ctx, ownerID, req.Fields, upload)
	} else {
		item, err = h.writer.Create(ctx, ownerID, req.Fields, valueOf(req.ImageURL))
	}
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// Update godoc
// @Summary Update a coffee
// @Description JSON bodies rewrite the fields. Multipart bodies with an image file replace the image and delete the previous one.
// @Tags coffees
// @Accept json,mpfd
// @Param id path string true "Coffee ID"
// @Param image formData file false "Image file"
// @Success 200 {object} coffees.Coffee
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /coffees/{id} [put]
func (h *CoffeesHandler) Update(c echo.Context) error {
	if _, err := auth.UserIDFromContext(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))
	req, upload, err := h.bindRequest(c)
	if err != nil {
		return err
	}
	var item coffees.Coffee
	if upload != nil {
		item, err = h.writer.ReplaceImage(ctx, id, req.Fields, upload)
	} else {
		item, err = h.writer.Update(ctx, id, req.Fields, req.ImageURL)
	}
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Delete godoc
// @Summary Delete a coffee
// @Tags coffees
// @Param id path string true "Coffee ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /coffees/{id} [delete]
func (h *CoffeesHandler) Delete(c echo.Context) error {
	if _, err := auth.UserIDFromContext(c); err != nil {
		return err
	}
	if err := h.writer.Delete(c.Request().Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// bindRequest reads the body. For multipart bodies it also returns the image
// upload when an image file part is present.
func (h *CoffeesHandler) bindRequest(c echo.Context) (CoffeeRequest, *media.Upload, error) {
	var req CoffeeRequest
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		if err := c.Bind(&req); err != nil {
			return CoffeeRequest{}, nil, err
		}
		return req, nil, nil
	}

	req.Fields = coffees.Fields{
		Name:        c.FormValue("name"),
		Brand:       c.FormValue("brand"),
		RoastLevel:  c.FormValue("roast_level"),
		TasteNotes:  c.FormValue("taste_notes"),
		Origin:      c.FormValue("origin"),
		Description: c.FormValue("description"),
	}
	if form, err := c.MultipartForm(); err == nil {
		if values, ok := form.Value["image_url"]; ok && len(values) > 0 {
			url := values[0]
			req.ImageURL = &url
		}
	}

	file, err := c.FormFile(ingest.FieldImage)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, nil
		}
		return CoffeeRequest{}, nil, echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Message: "invalid multipart body"}).SetInternal(err)
	}
	src, err := file.Open()
	if err != nil {
		return CoffeeRequest{}, nil, toHTTPError(c, err)
	}
	defer func() { _ = src.Close() }()

	upload, err := h.validator.ReadUpload(file.Filename, file.Header.Get(echo.HeaderContentType), src)
	if err != nil {
		return CoffeeRequest{}, nil, toHTTPError(c, err)
	}
	return req, upload, nil
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
