package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/roastery/internal/auth"
	"github.com/memohai/roastery/internal/reviews"
)

// ReviewService creates and lists reviews.
type ReviewService interface {
	ReviewLister
	Create(ctx context.Context, userID string, req reviews.CreateReviewRequest) (reviews.Review, error)
}

type ReviewsHandler struct {
	service ReviewService
}

func NewReviewsHandler(service ReviewService) *ReviewsHandler {
	return &ReviewsHandler{service: service}
}

func (h *ReviewsHandler) Register(e *echo.Echo) {
	group := e.Group("/reviews")
	group.GET("/coffee/:coffeeId", h.ListByCoffee)
	group.POST("", h.Create)
}

// ListByCoffee godoc
// @Summary List reviews of a coffee
// @Tags reviews
// @Param coffeeId path string true "Coffee ID"
// @Success 200 {array} reviews.Review
// @Router /reviews/coffee/{coffeeId} [get]
func (h *ReviewsHandler) ListByCoffee(c echo.Context) error {
	items, err := h.service.ListByCoffee(c.Request().Context(), c.Param("coffeeId"))
	if err != nil {
		return toHTTPError(c, err)
	}
	if items == nil {
		items = []reviews.Review{}
	}
	return c.JSON(http.StatusOK, items)
}

// Create godoc
// @Summary Review a coffee
// @Tags reviews
// @Param payload body reviews.CreateReviewRequest true "Review"
// @Success 201 {object} reviews.Review
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /reviews [post]
func (h *ReviewsHandler) Create(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req reviews.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"}).SetInternal(err)
	}
	review, err := h.service.Create(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, review)
}
