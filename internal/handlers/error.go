package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/roastery/internal/apperr"
	"github.com/memohai/roastery/internal/coffees"
	"github.com/memohai/roastery/internal/logger"
	"github.com/memohai/roastery/internal/reviews"
)

// ErrorResponse is the standard API error body.
type ErrorResponse struct {
	Message    string             `json:"message"`
	Kind       apperr.Kind        `json:"kind,omitempty"`
	Stage      apperr.Stage       `json:"stage,omitempty"`
	Violations []apperr.Violation `json:"violations,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindTranscode:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindCapacity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var serverFaultMessages = map[apperr.Kind]string{
	apperr.KindStorageWrite:  "image storage failed",
	apperr.KindMetadataWrite: "saving the record failed",
	apperr.KindInternal:      "internal server error",
}

// toHTTPError converts a service error into an echo.HTTPError carrying an
// ErrorResponse. Server faults are logged on the request-scoped logger and
// their details withheld.
func toHTTPError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, coffees.ErrNotFound):
		appErr = apperr.New(apperr.KindNotFound, apperr.StageMetadataRead, err)
	case errors.Is(err, reviews.ErrCoffeeNotFound):
		appErr = apperr.New(apperr.KindNotFound, apperr.StageMetadataWrite, err)
	default:
		appErr = apperr.New(apperr.KindInternal, "", err)
	}

	status := StatusFor(appErr.Kind)
	resp := ErrorResponse{
		Message:    appErr.Message,
		Kind:       appErr.Kind,
		Stage:      appErr.Stage,
		Violations: appErr.Violations,
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request().Context()).Error("request failed",
			slog.String("kind", string(appErr.Kind)),
			slog.String("stage", string(appErr.Stage)),
			slog.Any("error", err))
		if msg, ok := serverFaultMessages[appErr.Kind]; ok {
			resp.Message = msg
		}
	}
	if resp.Message == "" && appErr.Err != nil {
		resp.Message = appErr.Err.Error()
	}
	if resp.Message == "" {
		resp.Message = http.StatusText(status)
	}
	return echo.NewHTTPError(status, resp).SetInternal(err)
}
