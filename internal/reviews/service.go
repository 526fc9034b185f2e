// Package reviews stores user reviews of catalog items.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/memohai/roastery/internal/apperr"
	"github.com/memohai/roastery/internal/db"
	"github.com/memohai/roastery/internal/db/sqlc"
	"github.com/memohai/roastery/internal/validation"
)

// ErrCoffeeNotFound is returned when the reviewed coffee does not exist.
var ErrCoffeeNotFound = errors.New("coffee not found")

type Queries interface {
	CreateReview(ctx context.Context, arg sqlc.CreateReviewParams) (sqlc.Review, error)
	ListReviewsByCoffee(ctx context.Context, coffeeID pgtype.UUID) ([]sqlc.Review, error)
}

type Service struct {
	queries Queries
	logger  *slog.Logger
}

func NewService(log *slog.Logger, queries Queries) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries: queries,
		logger:  log.With(slog.String("service", "reviews")),
	}
}

// Create validates req and stores it as userID's review.
func (s *Service) Create(ctx context.Context, userID string, req CreateReviewRequest) (Review, error) {
	req = req.normalize()
	if violations := validation.Struct(req); len(violations) > 0 {
		return Review{}, apperr.Invalid(violations)
	}
	coffeeID, err := db.ParseUUID(req.CoffeeID)
	if err != nil {
		return Review{}, apperr.Invalid([]apperr.Violation{{Field: "coffee_id", Message: "must be a valid UUID"}})
	}
	user, err := db.ParseUUID(userID)
	if err != nil {
		return Review{}, apperr.New(apperr.KindAuth, "", fmt.Errorf("caller id: %w", err))
	}
	row, err := s.queries.CreateReview(ctx, sqlc.CreateReviewParams{
		CoffeeID: coffeeID,
		UserID:   user,
		Rating:   int16(req.Rating),
		Comment:  req.Comment,
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Review{}, fmt.Errorf("%w: %s", ErrCoffeeNotFound, req.CoffeeID)
		}
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return toReview(row), nil
}

// ListByCoffee returns the reviews of coffeeID, newest first. A malformed id
// yields an empty list.
func (s *Service) ListByCoffee(ctx context.Context, coffeeID string) ([]Review, error) {
	pgID, err := db.ParseUUID(coffeeID)
	if err != nil {
		return []Review{}, nil
	}
	rows, err := s.queries.ListReviewsByCoffee(ctx, pgID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	items := make([]Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, toReview(row))
	}
	return items, nil
}

func toReview(row sqlc.Review) Review {
	return Review{
		ID:        db.UUIDToString(row.ID),
		CoffeeID:  db.UUIDToString(row.CoffeeID),
		UserID:    db.UUIDToString(row.UserID),
		Rating:    int(row.Rating),
		Comment:   row.Comment,
		CreatedAt: db.TimeFromPg(row.CreatedAt),
	}
}
