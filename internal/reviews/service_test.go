package reviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/roastery/internal/apperr"
	"github.com/memohai/roastery/internal/db/sqlc"
)

type fakeQueries struct {
	known map[[16]byte]bool
	rows  []sqlc.Review
	calls int
}

func (f *fakeQueries) CreateReview(_ context.Context, arg sqlc.CreateReviewParams) (sqlc.Review, error) {
	f.calls++
	if !f.known[arg.CoffeeID.Bytes] {
		return sqlc.Review{}, &pgconn.PgError{Code: "23503"}
	}
	row := sqlc.Review{
		ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		CoffeeID:  arg.CoffeeID,
		UserID:    arg.UserID,
		Rating:    arg.Rating,
		Comment:   arg.Comment,
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeQueries) ListReviewsByCoffee(_ context.Context, coffeeID pgtype.UUID) ([]sqlc.Review, error) {
	var out []sqlc.Review
	for _, r := range f.rows {
		if r.CoffeeID.Bytes == coffeeID.Bytes {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestCreateValidation(t *testing.T) {
	q := &fakeQueries{}
	svc := NewService(nil, q)
	user := uuid.NewString()

	tests := []struct {
		name string
		req  CreateReviewRequest
		want []string
	}{
		{"rating too low", CreateReviewRequest{CoffeeID: uuid.NewString(), Rating: 0, Comment: "ok"}, []string{"rating"}},
		{"rating too high", CreateReviewRequest{CoffeeID: uuid.NewString(), Rating: 6, Comment: "ok"}, []string{"rating"}},
		{"everything wrong", CreateReviewRequest{CoffeeID: "x", Rating: -1, Comment: "  "}, []string{"coffee_id", "rating", "comment"}},
		{"missing coffee", CreateReviewRequest{Rating: 3, Comment: "fine"}, []string{"coffee_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), user, tt.req)
			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr), "err = %v", err)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			fields := make([]string, 0, len(appErr.Violations))
			for _, v := range appErr.Violations {
				fields = append(fields, v.Field)
			}
			assert.Equal(t, tt.want, fields)
		})
	}
	assert.Zero(t, q.calls, "invalid reviews must not reach the store")
}

func TestCreateAndList(t *testing.T) {
	coffee := uuid.New()
	q := &fakeQueries{known: map[[16]byte]bool{coffee: true}}
	svc := NewService(nil, q)
	user := uuid.NewString()

	review, err := svc.Create(context.Background(), user, CreateReviewRequest{CoffeeID: coffee.String(), Rating: 5, Comment: " bright "})
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "bright", review.Comment)
	assert.Equal(t, user, review.UserID)

	items, err := svc.ListByCoffee(context.Background(), coffee.String())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, review.ID, items[0].ID)

	empty, err := svc.ListByCoffee(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCreateUnknownCoffee(t *testing.T) {
	svc := NewService(nil, &fakeQueries{})
	_, err := svc.Create(context.Background(), uuid.NewString(), CreateReviewRequest{CoffeeID: uuid.NewString(), Rating: 4, Comment: "x"})
	assert.ErrorIs(t, err, ErrCoffeeNotFound)
}
