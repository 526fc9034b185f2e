package reviews

import (
	"strings"
	"time"
)

type Review struct {
	ID        string    `json:"id"`
	CoffeeID  string    `json:"coffee_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateReviewRequest struct {
	CoffeeID string `json:"coffee_id" validate:"required,uuid"`
	Rating   int    `json:"rating" validate:"min=1,max=5"`
	Comment  string `json:"comment" validate:"required"`
}

func (r CreateReviewRequest) normalize() CreateReviewRequest {
	r.CoffeeID = strings.TrimSpace(r.CoffeeID)
	r.Comment = strings.TrimSpace(r.Comment)
	return r
}
