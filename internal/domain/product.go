package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Product represents a product in the catalog
type Product struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	Reviews     []Review        `json:"reviews" validate:"dive"`
}

// Review is a single user review owned by a product
type Review struct {
	User    string    `json:"user" validate:"required"`
	Rating  int       `json:"rating" validate:"gte=1,lte=5"`
	Comment string    `json:"comment" validate:"required"`
	Date    time.Time `json:"date"`
}

// NewReview creates a review stamped with the given time
func NewReview(user string, rating int, comment string, at time.Time) Review {
	return Review{
		User:    user,
		Rating:  rating,
		Comment: comment,
		Date:    at,
	}
}

// Clone returns a deep copy of the product, including its reviews
func (p Product) Clone() Product {
	out := p
	if p.Reviews != nil {
		out.Reviews = make([]Review, len(p.Reviews))
		copy(out.Reviews, p.Reviews)
	}
	return out
}

// AddReview appends a review keeping insertion order
func (p *Product) AddReview(r Review) {
	p.Reviews = append(p.Reviews, r)
}

// ValidRating reports whether rating is within the allowed star range
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
