package query

import (
	"catalog-manager/internal/domain"
)

// AverageRating is the arithmetic mean of the ratings, 0 when there are none
func AverageRating(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}

	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return float64(total) / float64(len(reviews))
}

type RatingSummary struct {
	Count   int
	Average float64
	// Distribution[i] counts the reviews rated i+1 stars
	Distribution [domain.MaxRating]int
}

func Summarize(reviews []domain.Review) RatingSummary {
	summary := RatingSummary{
		Count:   len(reviews),
		Average: AverageRating(reviews),
	}
	for _, r := range reviews {
		if domain.ValidRating(r.Rating) {
			summary.Distribution[r.Rating-domain.MinRating]++
		}
	}
	return summary
}
