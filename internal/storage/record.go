package storage

import (
	"fmt"
	"time"

	"catalog-manager/internal/domain"

	"github.com/shopspring/decimal"
)

// productRecord is the persisted shape of a product. Price is kept as a
// decimal string so no precision is lost in either codec.
type productRecord struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Price       string         `json:"price" yaml:"price"`
	Description string         `json:"description" yaml:"description"`
	Category    string         `json:"category" yaml:"category"`
	Reviews     []reviewRecord `json:"reviews" yaml:"reviews"`
}

type reviewRecord struct {
	User    string    `json:"user" yaml:"user"`
	Rating  int       `json:"rating" yaml:"rating"`
	Comment string    `json:"comment" yaml:"comment"`
	Date    time.Time `json:"date" yaml:"date"`
}

func toRecord(p domain.Product) productRecord {
	rec := productRecord{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.String(),
		Description: p.Description,
		Category:    p.Category,
		Reviews:     make([]reviewRecord, 0, len(p.Reviews)),
	}
	for _, r := range p.Reviews {
		rec.Reviews = append(rec.Reviews, reviewRecord{
			User:    r.User,
			Rating:  r.Rating,
			Comment: r.Comment,
			Date:    r.Date,
		})
	}
	return rec
}

func fromRecord(key string, rec productRecord) (domain.Product, error) {
	if rec.ID == "" {
		rec.ID = key
	}
	if rec.ID != key {
		return domain.Product{}, fmt.Errorf("key %q does not match product id %q", key, rec.ID)
	}

	price, err := decimal.NewFromString(rec.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %q: invalid price %q: %w", rec.ID, rec.Price, err)
	}

	p := domain.Product{
		ID:          rec.ID,
		Name:        rec.Name,
		Price:       price,
		Description: rec.Description,
		Category:    rec.Category,
	}
	if len(rec.Reviews) > 0 {
		p.Reviews = make([]domain.Review, 0, len(rec.Reviews))
	}
	for i, r := range rec.Reviews {
		if !domain.ValidRating(r.Rating) {
			return domain.Product{}, fmt.Errorf("product %q: review %d has rating %d out of range", rec.ID, i, r.Rating)
		}
		p.Reviews = append(p.Reviews, domain.Review{
			User:    r.User,
			Rating:  r.Rating,
			Comment: r.Comment,
			Date:    r.Date,
		})
	}
	return p, nil
}

// collect converts decoded key/record pairs, rejecting duplicate keys
func collect(keys []string, records []productRecord) ([]domain.Product, error) {
	seen := make(map[string]struct{}, len(keys))
	products := make([]domain.Product, 0, len(keys))
	for i, key := range keys {
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate product id %q", key)
		}
		seen[key] = struct{}{}

		p, err := fromRecord(key, records[i])
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}
