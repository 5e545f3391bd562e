package query

import (
	"strings"

	"catalog-manager/internal/domain"

	"golang.org/x/text/cases"
)

// Search returns the products whose id or name contains keyword, ignoring
// case. An empty keyword matches every product. Snapshot order is kept.
func Search(products []domain.Product, keyword string) []domain.Product {
	fold := cases.Fold()
	needle := fold.String(keyword)

	matches := make([]domain.Product, 0)
	for _, p := range products {
		if strings.Contains(fold.String(p.ID), needle) || strings.Contains(fold.String(p.Name), needle) {
			matches = append(matches, p)
		}
	}
	return matches
}
