// Package query holds the read-only operations over a catalog snapshot:
// sorting, pagination, keyword search and review aggregation. Nothing here
// mutates its input.
package query

import (
	"slices"
	"strings"

	"catalog-manager/internal/domain"

	"golang.org/x/text/cases"
)

type SortField string

const (
	SortByName     SortField = "name"
	SortByPrice    SortField = "price"
	SortByCategory SortField = "category"
)

// ParseSortField maps user input to a sort field. Anything unrecognised,
// including the empty string, sorts by name.
func ParseSortField(s string) SortField {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case SortByPrice:
		return SortByPrice
	case SortByCategory:
		return SortByCategory
	default:
		return SortByName
	}
}

// Sort returns a new slice ordered ascending by field. Strings compare
// case-insensitively, prices numerically, and ties keep snapshot order.
func Sort(products []domain.Product, field SortField) []domain.Product {
	sorted := slices.Clone(products)

	switch field {
	case SortByPrice:
		slices.SortStableFunc(sorted, func(a, b domain.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortByCategory:
		sortByKey(sorted, func(p domain.Product) string { return p.Category })
	default:
		sortByKey(sorted, func(p domain.Product) string { return p.Name })
	}

	return sorted
}

// sortByKey folds each key once up front instead of on every comparison
func sortByKey(products []domain.Product, key func(domain.Product) string) {
	fold := cases.Fold()
	folded := make(map[string]string, len(products))
	for _, p := range products {
		k := key(p)
		if _, ok := folded[k]; !ok {
			folded[k] = fold.String(k)
		}
	}

	slices.SortStableFunc(products, func(a, b domain.Product) int {
		return strings.Compare(folded[key(a)], folded[key(b)])
	})
}
