package catalog

import (
	"sort"
	"strings"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// SortKey selects a catalog ordering.
type SortKey string

const (
	SortRelevance      SortKey = "relevance"
	SortPriceAsc       SortKey = "price_asc"
	SortPriceDesc      SortKey = "price_desc"
	SortPopularityDesc SortKey = "popularity_desc"
)

// Search matches the query against product name or description,
// case-insensitively. An empty query returns the input unchanged.
func Search(products []domain.ProductWithPricing, query string) []domain.ProductWithPricing {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return products
	}

	matched := make([]domain.ProductWithPricing, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Product.Name), query) ||
			strings.Contains(strings.ToLower(p.Product.Description), query) {
			matched = append(matched, p)
		}
	}
	return matched
}

// FilterByCategory keeps products whose category id is in the given set. An
// empty set returns the input unchanged.
func FilterByCategory(products []domain.ProductWithPricing, categoryIDs []string) []domain.ProductWithPricing {
	if len(categoryIDs) == 0 {
		return products
	}

	wanted := make(map[string]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		wanted[id] = struct{}{}
	}

	matched := make([]domain.ProductWithPricing, 0, len(products))
	for _, p := range products {
		if _, ok := wanted[p.Product.CategoryID]; ok {
			matched = append(matched, p)
		}
	}
	return matched
}

// SortBy returns a sorted copy; the input slice is left untouched.
// popularity_desc is a proxy ordering on product id until a real popularity
// signal exists upstream.
func SortBy(products []domain.ProductWithPricing, key SortKey) []domain.ProductWithPricing {
	sorted := make([]domain.ProductWithPricing, len(products))
	copy(sorted, products)

	switch key {
	case SortPriceAsc, SortRelevance:
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].BestPrice != sorted[j].BestPrice {
				return sorted[i].BestPrice < sorted[j].BestPrice
			}
			return sorted[i].Product.ID < sorted[j].Product.ID
		})
	case SortPriceDesc:
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].BestPrice != sorted[j].BestPrice {
				return sorted[i].BestPrice > sorted[j].BestPrice
			}
			return sorted[i].Product.ID < sorted[j].Product.ID
		})
	case SortPopularityDesc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Product.ID > sorted[j].Product.ID
		})
	}
	return sorted
}
