package application

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

// Project derives what a view shows: audience, then category, then search, then the preview cap.
// The order of the stages is part of the contract.
func Project[K comparable](items []domain.Item[K], query domain.ViewQuery) []domain.Item[K] {
	category := query.Category
	if category == "" {
		category = domain.SentinelCategory
	}
	result := items
	if query.Audience == domain.AudienceStorefront {
		result = FilterVisible(result)
	}
	result = FilterByCategory(result, category)
	result = FilterBySearch(result, query.Search)
	if category == domain.SentinelCategory && strings.TrimSpace(query.Search) == "" {
		result = PaginateHead(result, query.PreviewLimit)
	}
	return result
}

// FilterVisible keeps the items the storefront may show.
func FilterVisible[K comparable](items []domain.Item[K]) []domain.Item[K] {
	return keep(items, func(item domain.Item[K]) bool { return item.Visible })
}

// FilterByCategory keeps items of categoryID; the sentinel returns items unchanged.
func FilterByCategory[K comparable](items []domain.Item[K], categoryID string) []domain.Item[K] {
	if categoryID == domain.SentinelCategory {
		return items
	}
	return keep(items, func(item domain.Item[K]) bool { return item.Category == categoryID })
}

// FilterBySearch keeps items whose name or article contains query, ignoring case.
// A blank query passes everything through.
func FilterBySearch[K comparable](items []domain.Item[K], query string) []domain.Item[K] {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	fold := cases.Fold()
	needle := fold.String(query)
	return keep(items, func(item domain.Item[K]) bool {
		return strings.Contains(fold.String(item.Fields.Name), needle) ||
			strings.Contains(fold.String(item.Fields.Article), needle)
	})
}

// PaginateHead returns the first limit items. A non-positive limit disables the cap.
func PaginateHead[K comparable](items []domain.Item[K], limit int) []domain.Item[K] {
	if limit <= 0 || limit >= len(items) {
		return items
	}
	return items[:limit:limit]
}

func keep[K comparable](items []domain.Item[K], pred func(domain.Item[K]) bool) []domain.Item[K] {
	out := make([]domain.Item[K], 0, len(items))
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}
