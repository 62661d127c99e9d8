package application

import (
	"strings"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

// ProductRules validates product creation and field edits.
func ProductRules() Rules[int64] {
	return Rules[int64]{
		Prepare: func(item domain.Item[int64]) (domain.Item[int64], error) {
			if err := domain.ValidateProduct(item.Fields); err != nil {
				return item, err
			}
			if item.Category == "" {
				item.Category = domain.SentinelCategory
			}
			item.Visible = true
			return item, nil
		},
		CheckPatch: func(patch domain.Patch) error {
			if patch.Fields == nil {
				return nil
			}
			return domain.ValidateProduct(*patch.Fields)
		},
	}
}

// CategoryRules normalises category slugs and protects the sentinel category.
func CategoryRules() Rules[string] {
	return Rules[string]{
		Prepare: func(item domain.Item[string]) (domain.Item[string], error) {
			item.ID = domain.NormalizeCategorySlug(item.ID)
			if err := domain.ValidateCategory(item.ID, item.Fields); err != nil {
				return item, err
			}
			if strings.TrimSpace(item.Fields.Icon) == "" {
				item.Fields.Icon = domain.DefaultCategoryIcon
			}
			item.Visible = true
			return item, nil
		},
		CheckPatch: func(patch domain.Patch) error {
			if patch.Fields != nil && strings.TrimSpace(patch.Fields.Name) == "" {
				return domain.ErrEmptyName
			}
			return nil
		},
		CheckDelete: RejectSentinelDelete,
	}
}

// RejectSentinelDelete refuses to delete the "all" category.
func RejectSentinelDelete(id string) error {
	if id == domain.SentinelCategory {
		return domain.ErrSentinelCategory
	}
	return nil
}

// NewProductCatalog builds a coordinator for products with product rules installed.
func NewProductCatalog(service ports.ItemService[int64], opts ...Option[int64]) *Coordinator[int64] {
	return NewCoordinator(service, append([]Option[int64]{WithRules(ProductRules())}, opts...)...)
}

// NewCategoryCatalog builds a coordinator for categories with category rules installed.
func NewCategoryCatalog(service ports.ItemService[string], opts ...Option[string]) *Coordinator[string] {
	return NewCoordinator(service, append([]Option[string]{WithRules(CategoryRules())}, opts...)...)
}
