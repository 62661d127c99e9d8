package domain

import (
	"cmp"
	"errors"
	"slices"
	"strings"
	"time"
)

// SentinelCategory is the reserved category id meaning "every category".
const SentinelCategory = "all"

// DefaultCategoryIcon is assigned to categories created without an icon.
const DefaultCategoryIcon = "Circle"

var (
	ErrInvalidReorder   = errors.New("reorder does not match collection ids")
	ErrIndexOutOfRange  = errors.New("move index out of range")
	ErrSentinelCategory = errors.New("the \"all\" category cannot be deleted")
	ErrEmptyName        = errors.New("name is required")
	ErrEmptyArticle     = errors.New("article is required")
	ErrInvalidPrice     = errors.New("price must be greater than zero")
	ErrEmptyCategoryID  = errors.New("category id is required")
)

// Fields carries the display attributes of a product or category.
// The engine only reads Name and Article (search); everything else passes through.
type Fields struct {
	Name        string
	Article     string
	Price       float64
	PhotoURL    string
	MainImage   string
	Description string
	Icon        string
}

// Item is a product (K = int64) or a category (K = string) as held by the catalog engine.
type Item[K comparable] struct {
	ID        K
	Fields    Fields
	Category  string
	Visible   bool
	SortOrder int
	CreatedAt time.Time
}

// Patch is a partial change; nil pointers leave the field untouched.
type Patch struct {
	Fields    *Fields
	Category  *string
	Visible   *bool
	SortOrder *int
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Fields == nil && p.Category == nil && p.Visible == nil && p.SortOrder == nil
}

// ApplyPatch overlays the patch onto a copy of the item.
func ApplyPatch[K comparable](item Item[K], p Patch) Item[K] {
	if p.Fields != nil {
		item.Fields = *p.Fields
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Visible != nil {
		item.Visible = *p.Visible
	}
	if p.SortOrder != nil {
		item.SortOrder = *p.SortOrder
	}
	return item
}

// InCategory reports whether the item belongs to the given category.
// The sentinel matches every item.
func (i Item[K]) InCategory(categoryID string) bool {
	return categoryID == SentinelCategory || i.Category == categoryID
}

// SortStable orders items by ascending SortOrder, keeping fetch order for ties.
func SortStable[K comparable](items []Item[K]) {
	slices.SortStableFunc(items, func(a, b Item[K]) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
}

// IDs lists the identifiers of items in their current order.
func IDs[K comparable](items []Item[K]) []K {
	ids := make([]K, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

// ValidateProduct enforces the fields the storefront requires before a product can be created.
func ValidateProduct(f Fields) error {
	if strings.TrimSpace(f.Article) == "" {
		return ErrEmptyArticle
	}
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if f.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// ValidateCategory checks a category slug and name.
func ValidateCategory(id string, f Fields) error {
	if id == "" {
		return ErrEmptyCategoryID
	}
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// NormalizeCategorySlug lowercases the input and drops anything outside [a-z0-9_].
func NormalizeCategorySlug(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
