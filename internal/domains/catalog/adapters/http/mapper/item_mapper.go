package mapper

import (
	"time"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

// Product is the HTTP representation of a catalog product.
type Product struct {
	ID          int64      `json:"id"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	MainImage   string     `json:"main_image,omitempty"`
	Article     string     `json:"article"`
	Name        string     `json:"name"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	IsVisible   bool       `json:"is_visible"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Category is the HTTP representation of a catalog category.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	IsVisible bool   `json:"is_visible"`
	SortOrder int    `json:"sort_order"`
}

// ProductFields is the editable attribute set of the admin product form.
type ProductFields struct {
	PhotoURL    string  `json:"photo_url"`
	MainImage   string  `json:"main_image"`
	Article     string  `json:"article"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// ProductCreate is the body of POST /api/admin/products.
type ProductCreate struct {
	ProductFields
	Category string `json:"category"`
}

// ProductUpdate is the body of PUT /api/admin/products/:id. A nil category keeps the current one.
type ProductUpdate struct {
	ProductFields
	Category *string `json:"category,omitempty"`
}

// CategoryCreate is the body of POST /api/admin/categories.
type CategoryCreate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// CategoryUpdate is the body of PUT /api/admin/categories/:id.
type CategoryUpdate struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// VisibilityChange is the body of PATCH .../:id/visibility.
type VisibilityChange struct {
	IsVisible *bool `json:"is_visible" binding:"required"`
}

// CategoryChange is the body of PATCH /api/admin/products/:id/category.
type CategoryChange struct {
	Category string `json:"category" binding:"required"`
}

// BulkDelete is the body of POST .../bulk/delete.
type BulkDelete[K comparable] struct {
	IDs []K `json:"ids" binding:"required,min=1"`
}

// BulkVisibility is the body of POST .../bulk/visibility.
type BulkVisibility[K comparable] struct {
	IDs       []K   `json:"ids" binding:"required,min=1"`
	IsVisible *bool `json:"is_visible" binding:"required"`
}

// Move is the body of POST .../move; positions index the full admin list.
type Move struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

// Order is the body of PUT .../order: every id, in the new display order.
type Order[K comparable] struct {
	IDs []K `json:"ids" binding:"required"`
}

// Outcome reports how an optimistic mutation settled.
type Outcome struct {
	State    string `json:"state"`
	Affected int    `json:"affected"`
}

// FromProduct maps a domain product to its HTTP shape.
func FromProduct(item domain.Item[int64]) Product {
	out := Product{
		ID:          item.ID,
		PhotoURL:    item.Fields.PhotoURL,
		MainImage:   item.Fields.MainImage,
		Article:     item.Fields.Article,
		Name:        item.Fields.Name,
		Price:       item.Fields.Price,
		Category:    item.Category,
		Description: item.Fields.Description,
		IsVisible:   item.Visible,
		SortOrder:   item.SortOrder,
	}
	if !item.CreatedAt.IsZero() {
		created := item.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

// FromProducts maps a product list, keeping its order.
func FromProducts(items []domain.Item[int64]) []Product {
	out := make([]Product, 0, len(items))
	for _, item := range items {
		out = append(out, FromProduct(item))
	}
	return out
}

// FromCategory maps a domain category to its HTTP shape.
func FromCategory(item domain.Item[string]) Category {
	return Category{
		ID:        item.ID,
		Name:      item.Fields.Name,
		Icon:      item.Fields.Icon,
		IsVisible: item.Visible,
		SortOrder: item.SortOrder,
	}
}

// FromCategories maps a category list, keeping its order.
func FromCategories(items []domain.Item[string]) []Category {
	out := make([]Category, 0, len(items))
	for _, item := range items {
		out = append(out, FromCategory(item))
	}
	return out
}

// FromOutcome maps a coordinator outcome.
func FromOutcome(outcome ports.Outcome) Outcome {
	return Outcome{State: outcome.State.String(), Affected: outcome.Affected}
}

func (f ProductFields) toDomain() domain.Fields {
	return domain.Fields{
		PhotoURL:    f.PhotoURL,
		MainImage:   f.MainImage,
		Article:     f.Article,
		Name:        f.Name,
		Price:       f.Price,
		Description: f.Description,
	}
}

// ToNewProduct maps a create payload; an empty category files the product under "all".
func ToNewProduct(in ProductCreate) domain.Item[int64] {
	return domain.Item[int64]{Fields: in.toDomain(), Category: in.Category}
}

// ToProductPatch maps an edit payload to a patch that replaces the attribute set.
func ToProductPatch(in ProductUpdate) domain.Patch {
	fields := in.toDomain()
	return domain.Patch{Fields: &fields, Category: in.Category}
}

// ToNewCategory maps a create payload; the slug is normalised by the catalog.
func ToNewCategory(in CategoryCreate) domain.Item[string] {
	return domain.Item[string]{ID: in.ID, Fields: domain.Fields{Name: in.Name, Icon: in.Icon}}
}

// ToCategoryPatch maps an edit payload. The current item supplies the fields the payload leaves blank.
func ToCategoryPatch(in CategoryUpdate, current domain.Item[string]) domain.Patch {
	fields := current.Fields
	fields.Name = in.Name
	if in.Icon != "" {
		fields.Icon = in.Icon
	}
	return domain.Patch{Fields: &fields}
}
