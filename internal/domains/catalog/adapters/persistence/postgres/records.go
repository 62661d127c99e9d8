package postgres

import (
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

// uniqueViolation is the SQLSTATE Postgres raises for duplicate keys.
const uniqueViolation = pq.ErrorCode("23505")

// productRecord maps the products_new table the storefront functions write to.
// Columns added after the first release are nullable, hence the pointers.
type productRecord struct {
	ID          int64     `gorm:"primaryKey;column:id;autoIncrement"`
	PhotoURL    *string   `gorm:"column:photo_url"`
	MainImage   *string   `gorm:"column:main_image"`
	Article     string    `gorm:"column:article;index"`
	Name        string    `gorm:"column:name"`
	Price       float64   `gorm:"column:price;type:numeric(12,2)"`
	Category    *string   `gorm:"column:category;type:varchar(64);index"`
	Description *string   `gorm:"column:description"`
	IsVisible   *bool     `gorm:"column:is_visible"`
	SortOrder   *int      `gorm:"column:sort_order;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (productRecord) TableName() string { return "products_new" }

// categoryRecord maps the categories table keyed by slug.
type categoryRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	Name      string    `gorm:"column:name"`
	Icon      *string   `gorm:"column:icon"`
	IsVisible *bool     `gorm:"column:is_visible"`
	SortOrder *int      `gorm:"column:sort_order;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (categoryRecord) TableName() string { return "categories" }

func newProductRecord(item domain.Item[int64]) productRecord {
	return productRecord{
		PhotoURL:    optional(item.Fields.PhotoURL),
		MainImage:   optional(item.Fields.MainImage),
		Article:     item.Fields.Article,
		Name:        item.Fields.Name,
		Price:       item.Fields.Price,
		Category:    optional(item.Category),
		Description: optional(item.Fields.Description),
		IsVisible:   &item.Visible,
		SortOrder:   &item.SortOrder,
	}
}

func (r productRecord) toDomain() domain.Item[int64] {
	return domain.Item[int64]{
		ID: r.ID,
		Fields: domain.Fields{
			Name:        r.Name,
			Article:     r.Article,
			Price:       r.Price,
			PhotoURL:    value(r.PhotoURL),
			MainImage:   value(r.MainImage),
			Description: value(r.Description),
		},
		Category:  valueOr(r.Category, domain.SentinelCategory),
		Visible:   valueOr(r.IsVisible, true),
		SortOrder: value(r.SortOrder),
		CreatedAt: r.CreatedAt,
	}
}

func newCategoryRecord(item domain.Item[string]) categoryRecord {
	return categoryRecord{
		ID:        item.ID,
		Name:      item.Fields.Name,
		Icon:      optional(item.Fields.Icon),
		IsVisible: &item.Visible,
		SortOrder: &item.SortOrder,
	}
}

func (r categoryRecord) toDomain() domain.Item[string] {
	return domain.Item[string]{
		ID: r.ID,
		Fields: domain.Fields{
			Name: r.Name,
			Icon: valueOr(r.Icon, domain.DefaultCategoryIcon),
		},
		Visible:   valueOr(r.IsVisible, true),
		SortOrder: value(r.SortOrder),
		CreatedAt: r.CreatedAt,
	}
}

// productColumns turns a patch into the column set for an UPDATE.
func productColumns(patch domain.Patch) map[string]any {
	columns := map[string]any{}
	if f := patch.Fields; f != nil {
		columns["photo_url"] = f.PhotoURL
		columns["main_image"] = f.MainImage
		columns["article"] = f.Article
		columns["name"] = f.Name
		columns["price"] = f.Price
		columns["description"] = f.Description
	}
	if patch.Category != nil {
		columns["category"] = *patch.Category
	}
	sharedColumns(columns, patch)
	return columns
}

func categoryColumns(patch domain.Patch) map[string]any {
	columns := map[string]any{}
	if f := patch.Fields; f != nil {
		columns["name"] = f.Name
		if f.Icon != "" {
			columns["icon"] = f.Icon
		}
	}
	sharedColumns(columns, patch)
	return columns
}

func sharedColumns(columns map[string]any, patch domain.Patch) {
	if patch.Visible != nil {
		columns["is_visible"] = *patch.Visible
	}
	if patch.SortOrder != nil {
		columns["sort_order"] = *patch.SortOrder
	}
}

// translate maps driver errors onto the port sentinels.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.Join(ports.ErrConflict, err)
	}
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
