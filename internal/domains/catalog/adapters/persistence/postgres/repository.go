package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

var (
	_ ports.ItemService[int64]  = (*ProductRepository)(nil)
	_ ports.ItemService[string] = (*CategoryRepository)(nil)
)

// ProductRepository reads and writes products straight from the storefront database.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository wires a PostgreSQL-backed product collection. The caller owns the DB lifecycle
// and is expected to have run migrations.Run.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FetchAll returns every product ordered by sort order, newest first among ties.
func (r *ProductRepository) FetchAll(ctx context.Context) ([]domain.Item[int64], error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	var records []productRecord
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC NULLS FIRST").
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]domain.Item[int64], 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return items, nil
}

// FetchOne loads a product by id.
func (r *ProductRepository) FetchOne(ctx context.Context, id int64) (domain.Item[int64], error) {
	if err := ensureDB(r.db); err != nil {
		return domain.Item[int64]{}, err
	}
	var record productRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Item[int64]{}, ports.ErrNotFound
		}
		return domain.Item[int64]{}, err
	}
	return record.toDomain(), nil
}

// Create inserts a product; the database assigns the id.
func (r *ProductRepository) Create(ctx context.Context, item domain.Item[int64]) (domain.Item[int64], error) {
	if err := ensureDB(r.db); err != nil {
		return domain.Item[int64]{}, err
	}
	if err := domain.ValidateProduct(item.Fields); err != nil {
		return domain.Item[int64]{}, err
	}
	record := newProductRecord(item)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.Item[int64]{}, translate(err)
	}
	return record.toDomain(), nil
}

// Update writes the columns present in patch.
func (r *ProductRepository) Update(ctx context.Context, id int64, patch domain.Patch) error {
	return updateColumns(ctx, r.db, &productRecord{}, "id = ?", id, productColumns(patch))
}

// SetVisibility stores is_visible.
func (r *ProductRepository) SetVisibility(ctx context.Context, id int64, visible bool) error {
	return r.Update(ctx, id, domain.Patch{Visible: &visible})
}

// SetSortOrder stores sort_order.
func (r *ProductRepository) SetSortOrder(ctx context.Context, id int64, order int) error {
	return r.Update(ctx, id, domain.Patch{SortOrder: &order})
}

// Delete removes a product by id.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	return deleteRow(ctx, r.db, &productRecord{}, "id = ?", id)
}

// CategoryRepository reads and writes categories keyed by slug.
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository wires a PostgreSQL-backed category collection.
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FetchAll returns every category ordered by sort order.
func (r *CategoryRepository) FetchAll(ctx context.Context) ([]domain.Item[string], error) {
	if err := ensureDB(r.db); err != nil {
		return nil, err
	}
	var records []categoryRecord
	if err := r.db.WithContext(ctx).Order("sort_order ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	items := make([]domain.Item[string], 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return items, nil
}

// FetchOne loads a category by slug.
func (r *CategoryRepository) FetchOne(ctx context.Context, id string) (domain.Item[string], error) {
	if err := ensureDB(r.db); err != nil {
		return domain.Item[string]{}, err
	}
	var record categoryRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Item[string]{}, ports.ErrNotFound
		}
		return domain.Item[string]{}, err
	}
	return record.toDomain(), nil
}

// Create inserts a category; a taken slug yields ports.ErrConflict.
func (r *CategoryRepository) Create(ctx context.Context, item domain.Item[string]) (domain.Item[string], error) {
	if err := ensureDB(r.db); err != nil {
		return domain.Item[string]{}, err
	}
	if err := domain.ValidateCategory(item.ID, item.Fields); err != nil {
		return domain.Item[string]{}, err
	}
	record := newCategoryRecord(item)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.Item[string]{}, translate(err)
	}
	return record.toDomain(), nil
}

// Update writes the columns present in patch.
func (r *CategoryRepository) Update(ctx context.Context, id string, patch domain.Patch) error {
	return updateColumns(ctx, r.db, &categoryRecord{}, "id = ?", id, categoryColumns(patch))
}

// SetVisibility stores is_visible.
func (r *CategoryRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	return r.Update(ctx, id, domain.Patch{Visible: &visible})
}

// SetSortOrder stores sort_order.
func (r *CategoryRepository) SetSortOrder(ctx context.Context, id string, order int) error {
	return r.Update(ctx, id, domain.Patch{SortOrder: &order})
}

// Delete removes a category. The "all" category is refused here as well.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if id == domain.SentinelCategory {
		return domain.ErrSentinelCategory
	}
	return deleteRow(ctx, r.db, &categoryRecord{}, "id = ?", id)
}

func updateColumns(ctx context.Context, db *gorm.DB, model any, where string, id any, columns map[string]any) error {
	if err := ensureDB(db); err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("update %v: nothing to change", id)
	}
	result := db.WithContext(ctx).Model(model).Where(where, id).Updates(columns)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func deleteRow(ctx context.Context, db *gorm.DB, model any, where string, id any) error {
	if err := ensureDB(db); err != nil {
		return err
	}
	result := db.WithContext(ctx).Where(where, id).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func ensureDB(db *gorm.DB) error {
	if db == nil {
		return errors.New("postgres catalog repository not configured")
	}
	return nil
}
