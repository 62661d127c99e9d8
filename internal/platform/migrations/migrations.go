package migrations

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sentinelCategory must exist before the admin can file products under it.
const sentinelCategory = "all"

// Run applies the catalog schema and makes sure the "all" category row exists.
// Existing tables written by the storefront functions are extended, never dropped.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(&productRecord{}, &categoryRecord{}); err != nil {
		return err
	}
	visible, order := true, 0
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categoryRecord{
		ID:        sentinelCategory,
		Name:      "Все",
		IsVisible: &visible,
		SortOrder: &order,
	}).Error
}

// Product schema mirrors the catalog Postgres adapter.
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

// Category schema mirrors the catalog Postgres adapter.
type categoryRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	Name      string    `gorm:"column:name"`
	Icon      *string   `gorm:"column:icon"`
	IsVisible *bool     `gorm:"column:is_visible"`
	SortOrder *int      `gorm:"column:sort_order;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (categoryRecord) TableName() string { return "categories" }
