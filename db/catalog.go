package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Category is a cached storefront category.
type Category struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Name string `gorm:"index" json:"name"`
	Slug string `json:"slug"`
}

// Product is a cached storefront product. Data holds the raw JSON returned by the backend.
type Product struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"index" json:"name"` // Indexed for faster queries
	CategoryID string    `gorm:"index" json:"category_id"`
	Price      float64   `json:"price"`
	Data       string    `json:"data"`
	SyncedAt   time.Time `json:"synced_at"`
}

// CatalogRepository defines decoupled operations for the local product catalogue cache.
type CatalogRepository interface {
	Replace(ctx context.Context, categories []Category, products []Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, categoryID string) ([]Product, error)
	SearchProducts(ctx context.Context, nameSubstr string) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	Clear(ctx context.Context) error
}

// gormCatalogRepo is a GORM-backed implementation of CatalogRepository.
type gormCatalogRepo struct{ db *gorm.DB }

// NewCatalogRepository creates a CatalogRepository. Accepts *gorm.DB to avoid global access.
func NewCatalogRepository(db *gorm.DB) CatalogRepository { return &gormCatalogRepo{db: db} }

// Replace swaps the whole cached catalogue for the given snapshot in one transaction.
func (r *gormCatalogRepo) Replace(ctx context.Context, categories []Category, products []Product) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearCatalog(tx); err != nil {
			return err
		}
		if len(categories) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(categories, 100).Error; err != nil {
				return err
			}
		}
		if len(products) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(products, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *gormCatalogRepo) GetProduct(ctx context.Context, id string) (*Product, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var p Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns all cached products, restricted to one category when categoryID is set.
func (r *gormCatalogRepo) ListProducts(ctx context.Context, categoryID string) ([]Product, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	q := r.db.WithContext(ctx).Order("name")
	if categoryID != "" {
		q = q.Where("category_id = ?", categoryID)
	}
	var products []Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *gormCatalogRepo) SearchProducts(ctx context.Context, nameSubstr string) ([]Product, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var products []Product
	if err := r.db.WithContext(ctx).Where("name LIKE ?", "%"+nameSubstr+"%").Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *gormCatalogRepo) ListCategories(ctx context.Context) ([]Category, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var categories []Category
	if err := r.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *gormCatalogRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return clearCatalog(r.db.WithContext(ctx))
}

func clearCatalog(tx *gorm.DB) error {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := all.Delete(&Product{}).Error; err != nil {
		return err
	}
	return all.Delete(&Category{}).Error
}
