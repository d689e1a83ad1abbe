package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetActiveProduct is the variant cart and checkout use: soft-deleted
// products behave as if they never existed.
func (r *GormRepo) GetActiveProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func applyProductFilters(q *gorm.DB, f transport.ProductFilters) *gorm.DB {
	q = q.Where("is_active = ?", true)

	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Element != "" {
		q = q.Where("element = ?", f.Element)
	}
	if f.Tag != "" {
		// Tags are stored as a JSON array; a quoted-substring match works on
		// both Postgres and sqlite.
		q = q.Where("tags LIKE ?", "%\""+f.Tag+"\"%")
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.InStock != nil && *f.InStock {
		q = q.Where("is_digital = ? OR stock > 0", true)
	}
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	} else if f.Search != "" {
		needle := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(name_en) LIKE ? OR LOWER(description) LIKE ? OR LOWER(description_en) LIKE ?",
			needle, needle, needle, needle,
		)
	}

	return q
}

// ListProducts applies catalog filters and the fixed featured-first,
// best-seller, newest-first sort chain.
func (r *GormRepo) ListProducts(ctx context.Context, f transport.ProductFilters, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := applyProductFilters(r.DB.WithContext(ctx).Model(&models.Product{}), f).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	err := applyProductFilters(r.DB.WithContext(ctx).Model(&models.Product{}), f).
		Order("is_featured DESC").
		Order("sold_count DESC").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

func (r *GormRepo) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uint) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		return nil, err
	}

	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.NameEn != nil {
		prod.NameEn = *req.NameEn
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.DescriptionEn != nil {
		prod.DescriptionEn = *req.DescriptionEn
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Currency != nil {
		prod.Currency = *req.Currency
	}
	if req.Discount != nil {
		prod.Discount = *req.Discount
	}
	if req.Stock != nil {
		prod.Stock = *req.Stock
	}
	if req.IsDigital != nil {
		prod.IsDigital = *req.IsDigital
	}
	if req.IsActive != nil {
		prod.IsActive = *req.IsActive
	}
	if req.IsFeatured != nil {
		prod.IsFeatured = *req.IsFeatured
	}
	if req.Category != nil {
		prod.Category = *req.Category
	}
	if req.Element != nil {
		prod.Element = *req.Element
	}
	if req.Tags != nil {
		prod.Tags = *req.Tags
	}
	if req.Images != nil {
		prod.Images = *req.Images
	}

	if err := r.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}

// SoftDeleteProduct flips the active flag and returns the record so the
// caller can clean up its uploaded images.
func (r *GormRepo) SoftDeleteProduct(ctx context.Context, id uint) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		return nil, err
	}

	prod.IsActive = false
	if err := r.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}
