package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/liushenghao/taixuan_shop/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SaveOrder updates the order row only; item snapshots are immutable once
// created.
func (r *GormRepo) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	var total int64
	err := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	err = r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// ListOrders is the admin view: all users, optional status filter.
func (r *GormRepo) ListOrders(ctx context.Context, status string, offset, limit int) (int64, []models.Order, error) {
	count := r.DB.WithContext(ctx).Model(&models.Order{})
	list := r.DB.WithContext(ctx).Preload("Items")
	if status != "" {
		count = count.Where("status = ?", status)
		list = list.Where("status = ?", status)
	}

	var total int64
	if err := count.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	err := list.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}
