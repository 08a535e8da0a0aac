package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetRestaurant(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Restaurant, error) {
	var rest model.Restaurant
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&rest).Error; err != nil {
		return nil, err
	}
	return &rest, nil
}

// ActiveMenuItems returns the active items among ids that belong to the restaurant.
func (r *Repository) ActiveMenuItems(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.MenuItem, error) {
	var items []model.MenuItem
	if err := tx.WithContext(ctx).
		Where("id IN ? AND restaurant_id = ? AND is_active = ?", ids, restaurantID, true).
		Find(&items).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.MenuItem, len(items))
	for _, m := range items {
		out[m.ID] = m
	}
	return out, nil
}

func (r *Repository) UpsertRestaurant(ctx context.Context, tx *gorm.DB, rest *model.Restaurant) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rest).Error
}

func (r *Repository) UpsertMenuItem(ctx context.Context, tx *gorm.DB, m *model.MenuItem) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(m).Error
}

// CreateOrder inserts the order header together with its items.
func (r *Repository) CreateOrder(ctx context.Context, tx *gorm.DB, o *model.Order) error {
	return tx.WithContext(ctx).Create(o).Error
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderForUpdate locks the order row for the rest of tx.
func (r *Repository) GetOrderForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("id = ?", id).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) SetOrderStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.OrderStatus) error {
	return tx.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}
