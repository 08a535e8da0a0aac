package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNoCache = errors.New("stock cache disabled")

func stockKey(menuItemID uuid.UUID) string { return "stock:" + menuItemID.String() }

// LockInventory row-locks every inventory row for menuItemIDs in one statement.
// Rows come back ordered by menu_item_id so two orders over the same items
// acquire locks in the same sequence.
func (r *Repository) LockInventory(ctx context.Context, tx *gorm.DB, menuItemIDs []uuid.UUID) (map[uuid.UUID]*model.Inventory, error) {
	locked := make(map[uuid.UUID]*model.Inventory, len(menuItemIDs))
	if len(menuItemIDs) == 0 {
		return locked, nil
	}
	var rows []model.Inventory
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("menu_item_id IN ?", menuItemIDs).
		Order("menu_item_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		locked[rows[i].MenuItemID] = &rows[i]
	}
	return locked, nil
}

// SetAvailableQty persists a locked row's quantity.
func (r *Repository) SetAvailableQty(ctx context.Context, tx *gorm.DB, inv *model.Inventory) error {
	if inv.AvailableQty < 0 {
		return errors.New("available quantity cannot be negative")
	}
	now := time.Now()
	if err := tx.WithContext(ctx).Model(&model.Inventory{}).Where("id = ?", inv.ID).
		Updates(map[string]interface{}{"available_qty": inv.AvailableQty, "updated_at": now}).Error; err != nil {
		return err
	}
	inv.UpdatedAt = now
	return nil
}

// GetInventory reads stock through the Redis cache.
func (r *Repository) GetInventory(ctx context.Context, menuItemID uuid.UUID) (*model.Inventory, error) {
	if inv, err := r.cachedStock(ctx, menuItemID); err == nil {
		return inv, nil
	}
	var inv model.Inventory
	if err := r.db.WithContext(ctx).Where("menu_item_id = ?", menuItemID).First(&inv).Error; err != nil {
		return nil, err
	}
	r.cacheStock(ctx, &inv)
	return &inv, nil
}

// InvalidateStock drops cached stock; call after the mutating transaction commits.
func (r *Repository) InvalidateStock(ctx context.Context, menuItemIDs ...uuid.UUID) {
	if r.rdb == nil || len(menuItemIDs) == 0 {
		return
	}
	keys := make([]string, len(menuItemIDs))
	for i, id := range menuItemIDs {
		keys[i] = stockKey(id)
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.log.Warnf("invalidate stock cache: %v", err)
	}
}

// UpsertInventory creates or overwrites the row for inv.MenuItemID.
func (r *Repository) UpsertInventory(ctx context.Context, tx *gorm.DB, inv *model.Inventory) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "menu_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"available_qty", "threshold_qty", "updated_at"}),
	}).Create(inv).Error
}

func (r *Repository) cachedStock(ctx context.Context, menuItemID uuid.UUID) (*model.Inventory, error) {
	if r.rdb == nil {
		return nil, errNoCache
	}
	raw, err := r.rdb.Get(ctx, stockKey(menuItemID)).Bytes()
	if err != nil {
		return nil, err
	}
	var inv model.Inventory
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) cacheStock(ctx context.Context, inv *model.Inventory) {
	if r.rdb == nil {
		return
	}
	raw, err := json.Marshal(inv)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, stockKey(inv.MenuItemID), raw, r.cacheTTL).Err(); err != nil {
		r.log.Warnf("cache stock: %v", err)
	}
}
