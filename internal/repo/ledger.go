package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"gorm.io/gorm"
)

// IsProcessed checks the idempotency ledger.
func (r *Repository) IsProcessed(ctx context.Context, tx *gorm.DB, consumer string, eventID uuid.UUID) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.ProcessedEvent{}).
		Where("consumer = ? AND event_id = ?", consumer, eventID).
		Count(&n).Error
	return n > 0, err
}

// MarkProcessed inserts the ledger row. A duplicate fails on the primary key,
// which rolls back a racing consumer's transaction.
func (r *Repository) MarkProcessed(ctx context.Context, tx *gorm.DB, consumer string, eventID uuid.UUID) error {
	return tx.WithContext(ctx).Create(&model.ProcessedEvent{Consumer: consumer, EventID: eventID}).Error
}
