package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShortageError aborts a deduction when one line cannot be covered.
type ShortageError struct {
	MenuItemID uuid.UUID
	Requested  int
	Available  int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient inventory: %s. Requested: %d, Available: %d", e.MenuItemID, e.Requested, e.Available)
}

// InventoryConsumer deducts stock for placed orders and credits it back for cancelled ones.
type InventoryConsumer struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

func NewInventoryConsumer(r repo.RepositoryInterface, logger *zap.SugaredLogger) *InventoryConsumer {
	return &InventoryConsumer{repo: r, log: logger}
}

// quantities sums requested quantity per menu item, keeping first-seen order.
func quantities(items []events.Item) ([]uuid.UUID, map[uuid.UUID]int) {
	ids := events.MenuItemIDs(items)
	qty := make(map[uuid.UUID]int, len(ids))
	for _, it := range items {
		qty[it.MenuItemID] += it.Quantity
	}
	return ids, qty
}

// HandleOrderPlaced handles order.placed.v1. Either every line is deducted or none is;
// a shortage turns into order.cancellation.required.v1 instead of a retry.
func (c *InventoryConsumer) HandleOrderPlaced(ctx context.Context, evt model.OutboxEvent) error {
	var p events.OrderPlaced
	if err := decode(evt, &p); err != nil {
		return err
	}
	ids, need := quantities(p.Items)

	var shortage *ShortageError
	deducted := false
	err := c.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := c.repo.IsProcessed(ctx, tx, InventoryConsumerName, evt.ID)
		if err != nil || done {
			return err
		}

		order, err := c.repo.GetOrderForUpdate(ctx, tx, p.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.log.Warnf("order %s not found, skipping deduction", p.OrderID)
			return c.repo.MarkProcessed(ctx, tx, InventoryConsumerName, evt.ID)
		}
		if err != nil {
			return err
		}
		// a cancelled order never gets its deduction; any later status still consumed the stock
		if order.Status == model.StatusCancelled {
			c.log.Infof("order %s was cancelled before deduction, skipping", p.OrderID)
			return c.repo.MarkProcessed(ctx, tx, InventoryConsumerName, evt.ID)
		}

		locked, err := c.repo.LockInventory(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("lock inventory: %w", err)
		}
		for _, id := range ids {
			inv, ok := locked[id]
			if !ok {
				shortage = &ShortageError{MenuItemID: id, Requested: need[id]}
				return shortage
			}
			if inv.AvailableQty < need[id] {
				shortage = &ShortageError{MenuItemID: id, Requested: need[id], Available: inv.AvailableQty}
				return shortage
			}
		}

		for _, id := range ids {
			inv := locked[id]
			inv.AvailableQty -= need[id]
			if err := c.repo.SetAvailableQty(ctx, tx, inv); err != nil {
				return fmt.Errorf("update inventory %s: %w", id, err)
			}
			if inv.LowStock() {
				c.log.Warnf("low stock for item %s: %d left (threshold %d)", id, inv.AvailableQty, inv.ThresholdQty)
				if _, err := c.repo.AppendOutbox(ctx, tx, events.AggregateInventory, inv.ID, events.TypeLowStockAlert, events.LowStockAlert{
					MenuItemID:         id,
					AvailableQty:       inv.AvailableQty,
					Threshold:          inv.ThresholdQty,
					TriggeredByOrderID: p.OrderID,
				}); err != nil {
					return err
				}
			}
		}

		if err := c.repo.MarkProcessed(ctx, tx, InventoryConsumerName, evt.ID); err != nil {
			return err
		}
		if _, err := c.repo.AppendOutbox(ctx, tx, events.AggregateOrder, p.OrderID, events.TypeInventoryDeducted,
			events.InventoryDeducted{OrderID: p.OrderID}); err != nil {
			return err
		}
		deducted = true
		return nil
	})
	if errors.As(err, &shortage) {
		return c.requireCancellation(ctx, evt, p.OrderID, shortage)
	}
	if err != nil {
		return fmt.Errorf("deduct inventory for order %s: %w", p.OrderID, err)
	}
	if deducted {
		c.repo.InvalidateStock(ctx, ids...)
		c.log.Infof("inventory deducted for order %s", p.OrderID)
	}
	return nil
}

// requireCancellation records the event as handled and asks for the order to be
// cancelled, in a transaction of its own after the deduction rolled back.
func (c *InventoryConsumer) requireCancellation(ctx context.Context, evt model.OutboxEvent, orderID uuid.UUID, cause *ShortageError) error {
	err := c.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := c.repo.IsProcessed(ctx, tx, InventoryConsumerName, evt.ID)
		if err != nil || done {
			return err
		}
		if err := c.repo.MarkProcessed(ctx, tx, InventoryConsumerName, evt.ID); err != nil {
			return err
		}
		_, err = c.repo.AppendOutbox(ctx, tx, events.AggregateOrder, orderID, events.TypeCancellationRequired,
			events.CancellationRequired{OrderID: orderID, Reason: cause.Error()})
		return err
	})
	if err != nil {
		return fmt.Errorf("request cancellation of order %s: %w", orderID, err)
	}
	c.log.Warnf("inventory deduction failed for order %s: %v", orderID, cause)
	return nil
}

// HandleOrderCancelled handles order.cancelled.v1. Stock is credited back only when
// the order's deduction committed; menu items that no longer exist are skipped.
func (c *InventoryConsumer) HandleOrderCancelled(ctx context.Context, evt model.OutboxEvent) error {
	var p events.OrderCancelled
	if err := decode(evt, &p); err != nil {
		c.log.Errorw("CRITICAL: inventory restoration failed",
			"order_id", evt.AggregateID, "event_id", evt.ID, "error", err)
		return err
	}
	ids, qty := quantities(p.Items)

	var restored []uuid.UUID
	err := c.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := c.repo.IsProcessed(ctx, tx, InventoryConsumerName, evt.ID)
		if err != nil || done {
			return err
		}

		wasDeducted, err := c.repo.HasOutboxEvent(ctx, tx, p.OrderID, events.TypeInventoryDeducted)
		if err != nil {
			return err
		}
		if !wasDeducted {
			c.log.Infof("order %s never deducted stock, nothing to restore", p.OrderID)
			return c.repo.MarkProcessed(ctx, tx, InventoryConsumerName, evt.ID)
		}

		locked, err := c.repo.LockInventory(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("lock inventory: %w", err)
		}
		for _, id := range ids {
			inv, ok := locked[id]
			if !ok {
				c.log.Warnf("inventory for item %s not found, skipping restoration", id)
				continue
			}
			inv.AvailableQty += qty[id]
			if err := c.repo.SetAvailableQty(ctx, tx, inv); err != nil {
				return fmt.Errorf("update inventory %s: %w", id, err)
			}
			restored = append(restored, id)
		}
		return c.repo.MarkProcessed(ctx, tx, InventoryConsumerName, evt.ID)
	})
	if err != nil {
		c.log.Errorw("CRITICAL: inventory restoration failed",
			"order_id", p.OrderID, "event_id", evt.ID, "error", err)
		return fmt.Errorf("restore inventory for order %s: %w", p.OrderID, err)
	}
	if len(restored) > 0 {
		c.repo.InvalidateStock(ctx, restored...)
		c.log.Infof("inventory restored for order %s", p.OrderID)
	}
	return nil
}
