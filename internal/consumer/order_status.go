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

const defaultCancelReason = "Inventory check failed."

// OrderStatusConsumer moves orders forward in response to inventory outcomes.
type OrderStatusConsumer struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

func NewOrderStatusConsumer(r repo.RepositoryInterface, logger *zap.SugaredLogger) *OrderStatusConsumer {
	return &OrderStatusConsumer{repo: r, log: logger}
}

// HandleInventoryDeducted handles inventory.deducted.success.v1: PLACED -> PREPARING.
func (c *OrderStatusConsumer) HandleInventoryDeducted(ctx context.Context, evt model.OutboxEvent) error {
	var p events.InventoryDeducted
	if err := decode(evt, &p); err != nil {
		return err
	}
	return c.advance(ctx, evt, p.OrderID, model.StatusPreparing, "", model.StatusPlaced)
}

// HandleCancellationRequired handles order.cancellation.required.v1: PLACED or PREPARING -> CANCELLED.
// Nothing was deducted for such an order, so no restoration event is emitted.
func (c *OrderStatusConsumer) HandleCancellationRequired(ctx context.Context, evt model.OutboxEvent) error {
	var p events.CancellationRequired
	if err := decode(evt, &p); err != nil {
		return err
	}
	reason := p.Reason
	if reason == "" {
		reason = defaultCancelReason
	}
	return c.advance(ctx, evt, p.OrderID, model.StatusCancelled, reason, model.StatusPlaced, model.StatusPreparing)
}

func (c *OrderStatusConsumer) advance(ctx context.Context, evt model.OutboxEvent, orderID uuid.UUID, to model.OrderStatus, reason string, from ...model.OrderStatus) error {
	err := c.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := c.repo.IsProcessed(ctx, tx, OrderStatusConsumerName, evt.ID)
		if err != nil || done {
			return err
		}

		order, err := c.repo.GetOrderForUpdate(ctx, tx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.log.Warnf("order %s not found for %s", orderID, evt.EventType)
			return c.repo.MarkProcessed(ctx, tx, OrderStatusConsumerName, evt.ID)
		}
		if err != nil {
			return err
		}

		if !eligible(order.Status, from) {
			c.log.Infof("order %s already %s, ignoring %s", orderID, order.Status, evt.EventType)
			return c.repo.MarkProcessed(ctx, tx, OrderStatusConsumerName, evt.ID)
		}
		if err := order.Status.Transition(to); err != nil {
			return err
		}
		if err := c.repo.SetOrderStatus(ctx, tx, orderID, to); err != nil {
			return err
		}
		if _, err := c.repo.AppendOutbox(ctx, tx, events.AggregateOrder, orderID, events.StatusType(to), events.StatusChanged{
			OrderID:   orderID,
			UserID:    order.UserID,
			OldStatus: order.Status,
			NewStatus: to,
			Reason:    reason,
		}); err != nil {
			return err
		}
		if reason != "" {
			c.log.Infof("order %s moved to %s: %s", orderID, to, reason)
		} else {
			c.log.Infof("order %s moved to %s", orderID, to)
		}
		return c.repo.MarkProcessed(ctx, tx, OrderStatusConsumerName, evt.ID)
	})
	if err != nil {
		return fmt.Errorf("advance order %s to %s: %w", orderID, to, err)
	}
	return nil
}

func eligible(s model.OrderStatus, from []model.OrderStatus) bool {
	for _, f := range from {
		if s == f {
			return true
		}
	}
	return false
}
