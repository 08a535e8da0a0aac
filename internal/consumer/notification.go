package consumer

import (
	"context"
	"fmt"

	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/notify"
	"go.uber.org/zap"
)

// NotificationConsumer forwards terminal events to the external notification sink.
// Delivery is at-least-once; downstream readers dedupe on the event_id header.
type NotificationConsumer struct {
	pub notify.Publisher
	log *zap.SugaredLogger
}

func NewNotificationConsumer(pub notify.Publisher, logger *zap.SugaredLogger) *NotificationConsumer {
	return &NotificationConsumer{pub: pub, log: logger}
}

// HandleStatusChanged handles order.status_changed.v1 and order.status.<status>.v1.
func (c *NotificationConsumer) HandleStatusChanged(ctx context.Context, evt model.OutboxEvent) error {
	var p events.StatusChanged
	if err := decode(evt, &p); err != nil {
		return err
	}
	c.log.Infof("order %s status updated to %s", p.OrderID, p.NewStatus)
	return c.forward(ctx, evt)
}

// HandleLowStockAlert handles inventory.low_stock_alert.v1.
func (c *NotificationConsumer) HandleLowStockAlert(ctx context.Context, evt model.OutboxEvent) error {
	var p events.LowStockAlert
	if err := decode(evt, &p); err != nil {
		return err
	}
	c.log.Warnf("SYSTEM ALERT: item %s has low stock (%d remaining, threshold %d)", p.MenuItemID, p.AvailableQty, p.Threshold)
	return c.forward(ctx, evt)
}

func (c *NotificationConsumer) forward(ctx context.Context, evt model.OutboxEvent) error {
	if err := c.pub.Publish(ctx, evt); err != nil {
		return fmt.Errorf("publish %s %s: %w", evt.EventType, evt.ID, err)
	}
	return nil
}
