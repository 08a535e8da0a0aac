package dispatcher

import (
	"context"

	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
)

// HandlerFunc processes one outbox event. A returned error counts as a failed attempt.
type HandlerFunc func(ctx context.Context, evt model.OutboxEvent) error

// Routes binds each event kind to its handler. A nil field leaves that kind unroutable.
type Routes struct {
	OrderPlaced          HandlerFunc
	OrderCancelled       HandlerFunc
	InventoryDeducted    HandlerFunc
	CancellationRequired HandlerFunc
	StatusChanged        HandlerFunc
	LowStockAlert        HandlerFunc
}

func (r Routes) handler(kind events.Kind) HandlerFunc {
	switch kind {
	case events.KindOrderPlaced:
		return r.OrderPlaced
	case events.KindOrderCancelled:
		return r.OrderCancelled
	case events.KindInventoryDeducted:
		return r.InventoryDeducted
	case events.KindCancellationRequired:
		return r.CancellationRequired
	case events.KindStatusChanged:
		return r.StatusChanged
	case events.KindLowStockAlert:
		return r.LowStockAlert
	case events.KindUnknown:
		return nil
	}
	return nil
}

// RoutableTypes lists the event type strings that have a handler.
func (r Routes) RoutableTypes() []string {
	var types []string
	for _, k := range events.Kinds() {
		if r.handler(k) != nil {
			types = append(types, events.Types(k)...)
		}
	}
	return types
}
