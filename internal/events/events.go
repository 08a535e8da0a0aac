// Package events names the outbox event types and their payloads.
package events

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
)

const (
	TypeOrderPlaced          = "order.placed.v1"
	TypeOrderCancelled       = "order.cancelled.v1"
	TypeInventoryDeducted    = "inventory.deducted.success.v1"
	TypeCancellationRequired = "order.cancellation.required.v1"
	TypeOrderStatusChanged   = "order.status_changed.v1"
	TypeLowStockAlert        = "inventory.low_stock_alert.v1"
)

const (
	AggregateOrder     = "order"
	AggregateInventory = "inventory"
)

// Kind is the closed set of event kinds the dispatcher understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindOrderPlaced
	KindOrderCancelled
	KindInventoryDeducted
	KindCancellationRequired
	KindStatusChanged
	KindLowStockAlert
)

// Kinds lists every known kind, excluding KindUnknown.
func Kinds() []Kind {
	return []Kind{
		KindOrderPlaced,
		KindOrderCancelled,
		KindInventoryDeducted,
		KindCancellationRequired,
		KindStatusChanged,
		KindLowStockAlert,
	}
}

func (k Kind) String() string {
	switch k {
	case KindOrderPlaced:
		return "order_placed"
	case KindOrderCancelled:
		return "order_cancelled"
	case KindInventoryDeducted:
		return "inventory_deducted"
	case KindCancellationRequired:
		return "cancellation_required"
	case KindStatusChanged:
		return "status_changed"
	case KindLowStockAlert:
		return "low_stock_alert"
	default:
		return "unknown"
	}
}

// StatusType is the per-status notice type, e.g. order.status.preparing.v1.
func StatusType(s model.OrderStatus) string {
	return fmt.Sprintf("order.status.%s.v1", strings.ToLower(string(s)))
}

// KindOf classifies an event type string.
func KindOf(eventType string) Kind {
	switch eventType {
	case TypeOrderPlaced:
		return KindOrderPlaced
	case TypeOrderCancelled:
		return KindOrderCancelled
	case TypeInventoryDeducted:
		return KindInventoryDeducted
	case TypeCancellationRequired:
		return KindCancellationRequired
	case TypeOrderStatusChanged:
		return KindStatusChanged
	case TypeLowStockAlert:
		return KindLowStockAlert
	}
	for _, s := range model.Statuses() {
		if eventType == StatusType(s) {
			return KindStatusChanged
		}
	}
	return KindUnknown
}

// Types lists every event type string that maps to kind.
func Types(kind Kind) []string {
	switch kind {
	case KindOrderPlaced:
		return []string{TypeOrderPlaced}
	case KindOrderCancelled:
		return []string{TypeOrderCancelled}
	case KindInventoryDeducted:
		return []string{TypeInventoryDeducted}
	case KindCancellationRequired:
		return []string{TypeCancellationRequired}
	case KindStatusChanged:
		types := []string{TypeOrderStatusChanged}
		for _, s := range model.Statuses() {
			types = append(types, StatusType(s))
		}
		return types
	case KindLowStockAlert:
		return []string{TypeLowStockAlert}
	}
	return nil
}

// Item is one menu item line carried by order events.
type Item struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
}

// MenuItemIDs returns the distinct menu item ids in items.
func MenuItemIDs(items []Item) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.MenuItemID]; ok {
			continue
		}
		seen[it.MenuItemID] = struct{}{}
		ids = append(ids, it.MenuItemID)
	}
	return ids
}

type OrderPlaced struct {
	OrderID      uuid.UUID `json:"order_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Items        []Item    `json:"items"`
}

// OrderCancelled is the compensating event that credits stock back.
type OrderCancelled struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    string            `json:"user_id"`
	OldStatus model.OrderStatus `json:"old_status"`
	NewStatus model.OrderStatus `json:"new_status"`
	Items     []Item            `json:"items"`
}

type InventoryDeducted struct {
	OrderID uuid.UUID `json:"order_id"`
}

type CancellationRequired struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

type StatusChanged struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    string            `json:"user_id"`
	OldStatus model.OrderStatus `json:"old_status"`
	NewStatus model.OrderStatus `json:"new_status"`
	Reason    string            `json:"reason,omitempty"`
}

type LowStockAlert struct {
	MenuItemID         uuid.UUID `json:"menu_item_id"`
	AvailableQty       int       `json:"available_qty"`
	Threshold          int       `json:"threshold"`
	TriggeredByOrderID uuid.UUID `json:"triggered_by_order_id"`
}
