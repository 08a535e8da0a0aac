package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
)

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"order.placed.v1":                  KindOrderPlaced,
		"order.cancelled.v1":               KindOrderCancelled,
		"inventory.deducted.success.v1":    KindInventoryDeducted,
		"order.cancellation.required.v1":   KindCancellationRequired,
		"order.status_changed.v1":          KindStatusChanged,
		"order.status.preparing.v1":        KindStatusChanged,
		"order.status.out_for_delivery.v1": KindStatusChanged,
		"inventory.low_stock_alert.v1":     KindLowStockAlert,
		"payment.captured.v1":              KindUnknown,
		"":                                 KindUnknown,
	}
	for typ, want := range cases {
		assert.Equal(t, want, KindOf(typ), typ)
	}
}

func TestTypesRoundTrip(t *testing.T) {
	assert.NotContains(t, Kinds(), KindUnknown)
	for _, k := range Kinds() {
		types := Types(k)
		assert.NotEmpty(t, types, k.String())
		for _, typ := range types {
			assert.Equal(t, k, KindOf(typ), typ)
		}
	}
	assert.Empty(t, Types(KindUnknown))
}

func TestStatusType(t *testing.T) {
	assert.Equal(t, "order.status.out_for_delivery.v1", StatusType(model.StatusOutForDelivery))
}

func TestMenuItemIDsDeduplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ids := MenuItemIDs([]Item{{MenuItemID: a, Quantity: 1}, {MenuItemID: b, Quantity: 2}, {MenuItemID: a, Quantity: 3}})
	assert.Equal(t, []uuid.UUID{a, b}, ids)
}
