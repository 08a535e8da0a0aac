// Package consumer holds the business handlers the dispatcher invokes for outbox events.
// Each handler is idempotent per (consumer, event id) and commits its ledger row
// together with its own mutation.
package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
)

// Ledger names; each consumer keeps its own idempotency window.
const (
	InventoryConsumerName   = "inventory"
	OrderStatusConsumerName = "order-status"
)

func decode(evt model.OutboxEvent, v interface{}) error {
	if err := json.Unmarshal([]byte(evt.Payload), v); err != nil {
		return fmt.Errorf("decode %s %s: %w", evt.EventType, evt.ID, err)
	}
	return nil
}
