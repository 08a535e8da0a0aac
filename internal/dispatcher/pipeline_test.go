package dispatcher_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyogesh-03/real-time-order-management-system/internal/consumer"
	"github.com/yyogesh-03/real-time-order-management-system/internal/dispatcher"
	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/repo"
	"github.com/yyogesh-03/real-time-order-management-system/internal/service"
	"github.com/yyogesh-03/real-time-order-management-system/internal/testutil"
	"gorm.io/gorm"
)

type capture struct {
	mu   sync.Mutex
	evts []model.OutboxEvent
}

func (c *capture) Publish(_ context.Context, evt model.OutboxEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evts = append(c.evts, evt)
	return nil
}

func (c *capture) Close() error { return nil }

func (c *capture) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.evts))
	for i, e := range c.evts {
		out[i] = e.EventType
	}
	return out
}

type pipeline struct {
	db   *gorm.DB
	svc  *service.OrderService
	disp *dispatcher.Dispatcher
	sink *capture
	menu testutil.Menu
}

// newPipeline seeds item A (qty 5, threshold 10) and item B (qty 1, threshold 1).
func newPipeline(t *testing.T) *pipeline {
	db := testutil.NewDB(t)
	log := testutil.Logger()
	r := repo.NewRepository(db, nil, log)
	sink := &capture{}

	inventory := consumer.NewInventoryConsumer(r, log)
	status := consumer.NewOrderStatusConsumer(r, log)
	notifications := consumer.NewNotificationConsumer(sink, log)
	routes := dispatcher.Routes{
		OrderPlaced:          inventory.HandleOrderPlaced,
		OrderCancelled:       inventory.HandleOrderCancelled,
		InventoryDeducted:    status.HandleInventoryDeducted,
		CancellationRequired: status.HandleCancellationRequired,
		StatusChanged:        notifications.HandleStatusChanged,
		LowStockAlert:        notifications.HandleLowStockAlert,
	}
	cfg := dispatcher.Config{PollInterval: time.Millisecond, MaxAttempts: 3, BatchSize: 50, HandlerTimeout: 5 * time.Second}

	return &pipeline{
		db:   db,
		svc:  service.NewOrderService(r, log),
		disp: dispatcher.New(r, routes, cfg, log),
		sink: sink,
		menu: testutil.SeedMenu(t, db,
			testutil.StockRow{Price: 450, Qty: 5, Threshold: 10},
			testutil.StockRow{Price: 300, Qty: 1, Threshold: 1},
		),
	}
}

// drain dispatches until a cycle claims nothing.
func (p *pipeline) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 20; i++ {
		n, err := p.disp.RunOnce(context.Background())
		require.NoError(t, err)
		if n == 0 {
			return
		}
	}
	t.Fatal("outbox did not drain")
}

func (p *pipeline) status(t *testing.T, o *model.Order) model.OrderStatus {
	t.Helper()
	stored, err := p.svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	return stored.Status
}

func (p *pipeline) undelivered(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, p.db.Model(&model.OutboxEvent{}).Where("delivered = ?", false).Count(&n).Error)
	return n
}

func TestPipeline_OrderDeductsAndPrepares(t *testing.T) {
	p := newPipeline(t)
	a := p.menu.Items[0]

	order, err := p.svc.PlaceOrder(context.Background(), "user-1", p.menu.Restaurant.ID, []events.Item{{MenuItemID: a.ID, Quantity: 2}})
	require.NoError(t, err)
	p.drain(t)

	assert.Equal(t, 3, testutil.Stock(t, p.db, a.ID))
	assert.Equal(t, model.StatusPreparing, p.status(t, order))
	assert.ElementsMatch(t, []string{events.TypeLowStockAlert, events.StatusType(model.StatusPreparing)}, p.sink.types())

	var alert events.LowStockAlert
	for _, e := range p.sink.evts {
		if e.EventType == events.TypeLowStockAlert {
			require.NoError(t, json.Unmarshal([]byte(e.Payload), &alert))
		}
	}
	assert.Equal(t, 3, alert.AvailableQty)
	assert.Equal(t, order.ID, alert.TriggeredByOrderID)
	assert.Zero(t, p.undelivered(t))
}

func TestPipeline_ShortageCancelsOrder(t *testing.T) {
	p := newPipeline(t)
	b := p.menu.Items[1]

	order, err := p.svc.PlaceOrder(context.Background(), "user-1", p.menu.Restaurant.ID, []events.Item{{MenuItemID: b.ID, Quantity: 5}})
	require.NoError(t, err)
	p.drain(t)

	assert.Equal(t, 1, testutil.Stock(t, p.db, b.ID))
	assert.Equal(t, model.StatusCancelled, p.status(t, order))
	assert.Equal(t, []string{events.StatusType(model.StatusCancelled)}, p.sink.types())
	assert.Empty(t, testutil.Events(t, p.db, events.TypeOrderCancelled))
	assert.Empty(t, testutil.Events(t, p.db, events.TypeInventoryDeducted))
	assert.Zero(t, p.undelivered(t))
}

func TestPipeline_CancelPreparingRestoresStock(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	a := p.menu.Items[0]

	order, err := p.svc.PlaceOrder(ctx, "user-1", p.menu.Restaurant.ID, []events.Item{{MenuItemID: a.ID, Quantity: 2}})
	require.NoError(t, err)
	p.drain(t)
	require.Equal(t, model.StatusPreparing, p.status(t, order))
	require.Equal(t, 3, testutil.Stock(t, p.db, a.ID))

	_, err = p.svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	p.drain(t)

	assert.Equal(t, 5, testutil.Stock(t, p.db, a.ID))
	assert.Equal(t, model.StatusCancelled, p.status(t, order))
	assert.Zero(t, p.undelivered(t))

	_, err = p.svc.UpdateOrderStatus(ctx, order.ID, model.StatusOutForDelivery)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestPipeline_CancelBeforeDeduction(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	a := p.menu.Items[0]

	order, err := p.svc.PlaceOrder(ctx, "user-1", p.menu.Restaurant.ID, []events.Item{{MenuItemID: a.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = p.svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	p.drain(t)

	assert.Equal(t, 5, testutil.Stock(t, p.db, a.ID), "stock is neither deducted nor credited")
	assert.Equal(t, model.StatusCancelled, p.status(t, order))
	assert.Empty(t, testutil.Events(t, p.db, events.TypeInventoryDeducted))
}

func TestPipeline_ManualPreparingStillDeducts(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	a := p.menu.Items[0]

	order, err := p.svc.PlaceOrder(ctx, "user-1", p.menu.Restaurant.ID, []events.Item{{MenuItemID: a.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = p.svc.UpdateOrderStatus(ctx, order.ID, model.StatusPreparing)
	require.NoError(t, err)
	p.drain(t)

	assert.Equal(t, 3, testutil.Stock(t, p.db, a.ID))
	assert.Len(t, testutil.Events(t, p.db, events.TypeInventoryDeducted), 1)
	assert.Equal(t, model.StatusPreparing, p.status(t, order))
	assert.Zero(t, p.undelivered(t))

	// the deduction is on record, so a later cancel credits it back
	_, err = p.svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	p.drain(t)
	assert.Equal(t, 5, testutil.Stock(t, p.db, a.ID))
}

func TestPipeline_ChainCompletes(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	a, b := p.menu.Items[0], p.menu.Items[1]

	ok, err := p.svc.PlaceOrder(ctx, "user-1", p.menu.Restaurant.ID, []events.Item{{MenuItemID: a.ID, Quantity: 1}})
	require.NoError(t, err)
	short, err := p.svc.PlaceOrder(ctx, "user-2", p.menu.Restaurant.ID, []events.Item{
		{MenuItemID: a.ID, Quantity: 1},
		{MenuItemID: b.ID, Quantity: 2},
	})
	require.NoError(t, err)
	p.drain(t)

	// a placed order ends in PREPARING or CANCELLED, never stuck in PLACED
	assert.Equal(t, model.StatusPreparing, p.status(t, ok))
	assert.Equal(t, model.StatusCancelled, p.status(t, short))
	assert.Equal(t, 4, testutil.Stock(t, p.db, a.ID))
	assert.Equal(t, 1, testutil.Stock(t, p.db, b.ID))
	assert.Zero(t, p.undelivered(t))
	assert.Equal(t, 0, int(p.disp.Stuck().Exhausted+p.disp.Stuck().Unroutable))
}
