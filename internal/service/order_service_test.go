package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/repo"
	"github.com/yyogesh-03/real-time-order-management-system/internal/testutil"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*OrderService, *gorm.DB, testutil.Menu) {
	db := testutil.NewDB(t)
	menu := testutil.SeedMenu(t, db,
		testutil.StockRow{Price: 450, Qty: 100, Threshold: 10},
		testutil.StockRow{Price: 300, Qty: 5, Threshold: 10},
	)
	svc := NewOrderService(repo.NewRepository(db, nil, testutil.Logger()), testutil.Logger())
	return svc, db, menu
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestPlaceOrder(t *testing.T) {
	svc, db, menu := newTestService(t)
	ctx := context.Background()

	items := []events.Item{
		{MenuItemID: menu.Items[0].ID, Quantity: 2},
		{MenuItemID: menu.Items[1].ID, Quantity: 1},
	}
	order, err := svc.PlaceOrder(ctx, "user-12345", menu.Restaurant.ID, items)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPlaced, order.Status)
	assert.Equal(t, "1200.00", order.TotalAmount.StringFixed(2))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "900.00", order.Items[0].LineTotal.StringFixed(2))

	stored, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-12345", stored.UserID)
	assert.Len(t, stored.Items, 2)

	placed := testutil.Events(t, db, events.TypeOrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, order.ID, placed[0].AggregateID)
	var p events.OrderPlaced
	require.NoError(t, json.Unmarshal([]byte(placed[0].Payload), &p))
	assert.Equal(t, menu.Restaurant.ID, p.RestaurantID)
	assert.Equal(t, items, p.Items)

	// stock is untouched on the fast path
	assert.Equal(t, 100, testutil.Stock(t, db, menu.Items[0].ID))
}

func TestPlaceOrder_Rejections(t *testing.T) {
	svc, db, menu := newTestService(t)
	ctx := context.Background()

	closed := model.Restaurant{ID: uuid.New(), Name: "Closed", IsActive: false}
	require.NoError(t, db.Create(&closed).Error)
	other := testutil.SeedMenu(t, db, testutil.StockRow{Price: 10, Qty: 10, Threshold: 1})
	require.NoError(t, db.Model(&model.MenuItem{}).Where("id = ?", menu.Items[1].ID).Update("is_active", false).Error)

	line := func(id uuid.UUID, qty int) []events.Item {
		return []events.Item{{MenuItemID: id, Quantity: qty}}
	}
	cases := []struct {
		name         string
		restaurantID uuid.UUID
		items        []events.Item
		want         error
	}{
		{"no items", menu.Restaurant.ID, nil, ErrEmptyOrder},
		{"zero quantity", menu.Restaurant.ID, line(menu.Items[0].ID, 0), ErrInvalidQuantity},
		{"negative quantity", menu.Restaurant.ID, line(menu.Items[0].ID, -3), ErrInvalidQuantity},
		{"unknown restaurant", uuid.New(), line(menu.Items[0].ID, 1), ErrRestaurantUnavailable},
		{"inactive restaurant", closed.ID, line(menu.Items[0].ID, 1), ErrRestaurantUnavailable},
		{"inactive item", menu.Restaurant.ID, line(menu.Items[1].ID, 1), ErrMenuItemUnavailable},
		{"unknown item", menu.Restaurant.ID, line(uuid.New(), 1), ErrMenuItemUnavailable},
		{"item of another restaurant", menu.Restaurant.ID, line(other.Items[0].ID, 1), ErrMenuItemUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(ctx, "user-1", tc.restaurantID, tc.items)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Zero(t, countRows(t, db, &model.Order{}))
	assert.Zero(t, countRows(t, db, &model.OrderItem{}))
	assert.Zero(t, countRows(t, db, &model.OutboxEvent{}))
}

func TestUpdateOrderStatus_HappyPath(t *testing.T) {
	svc, db, menu := newTestService(t)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, "user-1", menu.Restaurant.ID, []events.Item{{MenuItemID: menu.Items[0].ID, Quantity: 1}})
	require.NoError(t, err)

	for _, s := range []model.OrderStatus{model.StatusPreparing, model.StatusOutForDelivery, model.StatusDelivered} {
		updated, err := svc.UpdateOrderStatus(ctx, order.ID, s)
		require.NoError(t, err)
		assert.Equal(t, s, updated.Status)
		assert.Len(t, testutil.Events(t, db, events.StatusType(s)), 1)
	}

	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.StatusCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.EqualError(t, err, "order is already in a final state: DELIVERED")

	stored, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, stored.Status)
	assert.Empty(t, testutil.Events(t, db, events.TypeOrderCancelled))

	trail, err := svc.ListOrderEvents(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, trail, 4)
	assert.Equal(t, events.TypeOrderPlaced, trail[0].EventType)
}

func TestUpdateOrderStatus_RejectsSkippedStep(t *testing.T) {
	svc, db, menu := newTestService(t)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, "user-1", menu.Restaurant.ID, []events.Item{{MenuItemID: menu.Items[0].ID, Quantity: 1}})
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.StatusDelivered)
	var te *model.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StatusPlaced, te.From)
	assert.Equal(t, model.StatusDelivered, te.To)
	assert.Empty(t, testutil.Events(t, db, events.StatusType(model.StatusDelivered)))
}

func TestCancelOrder(t *testing.T) {
	svc, db, menu := newTestService(t)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, "user-1", menu.Restaurant.ID, []events.Item{
		{MenuItemID: menu.Items[0].ID, Quantity: 2},
		{MenuItemID: menu.Items[1].ID, Quantity: 1},
	})
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.StatusPreparing)
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	evts := testutil.Events(t, db, events.TypeOrderCancelled)
	require.Len(t, evts, 1)
	var p events.OrderCancelled
	require.NoError(t, json.Unmarshal([]byte(evts[0].Payload), &p))
	assert.Equal(t, model.StatusPreparing, p.OldStatus)
	assert.Equal(t, model.StatusCancelled, p.NewStatus)
	assert.ElementsMatch(t, []events.Item{
		{MenuItemID: menu.Items[0].ID, Quantity: 2},
		{MenuItemID: menu.Items[1].ID, Quantity: 1},
	}, p.Items)

	_, err = svc.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Len(t, testutil.Events(t, db, events.TypeOrderCancelled), 1)
}

func TestCancelOrder_OutForDelivery(t *testing.T) {
	svc, _, menu := newTestService(t)
	ctx := context.Background()
	order, err := svc.PlaceOrder(ctx, "user-1", menu.Restaurant.ID, []events.Item{{MenuItemID: menu.Items[0].ID, Quantity: 1}})
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.StatusPreparing)
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, order.ID, model.StatusOutForDelivery)
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestOrderNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.UpdateOrderStatus(ctx, uuid.New(), model.StatusPreparing)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.CancelOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.ListOrderEvents(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetInventory(t *testing.T) {
	svc, _, menu := newTestService(t)
	ctx := context.Background()

	inv, err := svc.GetInventory(ctx, menu.Items[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.AvailableQty)

	_, err = svc.GetInventory(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrInventoryNotFound)
}

func TestSeedDemoData(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewOrderService(repo.NewRepository(db, nil, testutil.Logger()), testutil.Logger())
	ctx := context.Background()

	res, err := svc.SeedDemoData(ctx)
	require.NoError(t, err)
	assert.Equal(t, DemoRestaurantID, res.RestaurantID)
	assert.Equal(t, 100, testutil.Stock(t, db, DemoBiryaniID))
	assert.Equal(t, 5, testutil.Stock(t, db, DemoThaliID))

	require.NoError(t, db.Model(&model.Inventory{}).Where("menu_item_id = ?", DemoThaliID).Update("available_qty", 0).Error)
	_, err = svc.SeedDemoData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, testutil.Stock(t, db, DemoThaliID))
	assert.EqualValues(t, 2, countRows(t, db, &model.MenuItem{}))
	assert.EqualValues(t, 2, countRows(t, db, &model.Inventory{}))

	order, err := svc.PlaceOrder(ctx, "user-1", DemoRestaurantID, []events.Item{{MenuItemID: DemoBiryaniID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, "900.00", order.TotalAmount.StringFixed(2))
}
