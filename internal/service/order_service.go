package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrInventoryNotFound     = errors.New("inventory not found for item")
	ErrRestaurantUnavailable = errors.New("restaurant not found or is inactive")
	ErrMenuItemUnavailable   = errors.New("menu item not found or inactive")
	ErrEmptyOrder            = errors.New("order must contain items")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
)

// OrderService is the fast path: it only writes orders and their outbox events.
// Stock is checked later by the inventory consumer.
type OrderService struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

func NewOrderService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *OrderService {
	return &OrderService{repo: r, log: logger}
}

// PlaceOrder stores a PLACED order, its lines and order.placed.v1 in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, restaurantID uuid.UUID, items []events.Item) (*model.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %s has quantity %d", ErrInvalidQuantity, it.MenuItemID, it.Quantity)
		}
	}

	order := &model.Order{
		ID:           uuid.New(),
		UserID:       userID,
		RestaurantID: restaurantID,
		Status:       model.StatusPlaced,
	}
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		rest, err := s.repo.GetRestaurant(ctx, tx, restaurantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRestaurantUnavailable
		}
		if err != nil {
			return err
		}
		if !rest.IsActive {
			return ErrRestaurantUnavailable
		}

		menu, err := s.repo.ActiveMenuItems(ctx, tx, restaurantID, events.MenuItemIDs(items))
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, it := range items {
			m, ok := menu[it.MenuItemID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMenuItemUnavailable, it.MenuItemID)
			}
			line := m.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			total = total.Add(line)
			order.Items = append(order.Items, model.OrderItem{
				MenuItemID: it.MenuItemID,
				Quantity:   it.Quantity,
				UnitPrice:  m.Price,
				LineTotal:  line,
			})
		}
		order.TotalAmount = total

		if err := s.repo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		_, err = s.repo.AppendOutbox(ctx, tx, events.AggregateOrder, order.ID, events.TypeOrderPlaced, events.OrderPlaced{
			OrderID:      order.ID,
			RestaurantID: restaurantID,
			Items:        items,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("order %s placed by %s, total %s", order.ID, userID, order.TotalAmount.StringFixed(2))
	return order, nil
}

// UpdateOrderStatus applies a user-driven transition. CANCELLED emits
// order.cancelled.v1 with the lines to restore; every other status emits
// order.status.<status>.v1.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	var order *model.Order
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.GetOrderForUpdate(ctx, tx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		old := order.Status
		if err := old.Transition(status); err != nil {
			return err
		}
		if err := s.repo.SetOrderStatus(ctx, tx, orderID, status); err != nil {
			return err
		}
		order.Status = status

		if status == model.StatusCancelled {
			lines := make([]events.Item, len(order.Items))
			for i, it := range order.Items {
				lines[i] = events.Item{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
			}
			_, err = s.repo.AppendOutbox(ctx, tx, events.AggregateOrder, orderID, events.TypeOrderCancelled, events.OrderCancelled{
				OrderID:   orderID,
				UserID:    order.UserID,
				OldStatus: old,
				NewStatus: status,
				Items:     lines,
			})
			return err
		}
		_, err = s.repo.AppendOutbox(ctx, tx, events.AggregateOrder, orderID, events.StatusType(status), events.StatusChanged{
			OrderID:   orderID,
			UserID:    order.UserID,
			OldStatus: old,
			NewStatus: status,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("order %s status updated to %s", orderID, status)
	return order, nil
}

// CancelOrder cancels a PLACED or PREPARING order and queues stock restoration.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.UpdateOrderStatus(ctx, orderID, model.StatusCancelled)
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// ListOrderEvents returns the order's outbox audit trail, oldest first.
func (s *OrderService) ListOrderEvents(ctx context.Context, orderID uuid.UUID) ([]model.OutboxEvent, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListOutbox(ctx, orderID)
}

func (s *OrderService) GetInventory(ctx context.Context, menuItemID uuid.UUID) (*model.Inventory, error) {
	inv, err := s.repo.GetInventory(ctx, menuItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInventoryNotFound
	}
	return inv, err
}
