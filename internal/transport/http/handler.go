package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/service"
	"go.uber.org/zap"
)

const userIDHeader = "X-User-ID"

type handlers struct {
	svc           *service.OrderService
	log           *zap.SugaredLogger
	defaultUserID string
}

func (h *handlers) register(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateStatus)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.GET("/orders/:id/events", h.orderEvents)
		v1.GET("/inventory/:menu_item_id", h.getInventory)
		v1.POST("/inventory/seed", h.seed)
	}
}

type orderItemReq struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
}

type placeOrderReq struct {
	RestaurantID uuid.UUID      `json:"restaurant_id" binding:"required"`
	Items        []orderItemReq `json:"items"`
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

type orderAck struct {
	OrderID     uuid.UUID         `json:"order_id"`
	Status      model.OrderStatus `json:"status"`
	TotalAmount string            `json:"total_amount"`
	Message     string            `json:"message"`
}

type orderLine struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	LineTotal  string    `json:"line_total"`
}

type orderDetail struct {
	ID           uuid.UUID         `json:"id"`
	UserID       string            `json:"user_id"`
	RestaurantID uuid.UUID         `json:"restaurant_id"`
	Status       model.OrderStatus `json:"status"`
	TotalAmount  string            `json:"total_amount"`
	Items        []orderLine       `json:"items"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type eventView struct {
	ID          uuid.UUID       `json:"id"`
	EventType   string          `json:"event_type"`
	Delivered   bool            `json:"delivered"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
}

type inventoryView struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	AvailableQty int       `json:"available_qty"`
	ThresholdQty int       `json:"threshold_qty"`
	LowStock     bool      `json:"low_stock"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ack(o *model.Order, msg string) orderAck {
	return orderAck{OrderID: o.ID, Status: o.Status, TotalAmount: o.TotalAmount.StringFixed(2), Message: msg}
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, "validation_error", fmt.Sprintf("invalid %s: %q", name, c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	userID := c.GetHeader(userIDHeader)
	if userID == "" {
		userID = h.defaultUserID
	}
	items := make([]events.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = events.Item{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
	}

	order, err := h.svc.PlaceOrder(c.Request.Context(), userID, req.RestaurantID, items)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	respond(c, http.StatusAccepted, ack(order, "Order accepted. Processing inventory in background."))
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.GetOrder(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	detail := orderDetail{
		ID:           o.ID,
		UserID:       o.UserID,
		RestaurantID: o.RestaurantID,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount.StringFixed(2),
		Items:        make([]orderLine, len(o.Items)),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for i, it := range o.Items {
		detail.Items[i] = orderLine{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.StringFixed(2),
			LineTotal:  it.LineTotal.StringFixed(2),
		}
	}
	respond(c, http.StatusOK, detail)
}

func (h *handlers) updateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	status, ok := model.ParseStatus(req.Status)
	if !ok {
		fail(c, http.StatusUnprocessableEntity, "validation_error", fmt.Sprintf("unknown status %q", req.Status))
		return
	}
	o, err := h.svc.UpdateOrderStatus(c.Request.Context(), id, status)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, ack(o, fmt.Sprintf("Order status successfully updated to %s", o.Status)))
}

func (h *handlers) cancelOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.CancelOrder(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, ack(o, "Order cancelled. Inventory restoration queued."))
}

func (h *handlers) orderEvents(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	evts, err := h.svc.ListOrderEvents(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	out := make([]eventView, len(evts))
	for i, e := range evts {
		out[i] = eventView{
			ID:          e.ID,
			EventType:   e.EventType,
			Delivered:   e.Delivered,
			Attempts:    e.Attempts,
			LastError:   e.LastError,
			Payload:     json.RawMessage(e.Payload),
			CreatedAt:   e.CreatedAt,
			DeliveredAt: e.DeliveredAt,
		}
	}
	respond(c, http.StatusOK, out)
}

func (h *handlers) getInventory(c *gin.Context) {
	id, ok := uuidParam(c, "menu_item_id")
	if !ok {
		return
	}
	inv, err := h.svc.GetInventory(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, inventoryView{
		MenuItemID:   inv.MenuItemID,
		AvailableQty: inv.AvailableQty,
		ThresholdQty: inv.ThresholdQty,
		LowStock:     inv.LowStock(),
		UpdatedAt:    inv.UpdatedAt,
	})
}

func (h *handlers) seed(c *gin.Context) {
	res, err := h.svc.SeedDemoData(c.Request.Context())
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, res)
}
