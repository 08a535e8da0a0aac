package model

import (
	"errors"
	"fmt"
	"strings"
)

type OrderStatus string

const (
	StatusPlaced         OrderStatus = "PLACED"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a rejected status change.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	if e.From.Terminal() {
		return fmt.Sprintf("order is already in a final state: %s", e.From)
	}
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

var transitions = map[OrderStatus][]OrderStatus{
	StatusPlaced:         {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered},
}

// Statuses returns every status in lifecycle order.
func Statuses() []OrderStatus {
	return []OrderStatus{StatusPlaced, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled}
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses() {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Transition validates s -> to against the order lifecycle.
func (s OrderStatus) Transition(to OrderStatus) error {
	for _, next := range transitions[s] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: s, To: to}
}
