package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition_LegalEdges(t *testing.T) {
	legal := [][2]OrderStatus{
		{StatusPlaced, StatusPreparing},
		{StatusPlaced, StatusCancelled},
		{StatusPreparing, StatusOutForDelivery},
		{StatusPreparing, StatusCancelled},
		{StatusOutForDelivery, StatusDelivered},
	}
	for _, e := range legal {
		assert.NoError(t, e[0].Transition(e[1]), "%s -> %s", e[0], e[1])
	}
}

func TestTransition_TerminalStatesReject(t *testing.T) {
	for _, from := range []OrderStatus{StatusCancelled, StatusDelivered} {
		for _, to := range Statuses() {
			err := from.Transition(to)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			var te *TransitionError
			assert.True(t, errors.As(err, &te))
			assert.Contains(t, err.Error(), "final state")
		}
	}
}

func TestTransition_OutForDeliveryCannotCancel(t *testing.T) {
	assert.ErrorIs(t, StatusOutForDelivery.Transition(StatusCancelled), ErrInvalidTransition)
	assert.ErrorIs(t, StatusPreparing.Transition(StatusPlaced), ErrInvalidTransition)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("out_for_delivery")
	assert.True(t, ok)
	assert.Equal(t, StatusOutForDelivery, st)

	_, ok = ParseStatus("shipped")
	assert.False(t, ok)
}
