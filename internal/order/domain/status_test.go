package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
)

func TestDeliveryTransitions(t *testing.T) {
	legal := [][2]DeliveryStatus{
		{DeliveryPending, DeliveryProcessing},
		{DeliveryProcessing, DeliveryShipped},
		{DeliveryShipped, DeliveryOutForDelivery},
		{DeliveryOutForDelivery, DeliveryDelivered},
		{DeliveryPending, DeliveryCancelled},
		{DeliveryOutForDelivery, DeliveryCancelled},
		{DeliveryShipped, DeliveryShipped},
	}
	for _, tr := range legal {
		assert.True(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	illegal := [][2]DeliveryStatus{
		{DeliveryPending, DeliveryShipped},
		{DeliveryShipped, DeliveryProcessing},
		{DeliveryDelivered, DeliveryCancelled},
		{DeliveryCancelled, DeliveryPending},
	}
	for _, tr := range illegal {
		assert.False(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	assert.True(t, DeliveryDelivered.IsTerminal())
	assert.True(t, DeliveryCancelled.IsTerminal())
	assert.False(t, DeliveryShipped.IsTerminal())
}

func TestPaymentTransitions(t *testing.T) {
	for _, next := range []PaymentStatus{PaymentPaid, PaymentFailed, PaymentCOD} {
		assert.True(t, PaymentPending.CanTransitionTo(next))
		assert.True(t, next.IsTerminal())
		assert.False(t, next.CanTransitionTo(PaymentPending))
	}
	assert.False(t, PaymentPaid.CanTransitionTo(PaymentFailed))
}

func TestParseStatusIsLenient(t *testing.T) {
	for _, in := range []string{"OutForDelivery", "out for delivery", "OUT_FOR_DELIVERY", " out-for-delivery "} {
		st, err := ParseDeliveryStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, DeliveryOutForDelivery, st)
	}

	st, err := ParsePaymentStatus("cash on delivery")
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, st)

	_, err = ParseDeliveryStatus("lost")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTransitionErrorIsConflict(t *testing.T) {
	var err error = &TransitionError{Field: "deliveryStatus", From: "Delivered", To: "Pending"}

	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "Delivered", te.From)
}
