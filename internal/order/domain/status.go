package domain

import (
	"fmt"
	"strings"

	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
)

type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "Pending"
	DeliveryProcessing     DeliveryStatus = "Processing"
	DeliveryShipped        DeliveryStatus = "Shipped"
	DeliveryOutForDelivery DeliveryStatus = "OutForDelivery"
	DeliveryDelivered      DeliveryStatus = "Delivered"
	DeliveryCancelled      DeliveryStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
	PaymentCOD     PaymentStatus = "COD"
)

// deliveryTransitions lists the legal next states. Cancelled is reachable
// from every non-terminal state.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:        {DeliveryProcessing, DeliveryCancelled},
	DeliveryProcessing:     {DeliveryShipped, DeliveryCancelled},
	DeliveryShipped:        {DeliveryOutForDelivery, DeliveryCancelled},
	DeliveryOutForDelivery: {DeliveryDelivered, DeliveryCancelled},
	DeliveryDelivered:      nil,
	DeliveryCancelled:      nil,
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed, PaymentCOD},
	PaymentPaid:    nil,
	PaymentFailed:  nil,
	PaymentCOD:     nil,
}

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsTerminal() bool {
	next, ok := deliveryTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether next is a legal successor. Re-writing the
// current state is allowed and is a no-op.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s == next {
		return true
	}
	for _, n := range deliveryTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) String() string { return string(s) }

func (s PaymentStatus) IsTerminal() bool {
	next, ok := paymentTransitions[s]
	return ok && len(next) == 0
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, n := range paymentTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// normalize folds case, spaces, dashes and underscores so "Out for Delivery",
// "out_for_delivery" and "OutForDelivery" compare equal.
func normalize(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	n := normalize(s)
	for st := range deliveryTransitions {
		if normalize(string(st)) == n {
			return st, nil
		}
	}
	return "", apperr.Validationf("unknown delivery status %q", s)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	n := normalize(s)
	if n == "cashondelivery" {
		return PaymentCOD, nil
	}
	for st := range paymentTransitions {
		if normalize(string(st)) == n {
			return st, nil
		}
	}
	return "", apperr.Validationf("unknown payment status %q", s)
}

var ErrIllegalTransition = apperr.Conflict("illegal status transition")

type TransitionError struct {
	Field string
	From  string
	To    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Field, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition.WithDetails(e.Error())
}
