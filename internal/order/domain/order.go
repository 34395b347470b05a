package domain

import (
	"time"

	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

var (
	ErrOrderNotFound      = apperr.NotFound("order not found")
	ErrOrderExists        = apperr.Conflict("order already exists")
	ErrEmptyCart          = apperr.Validation("cart is empty")
	ErrNoProducts         = apperr.Validation("products must not be empty")
	ErrUserRequired       = apperr.Validation("user is required")
	ErrAddressRequired    = apperr.Validation("address is required")
	ErrDeliveryDateNeeded = apperr.Validation("estimatedDelivery is required")
	ErrAddressLocked      = apperr.Conflict("address can no longer change")
)

// Line is one purchased product. Size and unit price are snapshotted from
// the cart so the order stays a faithful record after the cart is gone.
type Line struct {
	ProductID string      `json:"product"`
	Quantity  int         `json:"quantity"`
	Size      string      `json:"size,omitempty"`
	UnitPrice money.Money `json:"unitPrice"`
}

type Order struct {
	ID                string         `json:"id"`
	User              string         `json:"user"`
	Products          []Line         `json:"products"`
	DeliveryStatus    DeliveryStatus `json:"deliveryStatus"`
	PaymentStatus     PaymentStatus  `json:"paymentStatus"`
	Address           string         `json:"address"`
	TotalAmount       money.Money    `json:"totalAmount"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	DeliveryStatus    *DeliveryStatus
	PaymentStatus     *PaymentStatus
	Address           *string
	EstimatedDelivery *time.Time
}

type StatusChange struct {
	Field string
	From  string
	To    string
}

// Apply validates every field of p before changing anything, so a rejected
// patch leaves the order untouched. It returns the status fields that
// actually changed.
func (o *Order) Apply(p Patch, now time.Time) ([]StatusChange, error) {
	if p.DeliveryStatus != nil && !o.DeliveryStatus.CanTransitionTo(*p.DeliveryStatus) {
		return nil, &TransitionError{Field: "deliveryStatus", From: string(o.DeliveryStatus), To: string(*p.DeliveryStatus)}
	}
	if p.PaymentStatus != nil && !o.PaymentStatus.CanTransitionTo(*p.PaymentStatus) {
		return nil, &TransitionError{Field: "paymentStatus", From: string(o.PaymentStatus), To: string(*p.PaymentStatus)}
	}
	if p.Address != nil {
		if *p.Address == "" {
			return nil, ErrAddressRequired
		}
		if *p.Address != o.Address && o.DeliveryStatus != DeliveryPending && o.DeliveryStatus != DeliveryProcessing {
			return nil, ErrAddressLocked.WithDetails("order is " + string(o.DeliveryStatus))
		}
	}
	if p.EstimatedDelivery != nil && p.EstimatedDelivery.IsZero() {
		return nil, ErrDeliveryDateNeeded
	}

	var changes []StatusChange
	if p.DeliveryStatus != nil && *p.DeliveryStatus != o.DeliveryStatus {
		changes = append(changes, StatusChange{Field: "deliveryStatus", From: string(o.DeliveryStatus), To: string(*p.DeliveryStatus)})
		o.DeliveryStatus = *p.DeliveryStatus
	}
	if p.PaymentStatus != nil && *p.PaymentStatus != o.PaymentStatus {
		changes = append(changes, StatusChange{Field: "paymentStatus", From: string(o.PaymentStatus), To: string(*p.PaymentStatus)})
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.Address != nil {
		o.Address = *p.Address
	}
	if p.EstimatedDelivery != nil {
		o.EstimatedDelivery = p.EstimatedDelivery.UTC()
	}
	o.UpdatedAt = now
	return changes, nil
}

func (o Order) Clone() Order {
	cp := o
	cp.Products = make([]Line, len(o.Products))
	copy(cp.Products, o.Products)
	return cp
}
