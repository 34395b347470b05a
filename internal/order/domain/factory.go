package domain

import (
	"strings"
	"time"

	cart "github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/apperr"
	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

type CreateInput struct {
	User              string
	Products          []Line
	Address           string
	EstimatedDelivery time.Time
	DeliveryStatus    DeliveryStatus
	PaymentStatus     PaymentStatus
}

type CheckoutDetails struct {
	Address        string
	PaymentMethod  string
	DeliveryOffset time.Duration
}

// PaymentStatusForMethod maps a payment method label to the order's
// initial payment status. The label is a customer choice, not a verified
// payment, so only cash on delivery changes the default.
func PaymentStatusForMethod(label string) PaymentStatus {
	switch normalize(label) {
	case "cod", "cash", "cashondelivery":
		return PaymentCOD
	default:
		return PaymentPending
	}
}

// New validates in and builds a Pending order. A zero product quantity
// defaults to 1.
func New(id string, in CreateInput, now time.Time) (Order, error) {
	user := strings.TrimSpace(in.User)
	if user == "" {
		return Order{}, ErrUserRequired
	}
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return Order{}, ErrAddressRequired
	}
	if in.EstimatedDelivery.IsZero() {
		return Order{}, ErrDeliveryDateNeeded
	}
	if len(in.Products) == 0 {
		return Order{}, ErrNoProducts
	}

	delivery := in.DeliveryStatus
	if delivery == "" {
		delivery = DeliveryPending
	}
	if delivery != DeliveryPending {
		return Order{}, apperr.Validationf("new orders start %s, got deliveryStatus %s", DeliveryPending, delivery)
	}
	payment := in.PaymentStatus
	if payment == "" {
		payment = PaymentPending
	}
	if payment != PaymentPending && payment != PaymentCOD {
		return Order{}, apperr.Validationf("new orders start with paymentStatus %s or %s, got %s", PaymentPending, PaymentCOD, payment)
	}

	lines := make([]Line, 0, len(in.Products))
	total := money.Zero
	for i, p := range in.Products {
		productID := strings.TrimSpace(p.ProductID)
		if productID == "" {
			return Order{}, apperr.Validationf("products[%d]: product is required", i)
		}
		qty := p.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return Order{}, apperr.Validationf("products[%d]: quantity must be at least 1", i)
		}
		if qty > cart.MaxQuantity {
			return Order{}, apperr.Validationf("products[%d]: quantity cannot exceed %d", i, cart.MaxQuantity)
		}
		if !p.UnitPrice.IsPositive() {
			return Order{}, apperr.Validationf("products[%d]: unitPrice must be positive", i)
		}
		lines = append(lines, Line{ProductID: productID, Quantity: qty, Size: p.Size, UnitPrice: p.UnitPrice})
		total = total.Add(p.UnitPrice.Mul(qty))
	}

	return Order{
		ID:                id,
		User:              user,
		Products:          lines,
		DeliveryStatus:    delivery,
		PaymentStatus:     payment,
		Address:           address,
		TotalAmount:       total,
		EstimatedDelivery: in.EstimatedDelivery.UTC(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// NewFromCart converts the cart's current lines into an order. The cart's
// phone is the order's user reference.
func NewFromCart(id string, c cart.Cart, d CheckoutDetails, now time.Time) (Order, error) {
	if c.IsEmpty() {
		return Order{}, ErrEmptyCart
	}

	lines := make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, Line{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			UnitPrice: it.PriceAtAdd,
		})
	}

	return New(id, CreateInput{
		User:              c.Phone,
		Products:          lines,
		Address:           d.Address,
		EstimatedDelivery: now.Add(d.DeliveryOffset),
		PaymentStatus:     PaymentStatusForMethod(d.PaymentMethod),
	}, now)
}
