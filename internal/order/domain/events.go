package domain

import (
	"time"

	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

const (
	AggregateType          = "order"
	EventOrderPlaced       = "OrderPlaced"
	EventOrderStatusChange = "OrderStatusChanged"
	EventOrderDeleted      = "OrderDeleted"
)

type OrderPlaced struct {
	OrderID        string         `json:"orderId"`
	User           string         `json:"user"`
	Products       []Line         `json:"products"`
	TotalAmount    money.Money    `json:"totalAmount"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus"`
	PlacedAt       time.Time      `json:"placedAt"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"orderId"`
	Field     string    `json:"field"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changedAt"`
}

type OrderDeleted struct {
	OrderID   string    `json:"orderId"`
	DeletedAt time.Time `json:"deletedAt"`
}

func PlacedEvent(o Order) OrderPlaced {
	return OrderPlaced{
		OrderID:        o.ID,
		User:           o.User,
		Products:       o.Products,
		TotalAmount:    o.TotalAmount,
		DeliveryStatus: o.DeliveryStatus,
		PaymentStatus:  o.PaymentStatus,
		PlacedAt:       o.CreatedAt,
	}
}
