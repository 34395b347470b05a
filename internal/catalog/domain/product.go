package domain

import (
	"time"

	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

type Product struct {
	ID        string
	Name      string
	Price     money.Money
	CreatedAt time.Time
	UpdatedAt time.Time
}
