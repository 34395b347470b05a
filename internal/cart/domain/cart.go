package domain

import (
	"time"

	"github.com/dmehra2102/shop-cart-service/pkg/money"
)

// DefaultSize applies when a caller adds an item without a size.
const DefaultSize = "M"

// MaxQuantity caps the quantity of a single line.
const MaxQuantity = 10000

type Item struct {
	ProductID  string      `json:"product"`
	Quantity   int         `json:"quantity"`
	Size       string      `json:"size"`
	PriceAtAdd money.Money `json:"priceAtAdd"`
	AddedAt    time.Time   `json:"addedAt"`
}

// LineKey identifies a cart line. A cart holds at most one line per key.
type LineKey struct {
	ProductID string
	Size      string
}

func (i Item) Key() LineKey { return LineKey{ProductID: i.ProductID, Size: i.Size} }

// Cart is keyed by the customer's phone number, treated as an opaque string.
type Cart struct {
	Phone        string      `json:"phone"`
	Items        []Item      `json:"items"`
	TotalItems   int         `json:"totalItems"`
	TotalAmount  money.Money `json:"totalAmount"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	LastActivity time.Time   `json:"lastActivity"`
}

func New(phone string, now time.Time) Cart {
	return Cart{
		Phone:        phone,
		Items:        []Item{},
		TotalAmount:  money.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Recalculate derives TotalItems and TotalAmount from Items.
func (c *Cart) Recalculate() {
	total := 0
	amount := money.Zero
	for _, it := range c.Items {
		total += it.Quantity
		amount = amount.Add(it.PriceAtAdd.Mul(it.Quantity))
	}
	c.TotalItems = total
	c.TotalAmount = amount
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
	c.LastActivity = now
	c.Recalculate()
}

func (c *Cart) find(key LineKey) int {
	for i, it := range c.Items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

// AddItem increments an existing (product, size) line or appends a new one.
// The price of an existing line is never changed. The cart is left as is
// when the line would grow past MaxQuantity.
func (c *Cart) AddItem(productID, size string, quantity int, unitPrice money.Money, now time.Time) error {
	if quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	key := LineKey{ProductID: productID, Size: size}
	if i := c.find(key); i >= 0 {
		if c.Items[i].Quantity > MaxQuantity-quantity {
			return ErrQuantityTooLarge
		}
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, Item{
			ProductID:  productID,
			Quantity:   quantity,
			Size:       size,
			PriceAtAdd: unitPrice,
			AddedAt:    now,
		})
	}
	c.touch(now)
	return nil
}

// SetQuantity overwrites a line's quantity; a non-positive quantity removes
// the line. It returns ErrItemNotFound if the line does not exist.
func (c *Cart) SetQuantity(productID, size string, quantity int, now time.Time) error {
	i := c.find(LineKey{ProductID: productID, Size: size})
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.touch(now)
	return nil
}

// RemoveItem drops the (product, size) line, or every line of the product
// when size is empty.
func (c *Cart) RemoveItem(productID, size string, now time.Time) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID == productID && (size == "" || it.Size == size) {
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	c.touch(now)
}

func (c *Cart) Clear(now time.Time) {
	c.Items = []Item{}
	c.touch(now)
}

// Clone returns a deep copy so stored carts are never aliased by callers.
func (c Cart) Clone() Cart {
	cp := c
	cp.Items = make([]Item, len(c.Items))
	copy(cp.Items, c.Items)
	return cp
}
