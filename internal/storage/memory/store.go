// Package memory is the in-process storage driver used for local runs and
// tests. A single mutex guards every collection, so a checkout is as atomic
// here as the Postgres transaction is in production.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	cart "github.com/dmehra2102/shop-cart-service/internal/cart/domain"
	catalog "github.com/dmehra2102/shop-cart-service/internal/catalog/domain"
	order "github.com/dmehra2102/shop-cart-service/internal/order/domain"
	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
)

type Store struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	carts    map[string]cart.Cart
	orders   map[string]order.Order
	events   []outbox.Event
	nextID   int64
	now      func() time.Time
}

func New(products ...catalog.Product) *Store {
	s := &Store{
		products: map[string]catalog.Product{},
		carts:    map[string]cart.Cart{},
		orders:   map[string]order.Order{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Carts is the cart repository view of the store.
type Carts struct{ *Store }

// Orders is the order repository view of the store.
type Orders struct{ *Store }

func (s *Store) Carts() Carts { return Carts{s} }

func (s *Store) Orders() Orders { return Orders{s} }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) FindByID(_ context.Context, id string) (catalog.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok, nil
}

func (s *Store) UpsertProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s Carts) Get(_ context.Context, phone string) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[phone]
	if !ok {
		return cart.Cart{}, cart.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (s Carts) GetOrCreate(_ context.Context, phone string, now time.Time) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked(phone, now).Clone(), nil
}

func (s Carts) AddItem(_ context.Context, phone string, item cart.Item, now time.Time) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[phone]
	if !ok {
		c = cart.New(phone, now)
	}
	c = c.Clone()
	if err := c.AddItem(item.ProductID, item.Size, item.Quantity, item.PriceAtAdd, now); err != nil {
		return cart.Cart{}, err
	}
	s.carts[phone] = c
	return c.Clone(), nil
}

func (s Carts) SetQuantity(_ context.Context, phone, productID, size string, quantity int, now time.Time) (cart.Cart, error) {
	return s.mutate(phone, func(c *cart.Cart) error {
		return c.SetQuantity(productID, size, quantity, now)
	})
}

func (s Carts) RemoveItem(_ context.Context, phone, productID, size string, now time.Time) (cart.Cart, error) {
	return s.mutate(phone, func(c *cart.Cart) error {
		c.RemoveItem(productID, size, now)
		return nil
	})
}

func (s Carts) Clear(_ context.Context, phone string, now time.Time) (cart.Cart, error) {
	return s.mutate(phone, func(c *cart.Cart) error {
		c.Clear(now)
		return nil
	})
}

func (s Carts) ReplaceItems(_ context.Context, phone string, items []cart.Item, now time.Time) (cart.Cart, error) {
	return s.mutate(phone, func(c *cart.Cart) error {
		c.Items = append([]cart.Item{}, items...)
		c.UpdatedAt = now
		c.LastActivity = now
		c.Recalculate()
		return nil
	})
}

func (s Carts) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[phone]; !ok {
		return cart.ErrCartNotFound
	}
	delete(s.carts, phone)
	return nil
}

// PutCart stores c as is. Tests use it to seed carts in states the public
// operations never produce, such as duplicate lines.
func (s *Store) PutCart(c cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.Phone] = c.Clone()
}

func (s *Store) cartLocked(phone string, now time.Time) cart.Cart {
	c, ok := s.carts[phone]
	if !ok {
		c = cart.New(phone, now)
		s.carts[phone] = c
	}
	return c
}

// mutate applies fn to a copy and stores it only if fn succeeds.
func (s *Store) mutate(phone string, fn func(c *cart.Cart) error) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[phone]
	if !ok {
		return cart.Cart{}, cart.ErrCartNotFound
	}
	c = c.Clone()
	if err := fn(&c); err != nil {
		return cart.Cart{}, err
	}
	s.carts[phone] = c
	return c.Clone(), nil
}

func (s Orders) Create(_ context.Context, o order.Order, events []outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o.Clone()
	s.appendEventsLocked(events)
	return nil
}

func (s Orders) Get(_ context.Context, id string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (s Orders) ListByUser(_ context.Context, user string) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []order.Order{}
	for _, o := range s.orders {
		if o.User == user {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s Orders) Update(_ context.Context, id string, fn func(o *order.Order) ([]outbox.Event, error)) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}
	o = o.Clone()
	events, err := fn(&o)
	if err != nil {
		return order.Order{}, err
	}
	s.orders[id] = o
	s.appendEventsLocked(events)
	return o.Clone(), nil
}

func (s Orders) Delete(_ context.Context, id string, events []outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return order.ErrOrderNotFound
	}
	delete(s.orders, id)
	s.appendEventsLocked(events)
	return nil
}

func (s *Store) Checkout(_ context.Context, phone string, place func(cart.Cart) (order.Order, []outbox.Event, error)) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[phone]
	if !ok {
		c = cart.New(phone, s.now())
	}
	c = c.Clone()
	c.Items, _ = cart.MergeItems(c.Items)
	c.Recalculate()

	o, events, err := place(c)
	if err != nil {
		return order.Order{}, err
	}
	s.orders[o.ID] = o.Clone()
	s.appendEventsLocked(events)
	delete(s.carts, phone)
	return o.Clone(), nil
}

func (s *Store) appendEventsLocked(events []outbox.Event) {
	for _, ev := range events {
		s.nextID++
		ev.ID = s.nextID
		ev.Status = outbox.StatusPending
		ev.CreatedAt = s.now()
		s.events = append(s.events, ev)
	}
}

// Events returns a copy of every recorded outbox event, oldest first.
func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.events...)
}

// LockBatch claims pending events and failed ones under the retry limit.
// Leases are not tracked; only one relay runs against a memory store.
func (s *Store) LockBatch(_ context.Context, relayID string, batchSize int, _ time.Duration, maxRetries int) ([]outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Event
	for i := range s.events {
		if len(out) == batchSize {
			break
		}
		ev := &s.events[i]
		if ev.Status == outbox.StatusPending || (ev.Status == outbox.StatusFailed && ev.RetryCount < maxRetries) {
			ev.Status = outbox.StatusInProgress
			ev.RelayID = relayID
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (s *Store) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(ids, func(ev *outbox.Event) { ev.Status = outbox.StatusSent })
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked([]int64{id}, func(ev *outbox.Event) {
		ev.Status = outbox.StatusFailed
		ev.RetryCount++
		msg := errMsg
		ev.LastError = &msg
	})
	return nil
}

func (s *Store) setStatusLocked(ids []int64, fn func(ev *outbox.Event)) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.events {
		if _, ok := want[s.events[i].ID]; ok {
			fn(&s.events[i])
		}
	}
}
