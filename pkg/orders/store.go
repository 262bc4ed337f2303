package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/repository"
	"go.uber.org/zap"
)

type Option func(*Store)

// WithSeed saves the sample orders when nothing was ever persisted.
func WithSeed(snapshots repository.Snapshots) Option {
	return func(s *Store) {
		s.snapshots = snapshots
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithObserver is called with every order that was created.
func WithObserver(o func(models.Order)) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// Store holds the orders of one surface in insertion order. Recency is
// position, never timestamp.
type Store struct {
	backend   repository.Backend
	snapshots repository.Snapshots
	now       func() time.Time
	observer  func(models.Order)
	logger    *zap.Logger

	orders []models.Order
}

func NewStore(backend repository.Backend, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		now:      time.Now,
		observer: func(models.Order) {},
		logger:   logger.Named("orders"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Load(ctx context.Context) error {
	var list []models.Order
	found, err := s.backend.List(ctx, repository.Orders, &list)
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}

	if !found && s.snapshots != nil {
		list = SampleOrders(s.now())
		if err := s.snapshots.Save(ctx, list, repository.Orders.WriteKeys...); err != nil {
			s.logger.Warn("Failed to save sample orders", zap.Error(err))
		}
	}

	s.orders = list
	return nil
}

func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Store) List() []models.Order {
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Recent returns the last n orders, newest first.
func (s *Store) Recent(n int) []models.Order {
	if n <= 0 {
		return []models.Order{}
	}
	start := len(s.orders) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.Order, 0, len(s.orders)-start)
	for i := len(s.orders) - 1; i >= start; i-- {
		out = append(out, s.orders[i])
	}
	return out
}

// Create appends order and persists it. A missing id, status or timestamp
// is filled in.
func (s *Store) Create(ctx context.Context, order models.Order) (models.Order, error) {
	now := s.now()
	if order.ID == "" {
		order.ID = models.NewID()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.OrderedAt.IsZero() {
		order.OrderedAt = now
	}
	if order.Date == "" {
		order.Date = order.OrderedAt.Format("2006-01-02")
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.backend.Put(ctx, repository.Orders, order.ID.String(), &order); err != nil {
		return order, fmt.Errorf("failed to save order: %w", err)
	}
	s.orders = append(s.orders, order)
	s.observer(order)
	return order, nil
}

// SetStatus overwrites the status of the order with id. Any value is
// accepted; unknown ids are ignored.
func (s *Store) SetStatus(ctx context.Context, id models.ID, status string) (models.Order, bool, error) {
	i := -1
	for j := range s.orders {
		if s.orders[j].ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		return models.Order{}, false, nil
	}

	now := s.now()
	s.orders[i].Status = status
	s.orders[i].UpdatedAt = now

	err := s.backend.Update(ctx, repository.Orders, id.String(), repository.Fields{
		"status":    status,
		"updatedAt": now,
	})
	if err != nil {
		return s.orders[i], true, fmt.Errorf("failed to update order status: %w", err)
	}
	return s.orders[i], true, nil
}

type Stats struct {
	Count     int     `json:"count"`
	Revenue   float64 `json:"revenue"`
	Customers int     `json:"customers"`
}

func (s *Store) Stats() Stats {
	customers := make(map[string]struct{})
	var st Stats
	for _, o := range s.orders {
		st.Count++
		st.Revenue += o.Total
		customers[o.Customer] = struct{}{}
	}
	st.Customers = len(customers)
	return st
}

// SampleOrders is what the admin dashboard starts with.
func SampleOrders(now time.Time) []models.Order {
	return []models.Order{
		{
			ID:        "1",
			Customer:  "John Doe",
			Items:     []string{"Margherita Pizza", "Classic Burger"},
			Total:     27.98,
			Status:    models.OrderStatusCompleted,
			Date:      "2024-01-15",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "2",
			Customer:  "Jane Smith",
			Items:     []string{"Pepperoni Pizza"},
			Total:     16.99,
			Status:    models.OrderStatusPending,
			Date:      "2024-01-16",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
