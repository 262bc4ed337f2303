package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
	"go.uber.org/zap"
)

const customerDisplayName = "User"

// Sessions reports the current session, logging out an expired one.
type Sessions interface {
	Authenticated(ctx context.Context) (models.Session, bool)
}

type OrderCreator interface {
	Create(ctx context.Context, order models.Order) (models.Order, error)
}

type Checkout struct {
	cart     *Cart
	sessions Sessions
	orders   OrderCreator
	now      func() time.Time
	logger   *zap.Logger
}

func NewCheckout(c *Cart, sessions Sessions, orders OrderCreator, logger *zap.Logger) *Checkout {
	return &Checkout{
		cart:     c,
		sessions: sessions,
		orders:   orders,
		now:      time.Now,
		logger:   logger.Named("checkout"),
	}
}

// Place turns the cart into a pending order for the signed-in customer and
// empties the cart. The cart is left untouched when any step fails.
func (co *Checkout) Place(ctx context.Context) (models.Order, error) {
	const op = "checkout.place"

	if co.cart.IsEmpty() {
		return models.Order{}, apperr.New(op, apperr.ErrEmptyCart, "Your cart is empty!")
	}
	sess, ok := co.sessions.Authenticated(ctx)
	if !ok {
		return models.Order{}, apperr.New(op, apperr.ErrNotAuthenticated, "Please login to place an order")
	}

	lines := co.cart.Lines()
	names := make([]string, len(lines))
	for i, l := range lines {
		names[i] = l.Item.Name
	}

	now := co.now()
	order, err := co.orders.Create(ctx, models.Order{
		ID:           models.NewID(),
		Customer:     sess.PhoneNumber,
		CustomerName: customerDisplayName,
		UserID:       sess.PhoneNumber,
		Items:        names,
		Total:        co.cart.Total(),
		Status:       models.OrderStatusPending,
		Date:         now.Format("2006-01-02"),
		OrderedAt:    now,
	})
	if err != nil {
		return order, fmt.Errorf("failed to place order: %w", err)
	}

	co.cart.Clear()
	co.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.Int("items", len(names)),
		zap.Float64("total", order.Total))
	return order, nil
}
