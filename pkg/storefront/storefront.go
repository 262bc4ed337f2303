// Package storefront is the customer-facing surface: menu browsing, the
// cart and checkout, and phone sign-in.
package storefront

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bistro/pkg/cart"
	"github.com/example/bistro/pkg/catalog"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/orders"
	"github.com/example/bistro/pkg/repository"
	"github.com/example/bistro/pkg/session"
	"go.uber.org/zap"
)

const Name = "storefront"

// Noticer hands out the pending passive notice, if any.
type Noticer interface {
	TakeNotice() string
}

type MenuView struct {
	Category string            `json:"category"`
	Query    string            `json:"query,omitempty"`
	Items    []models.MenuItem `json:"items"`
}

type CartView struct {
	Lines []cart.Line `json:"lines"`
	Count int         `json:"count"`
	Total float64     `json:"total"`
	Open  bool        `json:"open"`
}

type AuthView struct {
	State       session.State `json:"state"`
	PhoneNumber string        `json:"phoneNumber,omitempty"`
	ExpiresAt   int64         `json:"expiresAt,omitempty"`
	ResendIn    int           `json:"resendIn"`
}

// Storefront holds one visitor's page state. All methods must run on the
// surface's event loop.
type Storefront struct {
	menu     *catalog.Store
	cart     *cart.Cart
	checkout *cart.Checkout
	sessions *session.Manager
	notices  Noticer
	logger   *zap.Logger

	category string
	cartOpen bool
}

func New(menu *catalog.Store, placed *orders.Store, sessions *session.Manager, notices Noticer, logger *zap.Logger) *Storefront {
	logger = logger.Named(Name)
	c := cart.New(menu)
	return &Storefront{
		menu:     menu,
		cart:     c,
		checkout: cart.NewCheckout(c, sessions, placed, logger),
		sessions: sessions,
		notices:  notices,
		logger:   logger,
		category: catalog.CategoryAll,
	}
}

func (s *Storefront) Load(ctx context.Context) error {
	return s.menu.Load(ctx)
}

// Menu lists the visible items of category matching query. An empty
// category keeps the current one.
func (s *Storefront) Menu(category, query string) MenuView {
	if category != "" {
		s.category = category
	}
	items := catalog.FilterIn(s.menu.Visible(), s.category)
	if query != "" {
		items = catalog.SearchIn(items, query)
	}
	return MenuView{Category: s.category, Query: query, Items: items}
}

// AddToCart reports false when the item is not on the menu.
func (s *Storefront) AddToCart(id models.ID) (CartView, bool) {
	line, ok := s.cart.AddItem(id)
	if ok {
		s.logger.Debug("Added to cart", zap.String("item", line.Item.Name), zap.Int("quantity", line.Quantity))
	}
	return s.Cart(), ok
}

func (s *Storefront) AdjustQuantity(id models.ID, delta int) CartView {
	s.cart.AdjustQuantity(id, delta)
	return s.Cart()
}

func (s *Storefront) RemoveFromCart(id models.ID) CartView {
	s.cart.RemoveItem(id)
	return s.Cart()
}

func (s *Storefront) ToggleCart() CartView {
	s.cartOpen = !s.cartOpen
	return s.Cart()
}

func (s *Storefront) Cart() CartView {
	return CartView{
		Lines: s.cart.Lines(),
		Count: s.cart.Count(),
		Total: s.cart.Total(),
		Open:  s.cartOpen,
	}
}

// Confirmation is the message shown once an order is placed.
func Confirmation(o models.Order) string {
	return fmt.Sprintf("Order placed successfully! Total: $%.2f", o.Total)
}

// Checkout places the cart as an order and closes the cart panel.
func (s *Storefront) Checkout(ctx context.Context) (models.Order, error) {
	order, err := s.checkout.Place(ctx)
	if err != nil {
		return order, err
	}
	s.cartOpen = false
	return order, nil
}

func (s *Storefront) RequestCode(ctx context.Context, countryCode, localNumber string) (AuthView, error) {
	if _, err := s.sessions.RequestCode(ctx, countryCode, localNumber); err != nil {
		return AuthView{}, err
	}
	return s.Auth(ctx), nil
}

func (s *Storefront) ResendCode(ctx context.Context) (AuthView, error) {
	if err := s.sessions.ResendCode(ctx); err != nil {
		return AuthView{}, err
	}
	return s.Auth(ctx), nil
}

func (s *Storefront) SubmitCode(ctx context.Context, code string) (AuthView, error) {
	if _, err := s.sessions.SubmitCode(ctx, code); err != nil {
		return AuthView{}, err
	}
	return s.Auth(ctx), nil
}

func (s *Storefront) Logout(ctx context.Context) (AuthView, error) {
	if err := s.sessions.Logout(ctx); err != nil {
		return AuthView{}, err
	}
	return s.Auth(ctx), nil
}

func (s *Storefront) RefreshSession(ctx context.Context) error {
	return s.sessions.Refresh(ctx)
}

func (s *Storefront) Auth(ctx context.Context) AuthView {
	v := AuthView{
		State:    s.sessions.State(ctx),
		ResendIn: int((s.sessions.ResendIn() + time.Second - 1) / time.Second),
	}
	if sess, ok := s.sessions.Authenticated(ctx); ok {
		v.PhoneNumber = sess.PhoneNumber
		v.ExpiresAt = sess.ExpiresAt
	}
	return v
}

// Notice returns the pending passive notice, if any.
func (s *Storefront) Notice() string {
	if s.notices == nil {
		return ""
	}
	return s.notices.TakeNotice()
}

// HandleChange re-reads whatever another surface replaced. The session is
// read through on every call, so only the menu needs reloading.
func (s *Storefront) HandleChange(ctx context.Context, change repository.Change) error {
	if change.Key != repository.KeyMenuItems {
		return nil
	}
	if err := s.menu.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload menu: %w", err)
	}
	s.logger.Info("Menu reloaded after external change", zap.String("origin", change.Origin))
	return nil
}
