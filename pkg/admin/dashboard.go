// Package admin is the back-office surface: menu management, categories
// and order handling.
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/catalog"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/orders"
	"github.com/example/bistro/pkg/repository"
	"go.uber.org/zap"
)

const (
	Name = "admin"

	recentOrders = 5
	popularItems = 3
)

type Noticer interface {
	TakeNotice() string
}

// Historian is implemented by auditors that can read their trail back.
type Historian interface {
	History(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

type Summary struct {
	TotalItems   int               `json:"totalItems"`
	TotalOrders  int               `json:"totalOrders"`
	Revenue      float64           `json:"revenue"`
	Customers    int               `json:"customers"`
	Categories   []models.Category `json:"categories"`
	RecentOrders []models.Order    `json:"recentOrders"`
	PopularItems []models.MenuItem `json:"popularItems"`
}

// Dashboard holds the admin's copies of the menu and orders. All methods
// must run on the surface's event loop.
type Dashboard struct {
	menu       *catalog.Store
	categories *catalog.Categories
	orders     *orders.Store
	auditor    repository.Auditor
	notices    Noticer
	logger     *zap.Logger
}

func New(menu *catalog.Store, categories *catalog.Categories, orderStore *orders.Store, auditor repository.Auditor, notices Noticer, logger *zap.Logger) *Dashboard {
	if auditor == nil {
		auditor = repository.NopAuditor{}
	}
	return &Dashboard{
		menu:       menu,
		categories: categories,
		orders:     orderStore,
		auditor:    auditor,
		notices:    notices,
		logger:     logger.Named(Name),
	}
}

func (d *Dashboard) Load(ctx context.Context) error {
	if err := d.menu.Load(ctx); err != nil {
		return err
	}
	if err := d.categories.Load(ctx); err != nil {
		return err
	}
	return d.orders.Load(ctx)
}

func (d *Dashboard) Summary() Summary {
	items := d.menu.List()
	stats := d.orders.Stats()
	return Summary{
		TotalItems:   len(items),
		TotalOrders:  stats.Count,
		Revenue:      stats.Revenue,
		Customers:    stats.Customers,
		Categories:   d.categories.WithCounts(items),
		RecentOrders: d.orders.Recent(recentOrders),
		PopularItems: d.menu.Popular(popularItems),
	}
}

// MenuItems lists the items of category whose name or description
// contains query, ignoring case.
func (d *Dashboard) MenuItems(category, query string) []models.MenuItem {
	items := d.menu.FilterByCategory(category)
	if query != "" {
		items = catalog.SearchIn(items, query)
	}
	return items
}

func (d *Dashboard) AddItem(ctx context.Context, fields models.MenuItemFields) (models.MenuItem, error) {
	const op = "admin.add_item"

	if fields.Name == nil || strings.TrimSpace(*fields.Name) == "" {
		return models.MenuItem{}, apperr.Validation(op, "Item name is required")
	}
	if fields.Price == nil {
		return models.MenuItem{}, apperr.Validation(op, "Item price is required")
	}
	if err := validatePrice(op, fields.Price); err != nil {
		return models.MenuItem{}, err
	}

	item, err := d.menu.Add(ctx, fields)
	if err != nil {
		return item, err
	}
	d.audit(ctx, "create_item", item.ID.String(), map[string]interface{}{
		"name":     item.Name,
		"price":    item.Price,
		"category": item.Category,
	})
	return item, nil
}

// UpdateItem reports false for an unknown id, which is not an error.
func (d *Dashboard) UpdateItem(ctx context.Context, id models.ID, fields models.MenuItemFields) (models.MenuItem, bool, error) {
	const op = "admin.update_item"

	if fields.Name != nil && strings.TrimSpace(*fields.Name) == "" {
		return models.MenuItem{}, false, apperr.Validation(op, "Item name is required")
	}
	if err := validatePrice(op, fields.Price); err != nil {
		return models.MenuItem{}, false, err
	}

	item, found, err := d.menu.Update(ctx, id, fields)
	if err != nil || !found {
		return item, found, err
	}
	d.audit(ctx, "update_item", id.String(), map[string]interface{}{
		"name":   item.Name,
		"price":  item.Price,
		"status": item.Status,
	})
	return item, true, nil
}

// DeleteItem removes an item once the caller confirmed the deletion.
func (d *Dashboard) DeleteItem(ctx context.Context, id models.ID, confirmed bool) (bool, error) {
	if !confirmed {
		return false, apperr.New("admin.delete_item", apperr.ErrConfirmationRequired,
			"Are you sure you want to delete this item?")
	}

	removed, err := d.menu.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	d.audit(ctx, "delete_item", id.String(), nil)
	return true, nil
}

func (d *Dashboard) Categories() []models.Category {
	return d.categories.WithCounts(d.menu.List())
}

func (d *Dashboard) AddCategory(ctx context.Context, name, icon string) (models.Category, error) {
	cat, err := d.categories.Add(ctx, name, icon)
	if err != nil {
		return cat, err
	}
	d.audit(ctx, "add_category", cat.Name, map[string]interface{}{"icon": cat.Icon})
	return cat, nil
}

func (d *Dashboard) Orders() []models.Order {
	return d.orders.List()
}

// SetOrderStatus accepts any non-empty status. Unknown ids report false.
func (d *Dashboard) SetOrderStatus(ctx context.Context, id models.ID, status string) (models.Order, bool, error) {
	if strings.TrimSpace(status) == "" {
		return models.Order{}, false, apperr.Validation("admin.set_order_status", "Order status is required")
	}

	order, found, err := d.orders.SetStatus(ctx, id, status)
	if err != nil || !found {
		return order, found, err
	}
	d.audit(ctx, "update_order_status", id.String(), map[string]interface{}{"status": status})
	return order, true, nil
}

// History returns the audit trail of an entity when the auditor keeps one.
func (d *Dashboard) History(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error) {
	h, ok := d.auditor.(Historian)
	if !ok {
		return nil, nil
	}
	logs, err := h.History(ctx, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", entityID, err)
	}
	return logs, nil
}

func (d *Dashboard) Notice() string {
	if d.notices == nil {
		return ""
	}
	return d.notices.TakeNotice()
}

// HandleChange reloads the collection another surface replaced.
func (d *Dashboard) HandleChange(ctx context.Context, change repository.Change) error {
	var err error
	switch change.Key {
	case repository.KeyAdminOrders:
		err = d.orders.Reload(ctx)
	case repository.KeyAdminMenuItems:
		err = d.menu.Reload(ctx)
	case repository.KeyAdminCategories:
		err = d.categories.Load(ctx)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reload %s: %w", change.Key, err)
	}
	d.logger.Info("Reloaded after external change", zap.String("key", change.Key), zap.String("origin", change.Origin))
	return nil
}

func (d *Dashboard) audit(ctx context.Context, action, entityID string, data map[string]interface{}) {
	d.auditor.Record(ctx, action, entityID, data)
}

func validatePrice(op string, price *float64) error {
	if price != nil && *price < 0 {
		return apperr.Validation(op, "Price must not be negative")
	}
	return nil
}
