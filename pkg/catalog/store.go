package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/repository"
	"go.uber.org/zap"
)

// CategoryAll selects every item in FilterByCategory.
const CategoryAll = "all"

// Observer is told about every mutation that reached persistence.
type Observer func(op string)

type Option func(*Store)

// WithSeed makes Load fall back to defaults, saved under the collection's
// write keys, when nothing was ever persisted.
func WithSeed(snapshots repository.Snapshots, defaults func() []models.MenuItem) Option {
	return func(s *Store) {
		s.snapshots = snapshots
		s.defaults = defaults
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// Store is the in-memory menu of one surface. It is not safe for concurrent
// use; each surface drives it from its own event loop.
type Store struct {
	backend    repository.Backend
	collection repository.Collection
	snapshots  repository.Snapshots
	defaults   func() []models.MenuItem
	now        func() time.Time
	observer   Observer
	logger     *zap.Logger

	items []models.MenuItem
}

func NewStore(backend repository.Backend, collection repository.Collection, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		collection: collection,
		now:        time.Now,
		observer:   func(string) {},
		logger:     logger.Named("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory menu with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	var items []models.MenuItem
	found, err := s.backend.List(ctx, s.collection, &items)
	if err != nil {
		return fmt.Errorf("failed to load menu: %w", err)
	}

	if !found && s.defaults != nil {
		items = s.defaults()
		now := s.now()
		for i := range items {
			items[i].CreatedAt = now
			items[i].UpdatedAt = now
		}
		if err := s.snapshots.Save(ctx, items, s.collection.WriteKeys...); err != nil {
			s.logger.Warn("Failed to save default menu", zap.Error(err))
		}
		s.logger.Info("Seeded default menu", zap.Int("items", len(items)))
	}

	s.items = items
	return nil
}

// Reload is Load under the name the change watchers use.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// List returns a copy of the menu in insertion order.
func (s *Store) List() []models.MenuItem {
	out := make([]models.MenuItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Get(id models.ID) (models.MenuItem, bool) {
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return models.MenuItem{}, false
}

// Add appends a new item built from fields once it is persisted.
func (s *Store) Add(ctx context.Context, fields models.MenuItemFields) (models.MenuItem, error) {
	now := s.now()
	item := models.MenuItem{
		ID:        models.NewID(),
		Status:    models.ItemStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(&item)
	if item.Image == "" {
		item.Image = models.PlaceholderImage
	}
	if item.Status == "" {
		item.Status = models.ItemStatusActive
	}

	if err := s.backend.Put(ctx, s.collection, item.ID.String(), &item); err != nil {
		return item, fmt.Errorf("failed to save menu item: %w", err)
	}
	s.items = append(s.items, item)
	s.observer("add")
	return item, nil
}

// Update applies fields to the item with id. Unknown ids are ignored and
// reported as not found.
func (s *Store) Update(ctx context.Context, id models.ID, fields models.MenuItemFields) (models.MenuItem, bool, error) {
	i := s.index(id)
	if i < 0 {
		return models.MenuItem{}, false, nil
	}

	item := s.items[i]
	fields.Apply(&item)
	item.UpdatedAt = s.now()
	s.items[i] = item

	if err := s.backend.Put(ctx, s.collection, item.ID.String(), &item); err != nil {
		return item, true, fmt.Errorf("failed to save menu item: %w", err)
	}
	s.observer("update")
	return item, true, nil
}

// Remove deletes the item with id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id models.ID) (bool, error) {
	i := s.index(id)
	if i < 0 {
		return false, nil
	}

	s.items = append(s.items[:i:i], s.items[i+1:]...)
	if err := s.backend.Delete(ctx, s.collection, id.String()); err != nil {
		return true, fmt.Errorf("failed to delete menu item: %w", err)
	}
	s.observer("remove")
	return true, nil
}

// FilterByCategory returns the items whose category equals name exactly,
// or every item for CategoryAll.
func (s *Store) FilterByCategory(name string) []models.MenuItem {
	return FilterIn(s.items, name)
}

// FilterIn is FilterByCategory over an arbitrary slice.
func FilterIn(items []models.MenuItem, name string) []models.MenuItem {
	if name == CategoryAll || name == "" {
		out := make([]models.MenuItem, len(items))
		copy(out, items)
		return out
	}
	return filter(items, func(m models.MenuItem) bool {
		return m.Category == name
	})
}

// Search matches text against name and description, ignoring case.
func (s *Store) Search(text string) []models.MenuItem {
	return SearchIn(s.items, text)
}

// SearchIn is Search over an arbitrary slice.
func SearchIn(items []models.MenuItem, text string) []models.MenuItem {
	needle := strings.ToLower(text)
	return filter(items, func(m models.MenuItem) bool {
		return strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(strings.ToLower(m.Description), needle)
	})
}

// Visible returns the items the storefront shows.
func (s *Store) Visible() []models.MenuItem {
	return filter(s.items, models.MenuItem.Available)
}

// Popular returns the n most expensive items.
func (s *Store) Popular(n int) []models.MenuItem {
	if n <= 0 {
		return []models.MenuItem{}
	}
	items := s.List()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Price > items[j].Price
	})
	if n < len(items) {
		items = items[:n]
	}
	return items
}

func (s *Store) index(id models.ID) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func filter(items []models.MenuItem, keep func(models.MenuItem) bool) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(items))
	for _, m := range items {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
