package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/repository"
)

// Categories is the admin's category list. Counts are derived from the
// menu on every read and never persisted as authoritative.
type Categories struct {
	snapshots repository.Snapshots
	list      []models.Category
}

func NewCategories(snapshots repository.Snapshots) *Categories {
	return &Categories{snapshots: snapshots}
}

// Load reads the saved list, or the default set if none was saved.
func (c *Categories) Load(ctx context.Context) error {
	var list []models.Category
	found, err := c.snapshots.Load(ctx, repository.KeyAdminCategories, &list)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if !found {
		list = DefaultCategories()
	}
	c.list = list
	return nil
}

// Add appends a category and saves the whole list.
func (c *Categories) Add(ctx context.Context, name, icon string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, apperr.Validation("categories.add", "Category name is required")
	}

	cat := models.Category{Name: name, Icon: icon}
	c.list = append(c.list, cat)
	if err := c.snapshots.Save(ctx, c.list, repository.KeyAdminCategories); err != nil {
		return cat, fmt.Errorf("failed to save categories: %w", err)
	}
	return cat, nil
}

// WithCounts returns the categories with Count set to the number of items
// whose category equals the lower-cased category name.
func (c *Categories) WithCounts(items []models.MenuItem) []models.Category {
	out := make([]models.Category, len(c.list))
	for i, cat := range c.list {
		cat.Count = 0
		key := strings.ToLower(cat.Name)
		for _, item := range items {
			if item.Category == key {
				cat.Count++
			}
		}
		out[i] = cat
	}
	return out
}
