// Package cart holds the storefront's shopping cart and turns it into an
// order at checkout. Carts live in memory only.
package cart

import "github.com/example/bistro/pkg/models"

// Catalog resolves menu item ids when adding to the cart.
type Catalog interface {
	Get(id models.ID) (models.MenuItem, bool)
}

// Line is a snapshot of a menu item taken when it was first added. Later
// catalog edits do not reach it.
type Line struct {
	Item     models.MenuItem `json:"item"`
	Quantity int             `json:"quantity"`
}

func (l Line) Subtotal() float64 {
	return l.Item.Price * float64(l.Quantity)
}

// Cart keeps at most one line per item id, each with a quantity of at
// least one.
type Cart struct {
	catalog Catalog
	lines   []Line
}

func New(catalog Catalog) *Cart {
	return &Cart{catalog: catalog}
}

// AddItem puts one more of the item into the cart. It reports false for
// ids the catalog does not know.
func (c *Cart) AddItem(id models.ID) (Line, bool) {
	if i := c.index(id); i >= 0 {
		c.lines[i].Quantity++
		return c.lines[i], true
	}

	item, ok := c.catalog.Get(id)
	if !ok {
		return Line{}, false
	}
	line := Line{Item: item, Quantity: 1}
	c.lines = append(c.lines, line)
	return line, true
}

// AdjustQuantity adds delta to the line's quantity and drops the line once
// it reaches zero. Ids not in the cart are ignored.
func (c *Cart) AdjustQuantity(id models.ID, delta int) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity += delta
	if c.lines[i].Quantity <= 0 {
		c.RemoveItem(id)
	}
	return true
}

func (c *Cart) RemoveItem(id models.ID) {
	if i := c.index(id); i >= 0 {
		c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) index(id models.ID) int {
	for i := range c.lines {
		if c.lines[i].Item.ID == id {
			return i
		}
	}
	return -1
}
