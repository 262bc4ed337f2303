package repository

import (
	"context"
)

// Local storage keys. The admin and storefront surfaces read different
// keys for the menu, so admin writes go to both.
const (
	KeyMenuItems       = "menuItems"
	KeyAdminMenuItems  = "adminMenuItems"
	KeyOrders          = "orders"
	KeyAdminOrders     = "adminOrders"
	KeyAdminCategories = "adminCategories"
	KeyUserSession     = "userSession"
	KeyIsAuthenticated = "isAuthenticated"
	KeyAuthTimestamp   = "authTimestamp"
)

// Remote collection names.
const (
	CollectionMenuItems = "menu-items"
	CollectionOrders    = "orders"
)

// Collection binds a remote collection to the local keys a surface reads
// from and writes to.
type Collection struct {
	Name      string
	ReadKey   string
	WriteKeys []string
}

var (
	StorefrontMenu = Collection{
		Name:      CollectionMenuItems,
		ReadKey:   KeyMenuItems,
		WriteKeys: []string{KeyMenuItems},
	}
	AdminMenu = Collection{
		Name:      CollectionMenuItems,
		ReadKey:   KeyAdminMenuItems,
		WriteKeys: []string{KeyAdminMenuItems, KeyMenuItems},
	}
	Orders = Collection{
		Name:      CollectionOrders,
		ReadKey:   KeyAdminOrders,
		WriteKeys: []string{KeyAdminOrders, KeyOrders},
	}
)

// Fields is a partial update keyed by the record's JSON field names.
type Fields map[string]interface{}

// Backend is the persistence capability the stores depend on. List decodes
// the whole collection into dest, a pointer to a slice of records, and
// reports whether the collection exists at all.
type Backend interface {
	Name() string
	List(ctx context.Context, c Collection, dest interface{}) (bool, error)
	Put(ctx context.Context, c Collection, id string, record interface{}) error
	Update(ctx context.Context, c Collection, id string, fields Fields) error
	Delete(ctx context.Context, c Collection, id string) error
}

// Remote is a Backend hosted outside the process. Probe reads at most one
// record to confirm the store is reachable.
type Remote interface {
	Backend
	Probe(ctx context.Context) error
}

// Snapshots reads and writes whole values under local keys. Seed data,
// categories and the session live only here.
type Snapshots interface {
	Load(ctx context.Context, key string, dest interface{}) (bool, error)
	Save(ctx context.Context, value interface{}, keys ...string) error
	Remove(ctx context.Context, keys ...string) error
}
