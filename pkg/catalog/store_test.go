package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/repository"
	"github.com/example/bistro/pkg/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string      { return &s }
func pricePtr(f float64) *float64 { return &f }

func newAdminStore(t *testing.T, remote repository.Remote) (*Store, *repository.Local, *repository.Fallback) {
	t.Helper()
	_, local := repotest.NewLocal(t)
	fb := repository.NewFallback(remote, local, zap.NewNop(), nil)
	s := NewStore(fb, repository.AdminMenu, zap.NewNop(),
		WithSeed(local, AdminDefaults),
		WithClock(func() time.Time { return fixedNow }))
	return s, local, fb
}

func TestLoadSeedsDefaultsOnBothKeys(t *testing.T) {
	ctx := context.Background()
	s, local, _ := newAdminStore(t, nil)

	require.NoError(t, s.Load(ctx))
	assert.Len(t, s.List(), 3)

	var storefront []models.MenuItem
	found, err := local.Load(ctx, repository.KeyMenuItems, &storefront)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, storefront, 3)
	assert.Equal(t, fixedNow, storefront[0].CreatedAt.UTC())
}

func TestLoadKeepsEmptySavedMenu(t *testing.T) {
	ctx := context.Background()
	s, local, _ := newAdminStore(t, nil)
	require.NoError(t, local.Save(ctx, []models.MenuItem{}, repository.KeyAdminMenuItems))

	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.List())
}

func TestAddDefaultsAndPersists(t *testing.T) {
	ctx := context.Background()
	s, local, _ := newAdminStore(t, nil)
	require.NoError(t, s.Load(ctx))

	item, err := s.Add(ctx, models.MenuItemFields{
		Name:     strPtr("Garlic Bread"),
		Price:    pricePtr(4.5),
		Category: strPtr(" Sides "),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, models.PlaceholderImage, item.Image)
	assert.Equal(t, models.ItemStatusActive, item.Status)
	assert.Equal(t, "sides", item.Category)
	assert.Equal(t, fixedNow, item.CreatedAt)

	var saved []models.MenuItem
	_, err = local.Load(ctx, repository.KeyMenuItems, &saved)
	require.NoError(t, err)
	require.Len(t, saved, 4)
	assert.Equal(t, item.ID, saved[3].ID)
}

func TestAddFallsBackWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	remote := repotest.NewRemote()
	s, local, fb := newAdminStore(t, remote)
	require.NoError(t, s.Load(ctx))

	remote.SetDown(true)
	item, err := s.Add(ctx, models.MenuItemFields{Name: strPtr("Soup"), Price: pricePtr(6)})
	require.NoError(t, err)

	got, ok := s.Get(item.ID)
	assert.True(t, ok)
	assert.Equal(t, "Soup", got.Name)
	assert.True(t, fb.Configured())
	assert.NotEmpty(t, fb.TakeNotice())

	var saved []models.MenuItem
	found, err := local.Load(ctx, repository.KeyAdminMenuItems, &saved)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, saved, 1)
	assert.Equal(t, item.ID, saved[0].ID)

	remote.SetDown(false)
	_, err = s.Add(ctx, models.MenuItemFields{Name: strPtr("Bread")})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.Len(repository.CollectionMenuItems))
}

func TestUpdateAndRemoveIgnoreUnknownIDs(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newAdminStore(t, nil)
	require.NoError(t, s.Load(ctx))

	_, found, err := s.Update(ctx, "missing", models.MenuItemFields{Name: strPtr("x")})
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := s.Remove(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, s.List(), 3)
}

func TestUpdateReplacesProvidedFields(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newAdminStore(t, nil)
	require.NoError(t, s.Load(ctx))

	later := fixedNow.Add(time.Hour)
	s.now = func() time.Time { return later }

	item, found, err := s.Update(ctx, "1", models.MenuItemFields{Price: pricePtr(20)})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 20.0, item.Price)
	assert.Equal(t, "Margherita Pizza", item.Name)
	assert.Equal(t, later, item.UpdatedAt)

	require.NoError(t, s.Reload(ctx))
	got, _ := s.Get("1")
	assert.Equal(t, 20.0, got.Price)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	var ops []string
	_, local := repotest.NewLocal(t)
	s := NewStore(local, repository.AdminMenu, zap.NewNop(),
		WithSeed(local, AdminDefaults),
		WithObserver(func(op string) { ops = append(ops, op) }))
	require.NoError(t, s.Load(ctx))

	removed, err := s.Remove(ctx, "2")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok := s.Get("2")
	assert.False(t, ok)
	assert.Equal(t, []string{"remove"}, ops)

	require.NoError(t, s.Reload(ctx))
	assert.Len(t, s.List(), 2)
}

func TestFilterSearchVisible(t *testing.T) {
	s := &Store{items: []models.MenuItem{
		{ID: "1", Name: "Margherita Pizza", Description: "Classic tomato", Category: "pizza", Price: 14.99},
		{ID: "2", Name: "Classic Burger", Description: "Juicy beef", Category: "burger", Price: 12.99, Status: "inactive"},
		{ID: "3", Name: "Tiramisu", Description: "Coffee dessert", Category: "dessert", Price: 8.99, Status: "active"},
	}}

	assert.Len(t, s.FilterByCategory(CategoryAll), 3)
	assert.Len(t, s.FilterByCategory("pizza"), 1)
	assert.Empty(t, s.FilterByCategory("Pizza"))

	found := s.Search("PIZZA")
	require.Len(t, found, 1)
	assert.Equal(t, "Margherita Pizza", found[0].Name)
	assert.Len(t, s.Search(""), 3)
	assert.Len(t, s.Search("coffee"), 1)

	visible := s.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, models.ID("3"), visible[1].ID)

	popular := s.Popular(2)
	require.Len(t, popular, 2)
	assert.Equal(t, models.ID("1"), popular[0].ID)
	assert.Equal(t, models.ID("2"), popular[1].ID)
	assert.Equal(t, models.ID("1"), s.List()[0].ID)
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, local := repotest.NewLocal(t)
	s := NewStore(local, repository.AdminMenu, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, s.Load(ctx))

	item, err := s.Add(ctx, models.MenuItemFields{
		Name:        strPtr("Lasagna"),
		Description: strPtr("Layered pasta"),
		Price:       pricePtr(13.5),
		Category:    strPtr("pasta"),
		Image:       strPtr("https://example.com/lasagna.jpg"),
	})
	require.NoError(t, err)

	reloaded := NewStore(local, repository.AdminMenu, zap.NewNop())
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Get(item.ID)
	require.True(t, ok)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, item.Description, got.Description)
	assert.Equal(t, item.Price, got.Price)
	assert.Equal(t, item.Category, got.Category)
	assert.Equal(t, item.Image, got.Image)
	assert.Equal(t, item.Status, got.Status)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))
}

var errSave = errors.New("disk full")

// rejectingPuts persists nothing through Put.
type rejectingPuts struct{ repository.Backend }

func (rejectingPuts) Put(context.Context, repository.Collection, string, interface{}) error {
	return errSave
}

func TestAddLeavesListUntouchedWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	_, local := repotest.NewLocal(t)
	s := NewStore(rejectingPuts{local}, repository.AdminMenu, zap.NewNop(), WithSeed(local, AdminDefaults))
	require.NoError(t, s.Load(ctx))

	_, err := s.Add(ctx, models.MenuItemFields{Name: strPtr("Tiramisu"), Price: pricePtr(8.5)})
	assert.ErrorIs(t, err, errSave)
	assert.Len(t, s.List(), 3)
	assert.Empty(t, s.Search("tiramisu"))
}

func TestPopularWithNonPositiveCount(t *testing.T) {
	s, _, _ := newAdminStore(t, nil)
	require.NoError(t, s.Load(context.Background()))

	assert.Empty(t, s.Popular(0))
	assert.Empty(t, s.Popular(-1))
	assert.Len(t, s.Popular(10), 3)
}
