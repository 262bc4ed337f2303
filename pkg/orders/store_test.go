package orders

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

var fixedNow = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T, seed bool) (*Store, *repository.Local) {
	t.Helper()
	_, local := repotest.NewLocal(t)
	opts := []Option{WithClock(func() time.Time { return fixedNow })}
	if seed {
		opts = append(opts, WithSeed(local))
	}
	return NewStore(local, zap.NewNop(), opts...), local
}

func TestLoadSeedsSampleOrders(t *testing.T) {
	ctx := context.Background()
	s, local := newStore(t, true)
	require.NoError(t, s.Load(ctx))
	require.Len(t, s.List(), 2)

	var saved []models.Order
	found, err := local.Load(ctx, repository.KeyOrders, &saved)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, saved, 2)
}

func TestLoadWithoutSeedStartsEmpty(t *testing.T) {
	s, _ := newStore(t, false)
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.List())
}

func TestCreateFillsDefaults(t *testing.T) {
	ctx := context.Background()
	var created []models.Order
	_, local := repotest.NewLocal(t)
	s := NewStore(local, zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }),
		WithObserver(func(o models.Order) { created = append(created, o) }))

	order, err := s.Create(ctx, models.Order{Customer: "+15551234567", Items: []string{"Tiramisu"}, Total: 8.99})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "2024-02-01", order.Date)
	assert.Len(t, created, 1)

	other := NewStore(local, zap.NewNop())
	require.NoError(t, other.Load(ctx))
	require.Len(t, other.List(), 1)
	assert.Equal(t, order.ID, other.List()[0].ID)
	assert.Equal(t, []string{"Tiramisu"}, other.List()[0].Items)
}

func TestSetStatusAcceptsAnyValue(t *testing.T) {
	ctx := context.Background()
	s, local := newStore(t, true)
	require.NoError(t, s.Load(ctx))

	order, found, err := s.SetStatus(ctx, "1", "pending")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "pending", order.Status)

	_, found, err = s.SetStatus(ctx, "2", "out-for-delivery")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = s.SetStatus(ctx, "404", "completed")
	require.NoError(t, err)
	assert.False(t, found)

	reloaded := NewStore(local, zap.NewNop())
	require.NoError(t, reloaded.Load(ctx))
	list := reloaded.List()
	require.Len(t, list, 2)
	assert.Equal(t, "pending", list[0].Status)
	assert.Equal(t, "out-for-delivery", list[1].Status)
	assert.True(t, fixedNow.Equal(list[1].UpdatedAt))
}

func TestRecentIsPositional(t *testing.T) {
	s := &Store{}
	for _, id := range []models.ID{"a", "b", "c", "d", "e", "f", "g"} {
		s.orders = append(s.orders, models.Order{ID: id})
	}

	recent := s.Recent(5)
	require.Len(t, recent, 5)
	ids := make([]models.ID, len(recent))
	for i, o := range recent {
		ids[i] = o.ID
	}
	assert.Equal(t, []models.ID{"g", "f", "e", "d", "c"}, ids)

	s.orders = s.orders[:2]
	assert.Len(t, s.Recent(5), 2)
}

func TestStats(t *testing.T) {
	s := &Store{orders: []models.Order{
		{Customer: "John Doe", Total: 27.98},
		{Customer: "Jane Smith", Total: 16.99},
		{Customer: "John Doe"},
	}}

	st := s.Stats()
	assert.Equal(t, 3, st.Count)
	assert.InDelta(t, 44.97, st.Revenue, 1e-9)
	assert.Equal(t, 2, st.Customers)
}

var errSave = errors.New("disk full")

type rejectingPuts struct{ repository.Backend }

func (rejectingPuts) Put(context.Context, repository.Collection, string, interface{}) error {
	return errSave
}

func TestCreateFailureKeepsNoOrder(t *testing.T) {
	ctx := context.Background()
	_, local := repotest.NewLocal(t)
	var created int
	s := NewStore(rejectingPuts{local}, zap.NewNop(),
		WithObserver(func(models.Order) { created++ }))
	require.NoError(t, s.Load(ctx))

	for i := 0; i < 2; i++ {
		_, err := s.Create(ctx, models.Order{Customer: "+15551234567", Total: 14.99})
		assert.ErrorIs(t, err, errSave)
	}
	assert.Empty(t, s.List())
	assert.Zero(t, created)
}

func TestRecentWithNonPositiveCount(t *testing.T) {
	s, _ := newStore(t, true)
	require.NoError(t, s.Load(context.Background()))

	assert.Empty(t, s.Recent(0))
	assert.Empty(t, s.Recent(-3))
	assert.Len(t, s.Recent(1), 1)
}
