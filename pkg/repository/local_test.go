package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCollection = Collection{
	Name:      "things",
	ReadKey:   "adminThings",
	WriteKeys: []string{"adminThings", "things"},
}

func TestLocalLoadMissing(t *testing.T) {
	_, local := setupLocal(t)

	var got []record
	found, err := local.Load(context.Background(), "nothing", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestLocalLoadMalformed(t *testing.T) {
	mr, local := setupLocal(t)
	require.NoError(t, mr.Set("test:menuItems", "{not json"))

	got := []record{{ID: "stale"}}
	found, err := local.Load(context.Background(), "menuItems", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestLocalLoadWrongShape(t *testing.T) {
	mr, local := setupLocal(t)
	require.NoError(t, mr.Set("test:menuItems", `[{"id":"1","name":"ok"},{"id":"2","price":"free"}]`))

	var got []record
	found, err := local.Load(context.Background(), "menuItems", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestLocalSaveWritesEveryKey(t *testing.T) {
	mr, local := setupLocal(t)
	ctx := context.Background()

	items := []record{{ID: "1", Name: "Margherita Pizza", Price: 14.99}}
	require.NoError(t, local.Save(ctx, items, "adminMenuItems", "menuItems"))

	a, _ := mr.Get("test:adminMenuItems")
	b, _ := mr.Get("test:menuItems")
	assert.Equal(t, a, b)

	var got []record
	found, err := local.Load(ctx, "menuItems", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, items, got)
}

func TestLocalRemove(t *testing.T) {
	mr, local := setupLocal(t)
	ctx := context.Background()

	require.NoError(t, local.Save(ctx, true, "isAuthenticated"))
	require.NoError(t, local.Remove(ctx, "isAuthenticated", "userSession"))
	assert.False(t, mr.Exists("test:isAuthenticated"))
}

func TestLocalBackendOperations(t *testing.T) {
	mr, local := setupLocal(t)
	ctx := context.Background()

	require.NoError(t, local.Put(ctx, testCollection, "1", record{ID: "1", Name: "A", Price: 1}))
	require.NoError(t, local.Put(ctx, testCollection, "2", record{ID: "2", Name: "B", Price: 2}))
	require.NoError(t, local.Put(ctx, testCollection, "1", &record{ID: "1", Name: "A2", Price: 1.5}))

	var got []record
	found, err := local.List(ctx, testCollection, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []record{{ID: "1", Name: "A2", Price: 1.5}, {ID: "2", Name: "B", Price: 2}}, got)

	require.NoError(t, local.Update(ctx, testCollection, "2", Fields{"name": "B2"}))
	require.NoError(t, local.Update(ctx, testCollection, "missing", Fields{"name": "X"}))
	require.NoError(t, local.Delete(ctx, testCollection, "1"))

	got = nil
	_, err = local.List(ctx, testCollection, &got)
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: "2", Name: "B2", Price: 2}}, got)

	mirror, _ := mr.Get("test:things")
	primary, _ := mr.Get("test:adminThings")
	assert.Equal(t, primary, mirror)
}

func TestLocalPutKeepsNumericLegacyIDs(t *testing.T) {
	mr, local := setupLocal(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("test:adminThings", `[{"id":1700000000123,"name":"legacy"}]`))

	require.NoError(t, local.Update(ctx, testCollection, "1700000000123", Fields{"name": "renamed"}))

	raw, _ := mr.Get("test:adminThings")
	assert.JSONEq(t, `[{"id":1700000000123,"name":"renamed"}]`, raw)
}

func TestLocalPutReplacesMalformedSnapshot(t *testing.T) {
	mr, local := setupLocal(t)
	require.NoError(t, mr.Set("test:adminThings", "garbage"))

	require.NoError(t, local.Put(context.Background(), testCollection, "1", record{ID: "1", Name: "A"}))

	var got []record
	found, err := local.List(context.Background(), testCollection, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, got, 1)
}

func TestLocalSubscribeSkipsOwnOrigin(t *testing.T) {
	_, local := setupLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin := local.WithOrigin("admin")
	storefront := local.WithOrigin("storefront")

	changes, err := storefront.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, storefront.Save(ctx, []record{}, "menuItems"))
	require.NoError(t, admin.Save(ctx, []record{}, "adminMenuItems", "menuItems"))

	var got []Change
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case c := <-changes:
			got = append(got, c)
		case <-timeout:
			t.Fatalf("timed out waiting for changes, got %v", got)
		}
	}

	assert.Equal(t, []Change{
		{Key: "adminMenuItems", Origin: "admin"},
		{Key: "menuItems", Origin: "admin"},
	}, got)
}
