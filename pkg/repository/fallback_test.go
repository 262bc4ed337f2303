package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRemote keeps records in memory and fails on demand.
type fakeRemote struct {
	probeErr error
	fail     error
	records  map[string]record
	calls    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string]record)}
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) Probe(ctx context.Context) error { return f.probeErr }

func (f *fakeRemote) List(ctx context.Context, c Collection, dest interface{}) (bool, error) {
	f.calls = append(f.calls, "list")
	if f.fail != nil {
		return false, f.fail
	}
	out := dest.(*[]record)
	for _, r := range f.records {
		*out = append(*out, r)
	}
	return true, nil
}

func (f *fakeRemote) Put(ctx context.Context, c Collection, id string, rec interface{}) error {
	f.calls = append(f.calls, "put")
	if f.fail != nil {
		return f.fail
	}
	f.records[id] = rec.(record)
	return nil
}

func (f *fakeRemote) Update(ctx context.Context, c Collection, id string, fields Fields) error {
	f.calls = append(f.calls, "update")
	return f.fail
}

func (f *fakeRemote) Delete(ctx context.Context, c Collection, id string) error {
	f.calls = append(f.calls, "delete")
	if f.fail != nil {
		return f.fail
	}
	delete(f.records, id)
	return nil
}

func TestProbeRemoteDisablesUnreachable(t *testing.T) {
	remote := newFakeRemote()
	remote.probeErr = errors.New("no route to host")

	assert.Nil(t, ProbeRemote(context.Background(), remote, zap.NewNop()))
	assert.Nil(t, ProbeRemote(context.Background(), nil, zap.NewNop()))

	remote.probeErr = nil
	assert.NotNil(t, ProbeRemote(context.Background(), remote, zap.NewNop()))
}

func TestFallbackWithoutRemoteUsesLocal(t *testing.T) {
	_, local := setupLocal(t)
	f := NewFallback(nil, local, zap.NewNop(), nil)
	ctx := context.Background()

	assert.False(t, f.Configured())
	assert.Equal(t, "local", f.Name())
	require.NoError(t, f.Put(ctx, testCollection, "1", record{ID: "1", Name: "A"}))

	var got []record
	found, err := f.List(ctx, testCollection, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, got, 1)
	assert.Empty(t, f.TakeNotice())
}

func TestFallbackPrefersRemote(t *testing.T) {
	_, local := setupLocal(t)
	remote := newFakeRemote()
	f := NewFallback(remote, local, zap.NewNop(), nil)
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, testCollection, "1", record{ID: "1", Name: "A"}))
	assert.Contains(t, remote.records, "1")

	var localCopy []record
	found, _ := local.List(ctx, testCollection, &localCopy)
	assert.False(t, found)
	assert.Empty(t, f.TakeNotice())
}

func TestFallbackFallsBackPerCallWithoutDisabling(t *testing.T) {
	_, local := setupLocal(t)
	remote := newFakeRemote()
	remote.fail = errors.New("ProvisionedThroughputExceededException")

	var observed []string
	f := NewFallback(remote, local, zap.NewNop(), func(collection, op string) {
		observed = append(observed, collection+"/"+op)
	})
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, testCollection, "1", record{ID: "1", Name: "A"}))

	var got []record
	found, err := f.List(ctx, testCollection, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []record{{ID: "1", Name: "A"}}, got)
	assert.Equal(t, []string{"things/put", "things/list"}, observed)
	assert.NotEmpty(t, f.TakeNotice())
	assert.Empty(t, f.TakeNotice())

	// the remote is still tried on the next call
	remote.fail = nil
	require.NoError(t, f.Delete(ctx, testCollection, "1"))
	assert.True(t, f.Configured())
	assert.Equal(t, []string{"put", "list", "delete"}, remote.calls)
}
