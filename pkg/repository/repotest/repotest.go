// Package repotest provides redis-backed local stores and a scriptable
// remote for tests of packages built on repository.
package repotest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/repository"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var ErrRemoteDown = errors.New("remote down")

// NewLocal starts a miniredis server and returns a Local bound to it. Both
// are closed when the test ends.
func NewLocal(t testing.TB) (*miniredis.Miniredis, *repository.Local) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	cfg := &config.RedisConfig{KeyPrefix: "test:", Channel: "test:storage"}
	return mr, repository.NewLocal(client, cfg, zap.NewNop())
}

// Remote is an in-memory repository.Remote. Setting Down makes every call
// fail with ErrRemoteDown.
type Remote struct {
	mu      sync.Mutex
	Down    bool
	records map[string]map[string]json.RawMessage
	order   map[string][]string
	Calls   int
}

func NewRemote() *Remote {
	return &Remote{
		records: make(map[string]map[string]json.RawMessage),
		order:   make(map[string][]string),
	}
}

func (r *Remote) SetDown(down bool) {
	r.mu.Lock()
	r.Down = down
	r.mu.Unlock()
}

func (r *Remote) Name() string { return "memory" }

func (r *Remote) Probe(ctx context.Context) error {
	return r.check()
}

func (r *Remote) List(ctx context.Context, c repository.Collection, dest interface{}) (bool, error) {
	if err := r.check(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	raw := make([]json.RawMessage, 0, len(r.order[c.Name]))
	for _, id := range r.order[c.Name] {
		raw = append(raw, r.records[c.Name][id])
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *Remote) Put(ctx context.Context, c repository.Collection, id string, record interface{}) error {
	if err := r.check(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records[c.Name] == nil {
		r.records[c.Name] = make(map[string]json.RawMessage)
	}
	if _, ok := r.records[c.Name][id]; !ok {
		r.order[c.Name] = append(r.order[c.Name], id)
	}
	r.records[c.Name][id] = data
	return nil
}

func (r *Remote) Update(ctx context.Context, c repository.Collection, id string, fields repository.Fields) error {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.records[c.Name][id]
	if !ok {
		return nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	r.records[c.Name][id] = merged
	return nil
}

func (r *Remote) Delete(ctx context.Context, c repository.Collection, id string) error {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records[c.Name], id)
	ids := r.order[c.Name][:0]
	for _, existing := range r.order[c.Name] {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	r.order[c.Name] = ids
	return nil
}

// Len returns the number of records held for a collection.
func (r *Remote) Len(collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records[collection])
}

func (r *Remote) check() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.Down {
		return ErrRemoteDown
	}
	return nil
}
