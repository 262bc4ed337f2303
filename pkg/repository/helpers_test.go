package repository

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/bistro/pkg/config"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// setupLocal starts a miniredis instance and returns a Local bound to it.
func setupLocal(t *testing.T) (*miniredis.Miniredis, *Local) {
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
	return mr, NewLocal(client, cfg, zap.NewNop())
}

type record struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
