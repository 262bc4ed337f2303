package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/example/bistro/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const leaseTTL = 30

// Instance is one running gateway as seen by other services.
type Instance struct {
	Name     string
	Host     string
	HTTPPort int
	GRPCPort int
}

func (i *Instance) key(prefix string) string {
	return fmt.Sprintf("%s%s/%s:%d", prefix, i.Name, i.Host, i.HTTPPort)
}

type endpoints struct {
	HTTP string `json:"http"`
	GRPC string `json:"grpc"`
}

func (i *Instance) value() (string, error) {
	data, err := json.Marshal(endpoints{
		HTTP: net.JoinHostPort(i.Host, strconv.Itoa(i.HTTPPort)),
		GRPC: net.JoinHostPort(i.Host, strconv.Itoa(i.GRPCPort)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode instance: %w", err)
	}
	return string(data), nil
}

// Registrar keeps an instance key alive in etcd under a lease.
type Registrar struct {
	client *clientv3.Client
	prefix string
	logger *zap.Logger

	mu    sync.Mutex
	lease clientv3.LeaseID
}

func NewRegistrar(cfg *config.EtcdConfig, logger *zap.Logger) (*Registrar, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &Registrar{
		client: cli,
		prefix: cfg.Prefix,
		logger: logger.Named("discovery"),
	}, nil
}

// Register puts the instance under a fresh lease and keeps the lease alive
// until ctx is done.
func (r *Registrar) Register(ctx context.Context, instance *Instance) error {
	lease, err := r.client.Grant(ctx, leaseTTL)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	key := instance.key(r.prefix)
	value, err := instance.value()
	if err != nil {
		return err
	}
	if _, err := r.client.Put(ctx, key, value, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}
	go func() {
		for range ch {
		}
		r.logger.Info("Lease keep-alive ended", zap.String("key", key))
	}()

	r.mu.Lock()
	r.lease = lease.ID
	r.mu.Unlock()

	r.logger.Info("Registered", zap.String("key", key))
	return nil
}

// Deregister revokes the lease, which removes the instance key.
func (r *Registrar) Deregister(ctx context.Context) error {
	r.mu.Lock()
	lease := r.lease
	r.lease = 0
	r.mu.Unlock()

	if lease == 0 {
		return nil
	}
	if _, err := r.client.Revoke(ctx, lease); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (r *Registrar) Close() error {
	return r.client.Close()
}
