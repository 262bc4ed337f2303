package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/bistro/gateway"
	"github.com/example/bistro/pkg/admin"
	"github.com/example/bistro/pkg/catalog"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/discovery"
	"github.com/example/bistro/pkg/eventloop"
	healthgrpc "github.com/example/bistro/pkg/grpc"
	applog "github.com/example/bistro/pkg/logger"
	"github.com/example/bistro/pkg/metrics"
	"github.com/example/bistro/pkg/orders"
	"github.com/example/bistro/pkg/repository"
	"github.com/example/bistro/pkg/session"
	"github.com/example/bistro/pkg/storefront"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("BISTRO_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := applog.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting bistro",
		zap.String("host", cfg.Gateway.Host),
		zap.Int("port", cfg.Gateway.Port),
		zap.String("remote", cfg.Remote.Driver),
		zap.String("identity", cfg.Identity.Driver))

	m := metrics.New()

	// Local persistence
	client := repository.NewRedisClient(&cfg.Redis)
	defer client.Close()
	local := repository.NewLocal(client, &cfg.Redis, logger)
	if err := local.Ping(ctx); err != nil {
		logger.Fatal("Redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	// Remote store, probed once
	probeCtx, cancelProbe := context.WithTimeout(ctx, cfg.Remote.ProbeTimeout)
	remote := repository.ProbeRemote(probeCtx, openRemote(ctx, cfg, logger), logger)
	cancelProbe()

	identity, err := openIdentity(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up identity provider", zap.Error(err))
	}

	auditor, closeAuditor := openAuditor(cfg, logger)
	defer closeAuditor()

	// Storefront surface
	sfLocal := local.WithOrigin(storefront.Name)
	sfBackend := repository.NewFallback(remote, sfLocal, logger, m.RemoteFallback)
	sessions := session.NewManager(identity, sfLocal, &cfg.Session, cfg.Identity.PlaceholderPassword, logger)
	shop := storefront.New(
		catalog.NewStore(sfBackend, repository.StorefrontMenu, logger,
			catalog.WithSeed(sfLocal, catalog.StorefrontDefaults),
			catalog.WithObserver(m.CatalogMutation(storefront.Name))),
		orders.NewStore(sfBackend, logger, orders.WithObserver(m.OrderPlaced)),
		sessions, sfBackend, logger)

	// Admin surface
	adminLocal := local.WithOrigin(admin.Name)
	adminBackend := repository.NewFallback(remote, adminLocal, logger, m.RemoteFallback)
	dashboard := admin.New(
		catalog.NewStore(adminBackend, repository.AdminMenu, logger,
			catalog.WithSeed(adminLocal, catalog.AdminDefaults),
			catalog.WithObserver(m.CatalogMutation(admin.Name))),
		catalog.NewCategories(adminLocal),
		orders.NewStore(adminBackend, logger, orders.WithSeed(adminLocal)),
		auditor, adminBackend, logger)

	// The storefront loads first: an admin seed also rewrites menuItems, so
	// loading it first would hide the storefront defaults.
	if err := shop.Load(ctx); err != nil {
		logger.Fatal("Failed to load storefront data", zap.Error(err))
	}
	if err := dashboard.Load(ctx); err != nil {
		logger.Fatal("Failed to load admin data", zap.Error(err))
	}

	system := actor.NewActorSystem()
	sfLoop, err := eventloop.New(system, storefront.Name, logger)
	if err != nil {
		logger.Fatal("Failed to start storefront loop", zap.Error(err))
	}
	defer sfLoop.Stop()
	adminLoop, err := eventloop.New(system, admin.Name, logger)
	if err != nil {
		logger.Fatal("Failed to start admin loop", zap.Error(err))
	}
	defer adminLoop.Stop()

	// Change notifications
	hub := gateway.NewHub(logger)
	if err := watch(ctx, sfLocal, sfLoop, shop, m, logger); err != nil {
		logger.Fatal("Failed to watch storefront changes", zap.Error(err))
	}
	if err := watch(ctx, adminLocal, adminLoop, dashboard, m, logger); err != nil {
		logger.Fatal("Failed to watch admin changes", zap.Error(err))
	}
	all, err := local.Subscribe(ctx)
	if err != nil {
		logger.Fatal("Failed to subscribe to changes", zap.Error(err))
	}
	go hub.Run(ctx, all)

	sfLoop.Every(ctx, cfg.Session.RefreshInterval, func() error {
		return shop.RefreshSession(ctx)
	})

	// gRPC health
	health := healthgrpc.NewHealthServer(&cfg.Server, logger)
	health.SetServing(healthgrpc.ServiceStorefront, true)
	health.SetServing(healthgrpc.ServiceAdmin, true)
	health.SetServing(healthgrpc.ServiceRemote, remote != nil)
	go func() {
		if err := health.Start(); err != nil {
			logger.Error("Health service stopped", zap.Error(err))
		}
	}()

	// HTTP gateway
	gw := gateway.NewGateway(cfg, logger, gateway.Surfaces{
		Storefront:     shop,
		StorefrontLoop: sfLoop,
		Admin:          dashboard,
		AdminLoop:      adminLoop,
		Persistence:    sfBackend.Name(),
	}, hub, m)
	gw.SetupRoutes()

	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	registrar := register(ctx, cfg, logger)

	logger.Info("Bistro started successfully")

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-gwErr:
		logger.Error("Gateway error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if registrar != nil {
		if err := registrar.Deregister(shutdownCtx); err != nil {
			logger.Warn("Failed to deregister", zap.Error(err))
		}
		registrar.Close()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Gateway did not shut down cleanly", zap.Error(err))
	}
	health.Stop()

	logger.Info("Bistro stopped")
}

func watch(ctx context.Context, local *repository.Local, loop *eventloop.Loop, h gateway.ChangeHandler, m *metrics.Metrics, logger *zap.Logger) error {
	changes, err := local.Subscribe(ctx)
	if err != nil {
		return err
	}
	surface := loop.Name()
	go gateway.Watch(ctx, changes, loop, h, func(key string) {
		m.ChangeReceived(surface, key)
	}, logger)
	return nil
}

func register(ctx context.Context, cfg *config.Config, logger *zap.Logger) *discovery.Registrar {
	if len(cfg.Etcd.Endpoints) == 0 {
		return nil
	}

	r, err := discovery.NewRegistrar(&cfg.Etcd, logger)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without registration", zap.Error(err))
		return nil
	}
	err = r.Register(ctx, &discovery.Instance{
		Name:     cfg.Server.Name,
		Host:     cfg.Server.Host,
		HTTPPort: cfg.Gateway.Port,
		GRPCPort: cfg.Server.GRPCPort,
	})
	if err != nil {
		logger.Warn("Failed to register, continuing without registration", zap.Error(err))
		r.Close()
		return nil
	}
	return r
}
