package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/bistro/pkg/admin"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/eventloop"
	"github.com/example/bistro/pkg/metrics"
	"github.com/example/bistro/pkg/storefront"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Surfaces are the two page models the gateway drives, each bound to the
// loop that serializes its operations.
type Surfaces struct {
	Storefront     *storefront.Storefront
	StorefrontLoop *eventloop.Loop
	Admin          *admin.Dashboard
	AdminLoop      *eventloop.Loop
	Persistence    string
}

type Gateway struct {
	config   *config.Config
	surfaces Surfaces
	hub      *Hub
	metrics  *metrics.Metrics
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
}

func NewGateway(cfg *config.Config, logger *zap.Logger, surfaces Surfaces, hub *Hub, m *metrics.Metrics) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		surfaces: surfaces,
		hub:      hub,
		metrics:  m,
		logger:   logger.Named("gateway"),
		router:   router,
	}
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	if g.metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.metrics.Handler()))
	}

	v1 := g.router.Group("/api/v1")
	{
		v1.GET("/menu", g.getMenu)

		cart := v1.Group("/cart")
		{
			cart.GET("", g.getCart)
			cart.POST("/items", g.addToCart)
			cart.PATCH("/items/:id", g.adjustQuantity)
			cart.DELETE("/items/:id", g.removeFromCart)
			cart.POST("/toggle", g.toggleCart)
		}
		v1.POST("/checkout", g.checkout)

		auth := v1.Group("/auth")
		{
			auth.POST("/code", g.requestCode)
			auth.POST("/resend", g.resendCode)
			auth.POST("/verify", g.verifyCode)
			auth.GET("/session", g.getSession)
			auth.POST("/logout", g.logout)
		}

		adm := v1.Group("/admin")
		{
			adm.GET("/dashboard", g.dashboard)
			adm.GET("/menu", g.listMenuItems)
			adm.POST("/menu", g.createMenuItem)
			adm.PUT("/menu/:id", g.updateMenuItem)
			adm.DELETE("/menu/:id", g.deleteMenuItem)
			adm.GET("/categories", g.listCategories)
			adm.POST("/categories", g.createCategory)
			adm.GET("/orders", g.listOrders)
			adm.PUT("/orders/:id/status", g.updateOrderStatus)
			adm.GET("/history/:id", g.history)
		}

		if g.hub != nil {
			v1.GET("/events", g.hub.ServeWS)
		}
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Gateway.Host, g.config.Gateway.Port)
	g.server = &http.Server{Addr: addr, Handler: g.router}
	g.logger.Info("Gateway starting", zap.String("address", addr))

	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"persistence": g.surfaces.Persistence,
		"surfaces":    []string{g.surfaces.StorefrontLoop.Name(), g.surfaces.AdminLoop.Name()},
	})
}

// requestContext bounds how long a handler waits on a surface loop.
func (g *Gateway) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := g.config.Gateway.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// withNotice adds the surface's passive notice to body when there is one.
func withNotice(body gin.H, notice string) gin.H {
	if notice != "" {
		body["notice"] = notice
	}
	return body
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
