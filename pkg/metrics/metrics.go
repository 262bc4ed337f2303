package metrics

import (
	"net/http"

	"github.com/example/bistro/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bistro"

// Metrics owns a private registry so tests and multiple instances never
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced     prometheus.Counter
	revenue          prometheus.Counter
	remoteFallbacks  *prometheus.CounterVec
	catalogMutations *prometheus.CounterVec
	changesReceived  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders placed through checkout",
		}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_revenue_total",
			Help:      "Sum of order totals placed through checkout",
		}),
		remoteFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_fallbacks_total",
			Help:      "Remote store calls that fell back to local persistence",
		}, []string{"collection", "op"}),
		catalogMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_mutations_total",
			Help:      "Menu item changes that reached persistence",
		}, []string{"surface", "op"}),
		changesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_changes_received_total",
			Help:      "Change notifications handled by a surface",
		}, []string{"surface", "key"}),
	}

	m.registry.MustRegister(
		m.ordersPlaced,
		m.revenue,
		m.remoteFallbacks,
		m.catalogMutations,
		m.changesReceived,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderPlaced(o models.Order) {
	m.ordersPlaced.Inc()
	if o.Total > 0 {
		m.revenue.Add(o.Total)
	}
}

// RemoteFallback has the shape of repository.FallbackObserver.
func (m *Metrics) RemoteFallback(collection, op string) {
	m.remoteFallbacks.WithLabelValues(collection, op).Inc()
}

// CatalogMutation returns an observer bound to one surface.
func (m *Metrics) CatalogMutation(surface string) func(op string) {
	return func(op string) {
		m.catalogMutations.WithLabelValues(surface, op).Inc()
	}
}

func (m *Metrics) ChangeReceived(surface, key string) {
	m.changesReceived.WithLabelValues(surface, key).Inc()
}
