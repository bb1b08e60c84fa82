// Package metrics exposes prometheus counters for notification delivery and
// maintenance workflow activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	registry *prometheus.Registry

	notificationsPersisted prometheus.Counter
	channelDeliveries      *prometheus.CounterVec
	tokensDeactivated      prometheus.Counter
	maintenanceTransitions *prometheus.CounterVec
	messagesRouted         *prometheus.CounterVec
}

// New builds a Metrics bound to its own registry so tests and multiple
// application instances never collide on global registration.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notificationsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantlink_notifications_persisted_total",
			Help: "Notification records written before delivery",
		}),
		channelDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantlink_channel_deliveries_total",
			Help: "Delivery attempts per channel and outcome",
		}, []string{"channel", "outcome"}),
		tokensDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantlink_push_tokens_deactivated_total",
			Help: "Push tokens deactivated after a permanent provider rejection",
		}),
		maintenanceTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantlink_maintenance_transitions_total",
			Help: "Maintenance request status transitions by target status",
		}, []string{"status"}),
		messagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantlink_messages_routed_total",
			Help: "Messages persisted, labelled by whether routing redirected them",
		}, []string{"redirected"}),
	}

	m.registry.MustRegister(
		m.notificationsPersisted,
		m.channelDeliveries,
		m.tokensDeactivated,
		m.maintenanceTransitions,
		m.messagesRouted,
	)
	return m
}

func (m *Metrics) NotificationPersisted() {
	if m == nil {
		return
	}
	m.notificationsPersisted.Inc()
}

func (m *Metrics) ChannelDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.channelDeliveries.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) TokenDeactivated() {
	if m == nil {
		return
	}
	m.tokensDeactivated.Inc()
}

func (m *Metrics) MaintenanceTransition(status string) {
	if m == nil {
		return
	}
	m.maintenanceTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) MessageRouted(redirected bool) {
	if m == nil {
		return
	}
	label := "false"
	if redirected {
		label = "true"
	}
	m.messagesRouted.WithLabelValues(label).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
