// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Handler metrics
	HandlerDuration *prometheus.HistogramVec

	// Resolver metrics
	TokensTotal        *prometheus.CounterVec
	ResolveScore       prometheus.Histogram
	GroupingRegions    prometheus.Histogram
	RejectedRequests   *prometheus.CounterVec
	DirectoryLookups   *prometheus.CounterVec
	DirectoryDuration  prometheus.Histogram
	RequestLogTotal    *prometheus.CounterVec
	AdminCommandsTotal *prometheus.CounterVec
	ExportsTotal       *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped     *prometheus.CounterVec
	RateLimiterActiveUsers *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geo_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"event_type"}, // event_type: message, postback, follow
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_signature, rate_limit, reply_failed, etc.
		),

		HandlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geo_handler_duration_seconds",
				Help:    "Bot module handler duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"module", "kind"}, // kind: message, postback
		),

		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_tokens_total",
				Help: "Total number of GEO tokens by resolution outcome",
			},
			[]string{"outcome"}, // outcome: resolved, unresolved, skipped
		),

		ResolveScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geo_resolve_score",
				Help:    "Similarity score of accepted GEO matches",
				Buckets: []float64{70, 75, 80, 85, 90, 95, 99, 100},
			},
		),

		GroupingRegions: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geo_grouping_regions",
				Help:    "Number of distinct regions per grouped request",
				Buckets: []float64{1, 2, 3, 4, 6, 8, 10, 12},
			},
		),

		RejectedRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_rejected_requests_total",
				Help: "Total GEO requests rejected before grouping",
			},
			[]string{"reason"}, // reason: too_many_regions
		),

		DirectoryLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_directory_lookups_total",
				Help: "Total contact directory lookups by status",
			},
			[]string{"status"}, // status: success, error
		),

		DirectoryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geo_directory_lookup_duration_seconds",
				Help:    "Contact directory lookup duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		RequestLogTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_request_log_total",
				Help: "Total request log writes by status",
			},
			[]string{"status"}, // status: success, error, dropped
		),

		AdminCommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_admin_commands_total",
				Help: "Total admin directory commands by command and status",
			},
			[]string{"command", "status"}, // status: success, not_found, denied, invalid, error
		),

		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_exports_total",
				Help: "Total request exports by status",
			},
			[]string{"status"}, // status: success, unauthorized, empty, unavailable, rate_limited, error
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: user, global, export
		),

		RateLimiterActiveUsers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "geo_rate_limiter_active_users",
				Help: "Number of keys currently tracked by a keyed rate limiter",
			},
			[]string{"limiter_type"},
		),
	}

	return m
}

// RecordWebhook records a webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordHandler records how long a bot module took to answer.
func (m *Metrics) RecordHandler(module, kind string, duration float64) {
	m.HandlerDuration.WithLabelValues(module, kind).Observe(duration)
}

// RecordToken records the outcome of one GEO token.
func (m *Metrics) RecordToken(outcome string) {
	m.TokensTotal.WithLabelValues(outcome).Inc()
}

// RecordResolveScore records the score of an accepted match.
func (m *Metrics) RecordResolveScore(score float64) {
	m.ResolveScore.Observe(score)
}

// RecordGrouping records the number of distinct regions grouped for a request.
func (m *Metrics) RecordGrouping(regions int) {
	m.GroupingRegions.Observe(float64(regions))
}

// RecordRejected records a request rejected before grouping.
func (m *Metrics) RecordRejected(reason string) {
	m.RejectedRequests.WithLabelValues(reason).Inc()
}

// RecordDirectoryLookup records one contact directory lookup.
func (m *Metrics) RecordDirectoryLookup(status string, duration time.Duration) {
	m.DirectoryLookups.WithLabelValues(status).Inc()
	m.DirectoryDuration.Observe(duration.Seconds())
}

// RecordRequestLog records a request log outcome.
func (m *Metrics) RecordRequestLog(status string) {
	m.RequestLogTotal.WithLabelValues(status).Inc()
}

// RecordAdminCommand records an admin command outcome.
func (m *Metrics) RecordAdminCommand(command, status string) {
	m.AdminCommandsTotal.WithLabelValues(command, status).Inc()
}

// RecordExport records a request export outcome.
func (m *Metrics) RecordExport(status string) {
	m.ExportsTotal.WithLabelValues(status).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterUsers sets the number of keys tracked by a keyed limiter.
func (m *Metrics) SetRateLimiterUsers(limiterType string, count int) {
	m.RateLimiterActiveUsers.WithLabelValues(limiterType).Set(float64(count))
}
