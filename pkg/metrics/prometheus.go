// Package metrics provides Prometheus metrics for the kiosk playback service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the kiosk.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Playback
	intents          *prometheus.CounterVec
	autoplayAdvances prometheus.Counter
	staleTicks       prometheus.Counter
	idleElapsed      prometheus.Counter
	userActivity     *prometheus.CounterVec
	mode             prometheus.Gauge
	activeIndex      prometheus.Gauge
	detailOpen       prometheus.Gauge
	autoplayEnabled  prometheus.Gauge
	autoplayPeriod   prometheus.Gauge
	transitionTime   prometheus.Histogram

	// Catalog
	catalogEvents       prometheus.Gauge
	catalogLoads        *prometheus.CounterVec
	catalogLoadDuration prometheus.Histogram

	// Inbox
	inboxCapacity prometheus.Gauge
	inboxSize     prometheus.Gauge
	inboxDropped  *prometheus.CounterVec

	// Observers
	subscribers   *prometheus.GaugeVec
	framesDropped prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kiosk",
		subsystem:        "playback",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.intents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("intents_total"),
		Help:        "Intents handled by the coordinator, by kind and result",
		ConstLabels: labels,
	}, []string{"intent", "result"})

	m.autoplayAdvances = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("autoplay_advances_total"),
		Help:        "Automatic advances applied while in loop mode",
		ConstLabels: labels,
	})

	m.staleTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("autoplay_stale_ticks_total"),
		Help:        "Ticks discarded because the schedule was cancelled before they were applied",
		ConstLabels: labels,
	})

	m.idleElapsed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("idle_elapsed_total"),
		Help:        "Idle countdowns that elapsed without qualifying input",
		ConstLabels: labels,
	})

	m.userActivity = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("user_activity_total"),
		Help:        "Qualifying input received, by input kind",
		ConstLabels: labels,
	}, []string{"input"})

	m.mode = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("mode"),
		Help:        "Current mode: 0 loop, 1 interactive",
		ConstLabels: labels,
	})

	m.activeIndex = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("active_index"),
		Help:        "Index of the event currently shown",
		ConstLabels: labels,
	})

	m.detailOpen = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("detail_open"),
		Help:        "1 while the detail overlay is open",
		ConstLabels: labels,
	})

	m.autoplayEnabled = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("autoplay_enabled"),
		Help:        "1 while the autoplay ticker is running",
		ConstLabels: labels,
	})

	m.autoplayPeriod = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("autoplay_period_milliseconds"),
		Help:        "Configured autoplay period",
		ConstLabels: labels,
	})

	m.transitionTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("transition_latency_milliseconds"),
		Help:        "Time from enqueueing an intent to committing its state",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.catalogEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "catalog",
		Name:        m.name("events"),
		Help:        "Number of events in the loaded catalog",
		ConstLabels: labels,
	})

	m.catalogLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "catalog",
		Name:        m.name("loads_total"),
		Help:        "Catalog load attempts by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.catalogLoadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "catalog",
		Name:        m.name("load_duration_milliseconds"),
		Help:        "Catalog fetch and decode duration",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: labels,
	})

	m.inboxCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "inbox",
		Name:        m.name("capacity"),
		Help:        "Maximum number of pending coordinator messages",
		ConstLabels: labels,
	})

	m.inboxSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "inbox",
		Name:        m.name("size"),
		Help:        "Pending coordinator messages",
		ConstLabels: labels,
	})

	m.inboxDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "inbox",
		Name:        m.name("dropped_total"),
		Help:        "Messages rejected by the inbox, by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.subscribers = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "observers",
		Name:        m.name("subscribers"),
		Help:        "Connected presentation observers, by transport",
		ConstLabels: labels,
	}, []string{"transport"})

	m.framesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "observers",
		Name:        m.name("frames_dropped_total"),
		Help:        "State frames dropped because an observer was slow",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.name("requests_total"),
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.name("request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Manager-level recorders. Package-level helpers below forward to the global
// manager; tests can build their own Manager against a private registry.

// RecordIntent counts a handled intent.
func (m *Manager) RecordIntent(intent, result string) {
	if m.enabled {
		m.intents.WithLabelValues(intent, result).Inc()
	}
}

// RecordAutoplayAdvance counts an applied autoplay tick.
func (m *Manager) RecordAutoplayAdvance() {
	if m.enabled {
		m.autoplayAdvances.Inc()
	}
}

// RecordStaleTick counts a discarded tick.
func (m *Manager) RecordStaleTick() {
	if m.enabled {
		m.staleTicks.Inc()
	}
}

// RecordIdleElapsed counts an idle expiry.
func (m *Manager) RecordIdleElapsed() {
	if m.enabled {
		m.idleElapsed.Inc()
	}
}

// RecordUserActivity counts qualifying input.
func (m *Manager) RecordUserActivity(input string) {
	if m.enabled {
		m.userActivity.WithLabelValues(input).Inc()
	}
}

// UpdatePlayback publishes the committed playback state.
func (m *Manager) UpdatePlayback(interactive bool, index int, detailOpen, autoplay bool) {
	if !m.enabled {
		return
	}
	m.mode.Set(boolGauge(interactive))
	m.activeIndex.Set(float64(index))
	m.detailOpen.Set(boolGauge(detailOpen))
	m.autoplayEnabled.Set(boolGauge(autoplay))
}

// UpdateAutoplayPeriod publishes the autoplay period.
func (m *Manager) UpdateAutoplayPeriod(d time.Duration) {
	if m.enabled {
		m.autoplayPeriod.Set(float64(d.Milliseconds()))
	}
}

// RecordTransitionLatency observes enqueue-to-commit latency.
func (m *Manager) RecordTransitionLatency(latencyMs float64) {
	if m.enabled {
		m.transitionTime.Observe(latencyMs)
	}
}

// RecordCatalogLoad records a catalog load outcome.
func (m *Manager) RecordCatalogLoad(result string, events int, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.catalogLoads.WithLabelValues(result).Inc()
	m.catalogLoadDuration.Observe(latencyMs)
	m.catalogEvents.Set(float64(events))
}

// UpdateInbox publishes inbox occupancy.
func (m *Manager) UpdateInbox(size, capacity int) {
	if !m.enabled {
		return
	}
	m.inboxSize.Set(float64(size))
	m.inboxCapacity.Set(float64(capacity))
}

// RecordInboxDrop counts a rejected inbox message.
func (m *Manager) RecordInboxDrop(reason string) {
	if m.enabled {
		m.inboxDropped.WithLabelValues(reason).Inc()
	}
}

// AddSubscribers adjusts the observer gauge for transport by delta.
func (m *Manager) AddSubscribers(transport string, delta int) {
	if m.enabled {
		m.subscribers.WithLabelValues(transport).Add(float64(delta))
	}
}

// RecordFrameDropped counts a frame dropped for a slow observer.
func (m *Manager) RecordFrameDropped() {
	if m.enabled {
		m.framesDropped.Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError counts an error for component.
func (m *Manager) RecordError(component, errorType string) {
	if m.enabled {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// Package-level helpers bound to the global manager.

func RecordIntent(intent, result string)     { globalManager.RecordIntent(intent, result) }
func RecordAutoplayAdvance()                 { globalManager.RecordAutoplayAdvance() }
func RecordStaleTick()                       { globalManager.RecordStaleTick() }
func RecordIdleElapsed()                     { globalManager.RecordIdleElapsed() }
func RecordUserActivity(input string)        { globalManager.RecordUserActivity(input) }
func UpdateAutoplayPeriod(d time.Duration)   { globalManager.UpdateAutoplayPeriod(d) }
func RecordTransitionLatency(ms float64)     { globalManager.RecordTransitionLatency(ms) }
func UpdateInbox(size, capacity int)         { globalManager.UpdateInbox(size, capacity) }
func RecordInboxDrop(reason string)          { globalManager.RecordInboxDrop(reason) }
func AddSubscribers(transport string, d int) { globalManager.AddSubscribers(transport, d) }
func RecordFrameDropped()                    { globalManager.RecordFrameDropped() }
func RecordError(component, errType string)  { globalManager.RecordError(component, errType) }

// UpdatePlayback publishes the committed playback state.
func UpdatePlayback(interactive bool, index int, detailOpen, autoplay bool) {
	globalManager.UpdatePlayback(interactive, index, detailOpen, autoplay)
}

// RecordCatalogLoad records a catalog load outcome.
func RecordCatalogLoad(result string, events int, latencyMs float64) {
	globalManager.RecordCatalogLoad(result, events, latencyMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RefreshInterval is how often callers should poll gauges such as the inbox
// length.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
