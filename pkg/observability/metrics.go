package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global collector instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	ReflectionsCreated prometheus.Counter
	ReflectionsDeleted prometheus.Counter
	ThreadsCreated     prometheus.Counter
	CrisisDetections   prometheus.Counter

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// Draft metrics
	SnapshotWrites prometheus.Counter
	SnapshotFailed prometheus.Counter
	UndoOperations *prometheus.CounterVec

	// Notification metrics
	Subscribers          prometheus.Gauge
	NotificationsSent    prometheus.Counter
	WebSocketConnections prometheus.Gauge
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	reflectionsCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reflections_created_total",
			Help:      "Total number of reflections created",
		},
	)

	reflectionsDeleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reflections_deleted_total",
			Help:      "Total number of reflections deleted",
		},
	)

	threadsCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_created_total",
			Help:      "Total number of threads created",
		},
	)

	crisisDetections := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crisis_detections_total",
			Help:      "Total number of reflections flagged by the crisis scan",
		},
	)

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of durable store operations",
		},
		[]string{"operation", "status"},
	)

	storeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Durable store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	snapshotWrites := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_snapshot_writes_total",
			Help:      "Total number of recovery snapshot writes",
		},
	)

	snapshotFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_snapshot_failures_total",
			Help:      "Total number of recovery snapshot writes that degraded silently",
		},
	)

	undoOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_operations_total",
			Help:      "Total number of undo stack operations",
		},
		[]string{"operation"},
	)

	subscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state_subscribers",
			Help:      "Current number of state manager subscribers",
		},
	)

	notificationsSent := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_notifications_total",
			Help:      "Total number of state change notifications delivered",
		},
	)

	websocketConnections := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Current number of websocket connections",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		reflectionsCreated,
		reflectionsDeleted,
		threadsCreated,
		crisisDetections,
		storeOperations,
		storeDuration,
		snapshotWrites,
		snapshotFailed,
		undoOperations,
		subscribers,
		notificationsSent,
		websocketConnections,
	)

	globalCollector = &Collector{
		registry:             registry,
		HTTPRequests:         httpRequests,
		HTTPDuration:         httpDuration,
		ReflectionsCreated:   reflectionsCreated,
		ReflectionsDeleted:   reflectionsDeleted,
		ThreadsCreated:       threadsCreated,
		CrisisDetections:     crisisDetections,
		StoreOperations:      storeOperations,
		StoreDuration:        storeDuration,
		SnapshotWrites:       snapshotWrites,
		SnapshotFailed:       snapshotFailed,
		UndoOperations:       undoOperations,
		Subscribers:          subscribers,
		NotificationsSent:    notificationsSent,
		WebSocketConnections: websocketConnections,
	}

	return globalCollector
}

// Registry returns the Prometheus registry backing this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
