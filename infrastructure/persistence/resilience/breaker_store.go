// Package resilience decorates the store ports with failure-handling
// behavior that does not belong in the adapters themselves.
package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"mirror-backend/application/ports"
	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/observability"
)

// BreakerStore wraps a Store with a circuit breaker. When the underlying
// database fails repeatedly the breaker opens and calls fail fast with a
// StorageUnavailable error instead of piling up on a broken disk.
type BreakerStore struct {
	inner   ports.Store
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *observability.Collector
}

// healthy reports whether an error says anything about the database itself.
// Domain rejections pass through without counting against the breaker or
// the store error metrics.
func healthy(err error) bool {
	if err == nil {
		return true
	}
	return pkgerrors.IsNotFound(err) ||
		pkgerrors.IsValidation(err) ||
		pkgerrors.IsConflict(err) ||
		pkgerrors.IsImportInvalid(err)
}

// BreakerConfig tunes the circuit breaker
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that opens the circuit
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a probe
	Timeout time.Duration
}

// DefaultBreakerConfig returns conservative defaults for a local database
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Timeout:     10 * time.Second,
	}
}

// NewBreakerStore wraps the store with a circuit breaker
func NewBreakerStore(inner ports.Store, cfg BreakerConfig, logger *zap.Logger, metrics *observability.Collector) *BreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:    "store",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: healthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Store circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		metrics: metrics,
	}
}

// execute runs fn through the breaker, translating an open circuit into a
// StorageUnavailable error and recording the operation outcome
func (b *BreakerStore) execute(op string, fn func() error) error {
	start := time.Now()
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if b.metrics != nil {
		status := "ok"
		if !healthy(err) {
			status = "error"
		}
		b.metrics.StoreOperations.WithLabelValues(op, status).Inc()
		b.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return pkgerrors.NewStorageUnavailableError("store circuit open", err)
	}
	return err
}

func (b *BreakerStore) Reflections(ctx context.Context) ([]*entities.Reflection, error) {
	var out []*entities.Reflection
	err := b.execute("list_reflections", func() error {
		var err error
		out, err = b.inner.Reflections(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) GetReflection(ctx context.Context, id valueobjects.ReflectionID) (*entities.Reflection, error) {
	var out *entities.Reflection
	err := b.execute("get_reflection", func() error {
		var err error
		out, err = b.inner.GetReflection(ctx, id)
		return err
	})
	return out, err
}

func (b *BreakerStore) AddReflection(ctx context.Context, reflection *entities.Reflection) error {
	return b.execute("add_reflection", func() error { return b.inner.AddReflection(ctx, reflection) })
}

func (b *BreakerStore) UpdateReflection(ctx context.Context, reflection *entities.Reflection) error {
	return b.execute("update_reflection", func() error { return b.inner.UpdateReflection(ctx, reflection) })
}

func (b *BreakerStore) DeleteReflection(ctx context.Context, id valueobjects.ReflectionID) error {
	return b.execute("delete_reflection", func() error { return b.inner.DeleteReflection(ctx, id) })
}

func (b *BreakerStore) Threads(ctx context.Context) ([]*entities.Thread, error) {
	var out []*entities.Thread
	err := b.execute("list_threads", func() error {
		var err error
		out, err = b.inner.Threads(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) GetThread(ctx context.Context, id valueobjects.ThreadID) (*entities.Thread, error) {
	var out *entities.Thread
	err := b.execute("get_thread", func() error {
		var err error
		out, err = b.inner.GetThread(ctx, id)
		return err
	})
	return out, err
}

func (b *BreakerStore) AddThread(ctx context.Context, thread *entities.Thread) error {
	return b.execute("add_thread", func() error { return b.inner.AddThread(ctx, thread) })
}

func (b *BreakerStore) UpdateThread(ctx context.Context, thread *entities.Thread) error {
	return b.execute("update_thread", func() error { return b.inner.UpdateThread(ctx, thread) })
}

func (b *BreakerStore) DeleteThread(ctx context.Context, id valueobjects.ThreadID) error {
	return b.execute("delete_thread", func() error { return b.inner.DeleteThread(ctx, id) })
}

func (b *BreakerStore) Axes(ctx context.Context) ([]*entities.IdentityAxis, error) {
	var out []*entities.IdentityAxis
	err := b.execute("list_axes", func() error {
		var err error
		out, err = b.inner.Axes(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) GetAxis(ctx context.Context, id valueobjects.AxisID) (*entities.IdentityAxis, error) {
	var out *entities.IdentityAxis
	err := b.execute("get_axis", func() error {
		var err error
		out, err = b.inner.GetAxis(ctx, id)
		return err
	})
	return out, err
}

func (b *BreakerStore) AddAxis(ctx context.Context, axis *entities.IdentityAxis) error {
	return b.execute("add_axis", func() error { return b.inner.AddAxis(ctx, axis) })
}

func (b *BreakerStore) UpdateAxis(ctx context.Context, axis *entities.IdentityAxis) error {
	return b.execute("update_axis", func() error { return b.inner.UpdateAxis(ctx, axis) })
}

func (b *BreakerStore) DeleteAxis(ctx context.Context, id valueobjects.AxisID) error {
	return b.execute("delete_axis", func() error { return b.inner.DeleteAxis(ctx, id) })
}

func (b *BreakerStore) Settings(ctx context.Context) (*entities.Settings, error) {
	var out *entities.Settings
	err := b.execute("get_settings", func() error {
		var err error
		out, err = b.inner.Settings(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) UpdateSettings(ctx context.Context, settings *entities.Settings) error {
	return b.execute("update_settings", func() error { return b.inner.UpdateSettings(ctx, settings) })
}

func (b *BreakerStore) ExportAll(ctx context.Context) (*ports.ExportDocument, error) {
	var out *ports.ExportDocument
	err := b.execute("export_all", func() error {
		var err error
		out, err = b.inner.ExportAll(ctx)
		return err
	})
	return out, err
}

func (b *BreakerStore) ImportAll(ctx context.Context, doc *ports.ExportDocument) error {
	return b.execute("import_all", func() error { return b.inner.ImportAll(ctx, doc) })
}

func (b *BreakerStore) ClearAll(ctx context.Context) error {
	return b.execute("clear_all", func() error { return b.inner.ClearAll(ctx) })
}

// BeginUnitOfWork is passed through; the commit inside the unit of work is
// a single database call and carries its own error handling
func (b *BreakerStore) BeginUnitOfWork(ctx context.Context) (ports.UnitOfWork, error) {
	if b.breaker.State() == gobreaker.StateOpen {
		return nil, pkgerrors.NewStorageUnavailableError("store circuit open", nil)
	}
	return b.inner.BeginUnitOfWork(ctx)
}

// State reports the breaker state for readiness checks
func (b *BreakerStore) State() string {
	return b.breaker.State().String()
}

func (b *BreakerStore) Close() error {
	return b.inner.Close()
}
