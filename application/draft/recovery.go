package draft

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"mirror-backend/application/ports"
	"mirror-backend/pkg/debounce"
	pkgerrors "mirror-backend/pkg/errors"
	"mirror-backend/pkg/observability"
)

// DefaultRecoveryWindow is the quiet period before an in-progress draft is
// written to its recovery slot
const DefaultRecoveryWindow = 100 * time.Millisecond

// Snapshot is the single crash-recovery checkpoint for one draft owner.
// It is not a history; each save overwrites the previous snapshot.
type Snapshot struct {
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Recovery persists best-effort crash-recovery snapshots of unsaved text,
// independent of the undo stack and of the durable collections. Write
// failures are logged and swallowed: recovery must never block the edit
// path. Encryption, when configured, comes from wrapping the slot store.
type Recovery struct {
	slots   ports.SlotStore
	slotKey string
	logger  *zap.Logger
	metrics *observability.Collector

	debouncer *debounce.Debouncer
}

// NewRecovery creates a recovery store writing to one fixed slot
func NewRecovery(slots ports.SlotStore, slotKey string, window time.Duration, logger *zap.Logger, metrics *observability.Collector) *Recovery {
	if window <= 0 {
		window = DefaultRecoveryWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recovery{
		slots:     slots,
		slotKey:   slotKey,
		logger:    logger,
		metrics:   metrics,
		debouncer: debounce.New(window),
	}
}

// SaveSnapshot schedules a debounced overwrite of the recovery slot. Rapid
// keystrokes coalesce; only the latest content is ever written. Failures
// are logged, never returned.
func (r *Recovery) SaveSnapshot(content string, metadata map[string]string) {
	snap := Snapshot{
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	r.debouncer.Do(func() {
		r.write(snap)
	})
}

// write performs the slot write. Runs on the debounce timer goroutine.
func (r *Recovery) write(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Recovery snapshot encode failed", zap.Error(err))
		return
	}

	err = r.slots.PutSlot(context.Background(), r.slotKey, data)
	if err != nil {
		if r.metrics != nil {
			r.metrics.SnapshotFailed.Inc()
		}
		if pkgerrors.IsQuotaExceeded(err) {
			r.logger.Warn("Recovery snapshot skipped, quota exceeded",
				zap.String("slot", r.slotKey))
			return
		}
		r.logger.Error("Recovery snapshot write failed",
			zap.String("slot", r.slotKey),
			zap.Error(err))
		return
	}

	if r.metrics != nil {
		r.metrics.SnapshotWrites.Inc()
	}
}

// GetSnapshot returns the stored snapshot, or nil when none exists or the
// stored bytes cannot be decoded (a foreign-key encrypted slot reads as
// absent upstream)
func (r *Recovery) GetSnapshot(ctx context.Context) *Snapshot {
	data, ok, err := r.slots.GetSlot(ctx, r.slotKey)
	if err != nil {
		r.logger.Error("Recovery snapshot read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Warn("Recovery snapshot corrupt, ignoring", zap.Error(err))
		return nil
	}
	return &snap
}

// HasRecovery is a cheap existence check the interface layer uses to decide
// whether to offer (never auto-apply) recovered content
func (r *Recovery) HasRecovery(ctx context.Context) bool {
	return r.GetSnapshot(ctx) != nil
}

// RecoveryAge returns how old the stored snapshot is; ok is false when no
// snapshot exists
func (r *Recovery) RecoveryAge(ctx context.Context) (time.Duration, bool) {
	snap := r.GetSnapshot(ctx)
	if snap == nil {
		return 0, false
	}
	return time.Since(snap.Timestamp), true
}

// ClearSnapshot removes the slot, called after a successful durable save so
// stale recovery is not offered on the next load
func (r *Recovery) ClearSnapshot(ctx context.Context) {
	r.debouncer.Cancel()
	if err := r.slots.DeleteSlot(ctx, r.slotKey); err != nil {
		r.logger.Error("Recovery snapshot clear failed", zap.Error(err))
	}
}

// Flush writes any pending snapshot immediately, for shutdown and tests
func (r *Recovery) Flush() {
	r.debouncer.Flush()
}
