package websocket

import (
	"go.uber.org/zap"

	"mirror-backend/application/state"
)

// Event types pushed to clients
const (
	EventStateChanged = "STATE_CHANGED"
	EventCrisisMode   = "CRISIS_MODE"
)

// StateSummary is the lightweight payload pushed on every state change.
// Clients re-fetch the collections they care about over REST; the push only
// tells them something moved.
type StateSummary struct {
	Reflections   int    `json:"reflections"`
	Threads       int    `json:"threads"`
	Axes          int    `json:"axes"`
	CurrentLayer  string `json:"currentLayer"`
	CurrentThread string `json:"currentThread,omitempty"`
	CurrentAxis   string `json:"currentAxis,omitempty"`
	CrisisMode    bool   `json:"crisisMode"`
	Status        string `json:"status"`
}

// Bridge forwards state manager notifications onto the WebSocket hub
type Bridge struct {
	hub         *Hub
	logger      *zap.Logger
	unsubscribe func()

	lastCrisis bool
}

// NewBridge wires the hub to the manager's subscription feed. Call Close to
// detach.
func NewBridge(manager *state.Manager, hub *Hub, logger *zap.Logger) *Bridge {
	b := &Bridge{
		hub:    hub,
		logger: logger,
	}
	b.unsubscribe = manager.Subscribe(b.onSnapshot)
	return b
}

func (b *Bridge) onSnapshot(snap state.Snapshot) {
	summary := StateSummary{
		Reflections:  len(snap.Reflections),
		Threads:      len(snap.Threads),
		Axes:         len(snap.Axes),
		CurrentLayer: snap.CurrentLayer.String(),
		CrisisMode:   snap.CrisisMode,
		Status:       snap.Health.Status.String(),
	}
	if !snap.CurrentThread.IsZero() {
		summary.CurrentThread = snap.CurrentThread.String()
	}
	if !snap.CurrentAxis.IsZero() {
		summary.CurrentAxis = snap.CurrentAxis.String()
	}

	if err := b.hub.Broadcast(EventStateChanged, summary); err != nil {
		b.logger.Warn("Failed to broadcast state change", zap.Error(err))
	}

	// Crisis transitions get their own event so clients can surface support
	// resources immediately even if they debounce state refreshes
	if snap.CrisisMode != b.lastCrisis {
		b.lastCrisis = snap.CrisisMode
		if err := b.hub.Broadcast(EventCrisisMode, map[string]bool{"active": snap.CrisisMode}); err != nil {
			b.logger.Warn("Failed to broadcast crisis mode", zap.Error(err))
		}
	}
}

// Close detaches the bridge from the manager
func (b *Bridge) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}
