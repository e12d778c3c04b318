package state

import (
	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
)

// Status is the lifecycle state of the manager
type Status int

const (
	// StatusLoading means Initialize has not completed; mutations are rejected
	StatusLoading Status = iota

	// StatusReady means the cache is loaded and consistent with the store
	StatusReady

	// StatusDegraded means the store could not be loaded; the manager serves
	// an empty cache and reports why
	StatusDegraded
)

// MarshalJSON writes the status name rather than its ordinal
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Health is the tagged result of Initialize. A degraded manager keeps
// running with an empty cache rather than silently presenting loss as an
// empty account; Reason says what went wrong.
type Health struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Ready reports whether the manager is fully operational
func (h Health) Ready() bool {
	return h.Status == StatusReady
}

// Snapshot is the immutable deep copy of manager state handed to
// subscribers and query callers. Entities are clones; mutating them has no
// effect on the manager.
type Snapshot struct {
	Reflections []*entities.Reflection
	Threads     []*entities.Thread
	Axes        []*entities.IdentityAxis
	Settings    *entities.Settings

	CurrentLayer  valueobjects.Layer
	CurrentThread valueobjects.ThreadID
	CurrentAxis   valueobjects.AxisID
	CrisisMode    bool

	Health Health

	// seq orders snapshots by the mutation that produced them
	seq uint64
}

// Subscriber receives a snapshot after every successful mutation
type Subscriber func(Snapshot)
