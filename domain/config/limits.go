package config

import "sync/atomic"

// Limits publishes the active domain configuration to concurrent readers.
// Reads are lock-free pointer loads; a reload swaps in a freshly built
// config rather than mutating the one in flight, so a config obtained from
// Current stays stable for the whole operation that loaded it.
type Limits struct {
	ptr atomic.Pointer[DomainConfig]
}

// NewLimits creates a holder seeded with the given config, or the defaults
// when nil
func NewLimits(cfg *DomainConfig) *Limits {
	if cfg == nil {
		cfg = DefaultDomainConfig()
	}
	l := &Limits{}
	l.ptr.Store(cfg)
	return l
}

// Current returns the active config. Callers must treat it as read-only.
func (l *Limits) Current() *DomainConfig {
	return l.ptr.Load()
}

// Replace swaps in a new config for subsequent readers. Operations that
// already loaded the previous config finish under the old limits.
func (l *Limits) Replace(cfg *DomainConfig) {
	if cfg == nil {
		return
	}
	l.ptr.Store(cfg)
}
