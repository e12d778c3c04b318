package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Reflection constraints
	MaxContentLength     int
	MaxTagsPerReflection int
	MaxTagLength         int

	// Thread constraints
	MaxReflectionsPerThread int
	MaxTitleLength          int

	// Identity axis constraints
	MaxAxisNameLength int

	// Draft constraints
	UndoHistoryDepth       int
	UndoDebounceWindow     time.Duration
	SnapshotDebounceWindow time.Duration
	AutosaveWindow         time.Duration

	// Validation settings
	AllowDuplicateThreadEntries bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxContentLength:     100000,
		MaxTagsPerReflection: 20,
		MaxTagLength:         50,

		MaxReflectionsPerThread: 5000,
		MaxTitleLength:          200,

		MaxAxisNameLength: 80,

		UndoHistoryDepth:       100,
		UndoDebounceWindow:     500 * time.Millisecond,
		SnapshotDebounceWindow: 100 * time.Millisecond,
		AutosaveWindow:         2 * time.Second,

		// A thread's id list is a weak reference set; the same reflection
		// never appears twice
		AllowDuplicateThreadEntries: false,
	}
}
