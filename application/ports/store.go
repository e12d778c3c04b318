package ports

import (
	"context"
	"time"

	"mirror-backend/domain/core/entities"
	"mirror-backend/domain/core/valueobjects"
)

// Store defines the interface for the local durable store.
// This is a port in hexagonal architecture - the state manager is the only
// component that calls its mutation methods.
type Store interface {
	// Reflections returns the reflection collection ordered by creation
	// time. Never nil; empty slice when no reflections exist.
	Reflections(ctx context.Context) ([]*entities.Reflection, error)

	// GetReflection retrieves a reflection by its ID
	GetReflection(ctx context.Context, id valueobjects.ReflectionID) (*entities.Reflection, error)

	// AddReflection persists a new reflection
	AddReflection(ctx context.Context, reflection *entities.Reflection) error

	// UpdateReflection persists changes to an existing reflection.
	// Updating a missing id fails loudly with a NotFound error.
	UpdateReflection(ctx context.Context, reflection *entities.Reflection) error

	// DeleteReflection removes a reflection. Deleting a missing id is a no-op.
	DeleteReflection(ctx context.Context, id valueobjects.ReflectionID) error

	// Threads returns the thread collection ordered by creation time
	Threads(ctx context.Context) ([]*entities.Thread, error)

	// GetThread retrieves a thread by its ID
	GetThread(ctx context.Context, id valueobjects.ThreadID) (*entities.Thread, error)

	// AddThread persists a new thread
	AddThread(ctx context.Context, thread *entities.Thread) error

	// UpdateThread persists changes to an existing thread
	UpdateThread(ctx context.Context, thread *entities.Thread) error

	// DeleteThread removes a thread. Deleting a missing id is a no-op.
	DeleteThread(ctx context.Context, id valueobjects.ThreadID) error

	// Axes returns the identity axis collection ordered by creation time
	Axes(ctx context.Context) ([]*entities.IdentityAxis, error)

	// GetAxis retrieves an identity axis by its ID
	GetAxis(ctx context.Context, id valueobjects.AxisID) (*entities.IdentityAxis, error)

	// AddAxis persists a new identity axis
	AddAxis(ctx context.Context, axis *entities.IdentityAxis) error

	// UpdateAxis persists changes to an existing identity axis
	UpdateAxis(ctx context.Context, axis *entities.IdentityAxis) error

	// DeleteAxis removes an identity axis. Deleting a missing id is a no-op.
	DeleteAxis(ctx context.Context, id valueobjects.AxisID) error

	// Settings returns the singleton settings record, creating it with
	// defaults on first access
	Settings(ctx context.Context) (*entities.Settings, error)

	// UpdateSettings persists the settings singleton
	UpdateSettings(ctx context.Context, settings *entities.Settings) error

	// ExportAll serializes every collection into one transferable document
	ExportAll(ctx context.Context) (*ExportDocument, error)

	// ImportAll replaces all collections atomically from a previously
	// exported document. The shape is validated before anything is mutated.
	ImportAll(ctx context.Context, doc *ExportDocument) error

	// ClearAll irreversibly empties every collection. Confirmation is the
	// caller's responsibility.
	ClearAll(ctx context.Context) error

	// BeginUnitOfWork starts a staged-write transaction across collections
	BeginUnitOfWork(ctx context.Context) (UnitOfWork, error)

	// Close releases the underlying database
	Close() error
}

// UnitOfWork stages writes across multiple entities and commits them as one
// atomic transaction, so a partial failure is never visible to subscribers
type UnitOfWork interface {
	// StageReflection stages a reflection write
	StageReflection(reflection *entities.Reflection) error

	// StageThread stages a thread write
	StageThread(thread *entities.Thread) error

	// Commit applies all staged writes atomically
	Commit(ctx context.Context) error

	// Rollback discards all staged writes
	Rollback() error
}

// SlotStore is the fixed-key best-effort store used for the recovery
// snapshot and timestamped backup blobs
type SlotStore interface {
	// PutSlot overwrites the value at a fixed slot key
	PutSlot(ctx context.Context, slot string, value []byte) error

	// GetSlot reads the value at a slot key; ok is false when absent
	GetSlot(ctx context.Context, slot string) (value []byte, ok bool, err error)

	// DeleteSlot removes a slot. Deleting a missing slot is a no-op.
	DeleteSlot(ctx context.Context, slot string) error

	// ListSlots returns all slot keys with the given prefix
	ListSlots(ctx context.Context, prefix string) ([]string, error)
}

// ExportDocument is the single transferable JSON document produced by
// ExportAll and consumed by ImportAll. Version is checked on import.
type ExportDocument struct {
	Version     int                `json:"version" validate:"required,eq=1"`
	ExportedAt  time.Time          `json:"exported_at"`
	Reflections []ReflectionRecord `json:"reflections" validate:"dive"`
	Threads     []ThreadRecord     `json:"threads" validate:"dive"`
	Axes        []AxisRecord       `json:"identity_axes" validate:"dive"`
	Settings    *SettingsRecord    `json:"settings,omitempty"`
}

// ExportDocumentVersion is the current export schema version
const ExportDocumentVersion = 1

// ReflectionRecord is the persistence/transfer shape of a reflection
type ReflectionRecord struct {
	ID        string    `json:"id" validate:"required,uuid"`
	Content   string    `json:"content" validate:"required"`
	Layer     string    `json:"layer" validate:"required,oneof=private shared experimental"`
	Modality  string    `json:"modality" validate:"required,oneof=text voice video document"`
	ThreadID  string    `json:"thread_id,omitempty" validate:"omitempty,uuid"`
	AxisID    string    `json:"axis_id,omitempty" validate:"omitempty,uuid"`
	Tags      []string  `json:"tags,omitempty"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThreadRecord is the persistence/transfer shape of a thread
type ThreadRecord struct {
	ID            string    `json:"id" validate:"required,uuid"`
	Title         string    `json:"title" validate:"required"`
	ReflectionIDs []string  `json:"reflection_ids" validate:"dive,uuid"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AxisRecord is the persistence/transfer shape of an identity axis
type AxisRecord struct {
	ID        string    `json:"id" validate:"required,uuid"`
	Name      string    `json:"name" validate:"required"`
	Color     string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsRecord is the persistence/transfer shape of the settings singleton
type SettingsRecord struct {
	Theme           string    `json:"theme" validate:"omitempty,oneof=system light dark"`
	ReducedMotion   bool      `json:"reduced_motion"`
	HighContrast    bool      `json:"high_contrast"`
	DefaultLayer    string    `json:"default_layer" validate:"omitempty,oneof=private shared experimental"`
	DefaultModality string    `json:"default_modality" validate:"omitempty,oneof=text voice video document"`
	UpdatedAt       time.Time `json:"updated_at"`
}
