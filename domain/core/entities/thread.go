package entities

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mirror-backend/domain/config"
	"mirror-backend/domain/core/valueobjects"
	"mirror-backend/domain/events"
	pkgerrors "mirror-backend/pkg/errors"
)

// Thread is a named, ordered grouping of reflections. The reflection-id list
// is a weak reference set: it does not own the reflections, insertion order is
// meaningful, and referential integrity with deleted reflections is not
// enforced here. A periodic integrity sweep is the documented mitigation for
// dangling ids.
type Thread struct {
	id            valueobjects.ThreadID
	title         string
	reflectionIDs []valueobjects.ReflectionID
	createdAt     time.Time
	updatedAt     time.Time

	events []events.DomainEvent
}

// NewThread creates a new thread with validation
func NewThread(title string) (*Thread, error) {
	return NewThreadWithConfig(title, config.DefaultDomainConfig())
}

// NewThreadWithConfig creates a new thread with validation and configuration
func NewThreadWithConfig(title string, cfg *config.DomainConfig) (*Thread, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > cfg.MaxTitleLength {
		return nil, fmt.Errorf("title exceeds maximum length of %d characters", cfg.MaxTitleLength)
	}

	now := time.Now()
	thread := &Thread{
		id:            valueobjects.NewThreadID(),
		title:         title,
		reflectionIDs: []valueobjects.ReflectionID{},
		createdAt:     now,
		updatedAt:     now,
		events:        []events.DomainEvent{},
	}

	thread.addEvent(events.NewThreadCreated(thread.id, title, now))

	return thread, nil
}

// ReconstructThread reconstructs a thread from repository data with preserved
// timestamps. No creation event is raised.
func ReconstructThread(
	id valueobjects.ThreadID,
	title string,
	reflectionIDs []valueobjects.ReflectionID,
	createdAt, updatedAt time.Time,
) (*Thread, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("thread id cannot be empty")
	}
	if strings.TrimSpace(title) == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}

	if reflectionIDs == nil {
		reflectionIDs = []valueobjects.ReflectionID{}
	}

	return &Thread{
		id:            id,
		title:         title,
		reflectionIDs: reflectionIDs,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		events:        []events.DomainEvent{},
	}, nil
}

// ID returns the thread's unique identifier
func (t *Thread) ID() valueobjects.ThreadID {
	return t.id
}

// Title returns the thread's title
func (t *Thread) Title() string {
	return t.title
}

// CreatedAt returns when the thread was created
func (t *Thread) CreatedAt() time.Time {
	return t.createdAt
}

// UpdatedAt returns when the thread was last updated
func (t *Thread) UpdatedAt() time.Time {
	return t.updatedAt
}

// Rename changes the thread title with validation
func (t *Thread) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return pkgerrors.NewValidationError("title cannot be empty")
	}

	if title == t.title {
		return nil
	}

	t.title = title
	t.touch()

	return nil
}

// AddReflection appends a reflection id to the ordered list
func (t *Thread) AddReflection(reflectionID valueobjects.ReflectionID) error {
	return t.AddReflectionWithConfig(reflectionID, config.DefaultDomainConfig())
}

// AddReflectionWithConfig appends a reflection id with configuration.
// The same reflection never appears twice unless duplicates are allowed.
func (t *Thread) AddReflectionWithConfig(reflectionID valueobjects.ReflectionID, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if reflectionID.IsZero() {
		return pkgerrors.NewValidationError("reflection id cannot be empty")
	}

	if !cfg.AllowDuplicateThreadEntries {
		for _, id := range t.reflectionIDs {
			if id.Equals(reflectionID) {
				return pkgerrors.NewConflictError("reflection already in thread")
			}
		}
	}

	if len(t.reflectionIDs) >= cfg.MaxReflectionsPerThread {
		return fmt.Errorf("maximum reflections per thread reached: %d", cfg.MaxReflectionsPerThread)
	}

	t.reflectionIDs = append(t.reflectionIDs, reflectionID)
	t.touch()
	t.addEvent(events.NewReflectionAddedToThread(t.id, reflectionID, t.updatedAt))

	return nil
}

// RemoveReflection removes a reflection id from the list
func (t *Thread) RemoveReflection(reflectionID valueobjects.ReflectionID) error {
	newIDs := []valueobjects.ReflectionID{}
	found := false

	for _, id := range t.reflectionIDs {
		if !id.Equals(reflectionID) {
			newIDs = append(newIDs, id)
		} else {
			found = true
		}
	}

	if !found {
		return pkgerrors.NewNotFoundError("reflection in thread")
	}

	t.reflectionIDs = newIDs
	t.touch()

	return nil
}

// Contains reports whether the reflection id is in the list
func (t *Thread) Contains(reflectionID valueobjects.ReflectionID) bool {
	for _, id := range t.reflectionIDs {
		if id.Equals(reflectionID) {
			return true
		}
	}
	return false
}

// ReflectionIDs returns the ordered reflection-id list
func (t *Thread) ReflectionIDs() []valueobjects.ReflectionID {
	// Return a copy to maintain encapsulation
	ids := make([]valueobjects.ReflectionID, len(t.reflectionIDs))
	copy(ids, t.reflectionIDs)
	return ids
}

// Clone returns an independent copy with no uncommitted events, for
// handing out in immutable snapshots
func (t *Thread) Clone() *Thread {
	clone := *t
	clone.reflectionIDs = make([]valueobjects.ReflectionID, len(t.reflectionIDs))
	copy(clone.reflectionIDs, t.reflectionIDs)
	clone.events = []events.DomainEvent{}
	return &clone
}

// GetUncommittedEvents returns all uncommitted domain events
func (t *Thread) GetUncommittedEvents() []events.DomainEvent {
	return t.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (t *Thread) MarkEventsAsCommitted() {
	t.events = []events.DomainEvent{}
}

// touch stamps a new update time and records an update event
func (t *Thread) touch() {
	t.updatedAt = time.Now()
	t.addEvent(events.NewThreadUpdated(t.id, t.updatedAt))
}

// addEvent adds a domain event to the uncommitted list
func (t *Thread) addEvent(event events.DomainEvent) {
	t.events = append(t.events, event)
}
