package entities

import (
	"fmt"
	"time"

	"mirror-backend/domain/config"
	"mirror-backend/domain/core/valueobjects"
	"mirror-backend/domain/events"
	pkgerrors "mirror-backend/pkg/errors"
)

// Reflection is the main entity representing a single journal entry
// This is a rich domain model with encapsulated business logic
type Reflection struct {
	// Private fields ensure encapsulation
	id        valueobjects.ReflectionID
	content   valueobjects.ReflectionContent
	layer     valueobjects.Layer
	modality  valueobjects.Modality
	threadID  valueobjects.ThreadID // weak reference, zero when unthreaded
	axisID    valueobjects.AxisID   // weak reference, zero when unassigned
	tags      []string
	isPublic  bool
	createdAt time.Time
	updatedAt time.Time

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewReflection creates a new reflection with full business rule validation.
// The public flag defaults from the layer: only shared-layer entries start public.
func NewReflection(content valueobjects.ReflectionContent, layer valueobjects.Layer, modality valueobjects.Modality) (*Reflection, error) {
	if content.IsEmpty() {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}
	if !layer.IsValid() {
		return nil, pkgerrors.NewValidationError("invalid layer")
	}
	if !modality.IsValid() {
		return nil, pkgerrors.NewValidationError("invalid modality")
	}

	now := time.Now()
	reflection := &Reflection{
		id:        valueobjects.NewReflectionID(),
		content:   content,
		layer:     layer,
		modality:  modality,
		tags:      []string{},
		isPublic:  layer.DefaultPublic(),
		createdAt: now,
		updatedAt: now,
		events:    []events.DomainEvent{},
	}

	reflection.addEvent(events.NewReflectionCreated(reflection.id, layer, modality, now))

	return reflection, nil
}

// ReconstructReflection reconstructs a reflection from repository data with
// preserved timestamps. No creation event is raised.
func ReconstructReflection(
	id valueobjects.ReflectionID,
	content valueobjects.ReflectionContent,
	layer valueobjects.Layer,
	modality valueobjects.Modality,
	threadID valueobjects.ThreadID,
	axisID valueobjects.AxisID,
	tags []string,
	isPublic bool,
	createdAt, updatedAt time.Time,
) (*Reflection, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("reflection id cannot be empty")
	}
	if content.IsEmpty() {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}

	if tags == nil {
		tags = []string{}
	}

	return &Reflection{
		id:        id,
		content:   content,
		layer:     layer,
		modality:  modality,
		threadID:  threadID,
		axisID:    axisID,
		tags:      tags,
		isPublic:  isPublic,
		createdAt: createdAt,
		updatedAt: updatedAt,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the reflection's unique identifier
func (r *Reflection) ID() valueobjects.ReflectionID {
	return r.id
}

// Content returns the reflection's content
func (r *Reflection) Content() valueobjects.ReflectionContent {
	return r.content
}

// Layer returns the reflection's layer
func (r *Reflection) Layer() valueobjects.Layer {
	return r.layer
}

// Modality returns the reflection's modality
func (r *Reflection) Modality() valueobjects.Modality {
	return r.modality
}

// ThreadID returns the weak thread reference; zero when unthreaded
func (r *Reflection) ThreadID() valueobjects.ThreadID {
	return r.threadID
}

// AxisID returns the weak identity-axis reference; zero when unassigned
func (r *Reflection) AxisID() valueobjects.AxisID {
	return r.axisID
}

// IsPublic returns the public/private flag
func (r *Reflection) IsPublic() bool {
	return r.isPublic
}

// CreatedAt returns when the reflection was created
func (r *Reflection) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns when the reflection was last updated
func (r *Reflection) UpdatedAt() time.Time {
	return r.updatedAt
}

// UpdateContent updates the reflection's content with validation
func (r *Reflection) UpdateContent(content valueobjects.ReflectionContent) error {
	if content.IsEmpty() {
		return pkgerrors.NewValidationError("content cannot be empty")
	}

	if content.Equals(r.content) {
		return nil // No change needed
	}

	r.content = content
	r.touch()

	return nil
}

// SetLayer moves the reflection to a different layer. The public flag is not
// re-derived; it only defaults from the layer at creation time.
func (r *Reflection) SetLayer(layer valueobjects.Layer) error {
	if !layer.IsValid() {
		return pkgerrors.NewValidationError("invalid layer")
	}

	if layer == r.layer {
		return nil
	}

	r.layer = layer
	r.touch()

	return nil
}

// SetModality changes the capture modality
func (r *Reflection) SetModality(modality valueobjects.Modality) error {
	if !modality.IsValid() {
		return pkgerrors.NewValidationError("invalid modality")
	}

	if modality == r.modality {
		return nil
	}

	r.modality = modality
	r.touch()

	return nil
}

// SetPublic sets the public/private flag explicitly
func (r *Reflection) SetPublic(public bool) {
	if r.isPublic == public {
		return
	}
	r.isPublic = public
	r.touch()
}

// AssignToThread sets the weak thread reference
func (r *Reflection) AssignToThread(threadID valueobjects.ThreadID) {
	if r.threadID.Equals(threadID) {
		return
	}
	r.threadID = threadID
	r.touch()
}

// DetachFromThread clears the weak thread reference
func (r *Reflection) DetachFromThread() {
	if r.threadID.IsZero() {
		return
	}
	r.threadID = valueobjects.ThreadID{}
	r.touch()
}

// AssignAxis sets the weak identity-axis reference
func (r *Reflection) AssignAxis(axisID valueobjects.AxisID) {
	if r.axisID.Equals(axisID) {
		return
	}
	r.axisID = axisID
	r.touch()
}

// AddTag adds a tag to the reflection
func (r *Reflection) AddTag(tag string) error {
	return r.AddTagWithConfig(tag, config.DefaultDomainConfig())
}

// AddTagWithConfig adds a tag to the reflection with configuration
func (r *Reflection) AddTagWithConfig(tag string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if tag == "" {
		return pkgerrors.NewValidationError("tag cannot be empty")
	}
	if len(tag) > cfg.MaxTagLength {
		return fmt.Errorf("tag exceeds maximum length of %d characters", cfg.MaxTagLength)
	}

	// Check for duplicate
	for _, t := range r.tags {
		if t == tag {
			return nil // Tag already exists
		}
	}

	if len(r.tags) >= cfg.MaxTagsPerReflection {
		return fmt.Errorf("maximum tags reached: %d", cfg.MaxTagsPerReflection)
	}

	r.tags = append(r.tags, tag)
	r.touch()

	return nil
}

// RemoveTag removes a tag from the reflection
func (r *Reflection) RemoveTag(tag string) error {
	newTags := []string{}
	found := false

	for _, t := range r.tags {
		if t != tag {
			newTags = append(newTags, t)
		} else {
			found = true
		}
	}

	if !found {
		return pkgerrors.NewNotFoundError("tag")
	}

	r.tags = newTags
	r.touch()

	return nil
}

// GetTags returns all tags
func (r *Reflection) GetTags() []string {
	// Return a copy to maintain encapsulation
	tags := make([]string, len(r.tags))
	copy(tags, r.tags)
	return tags
}

// Clone returns an independent copy with no uncommitted events, for
// handing out in immutable snapshots
func (r *Reflection) Clone() *Reflection {
	clone := *r
	clone.tags = make([]string, len(r.tags))
	copy(clone.tags, r.tags)
	clone.events = []events.DomainEvent{}
	return &clone
}

// GetUncommittedEvents returns all uncommitted domain events
func (r *Reflection) GetUncommittedEvents() []events.DomainEvent {
	return r.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (r *Reflection) MarkEventsAsCommitted() {
	r.events = []events.DomainEvent{}
}

// touch stamps a new update time and records an update event
func (r *Reflection) touch() {
	r.updatedAt = time.Now()
	r.addEvent(events.NewReflectionUpdated(r.id, r.updatedAt))
}

// addEvent adds a domain event to the uncommitted list
func (r *Reflection) addEvent(event events.DomainEvent) {
	r.events = append(r.events, event)
}
