package entities

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"mirror-backend/domain/config"
	"mirror-backend/domain/core/valueobjects"
	"mirror-backend/domain/events"
	pkgerrors "mirror-backend/pkg/errors"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IdentityAxis is a user-defined categorical label attachable to reflections.
// It has an independent lifecycle and is referenced weakly.
type IdentityAxis struct {
	id        valueobjects.AxisID
	name      string
	color     string
	createdAt time.Time
	updatedAt time.Time

	events []events.DomainEvent
}

// NewIdentityAxis creates a new identity axis with validation
func NewIdentityAxis(name, color string) (*IdentityAxis, error) {
	return NewIdentityAxisWithConfig(name, color, config.DefaultDomainConfig())
}

// NewIdentityAxisWithConfig creates a new identity axis with configuration
func NewIdentityAxisWithConfig(name, color string, cfg *config.DomainConfig) (*IdentityAxis, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("name cannot be empty")
	}
	if utf8.RuneCountInString(name) > cfg.MaxAxisNameLength {
		return nil, fmt.Errorf("name exceeds maximum length of %d characters", cfg.MaxAxisNameLength)
	}
	if color != "" && !hexColorPattern.MatchString(color) {
		return nil, pkgerrors.NewValidationError("color must be a hex color")
	}

	now := time.Now()
	axis := &IdentityAxis{
		id:        valueobjects.NewAxisID(),
		name:      name,
		color:     color,
		createdAt: now,
		updatedAt: now,
		events:    []events.DomainEvent{},
	}

	axis.addEvent(events.NewAxisCreated(axis.id, name, now))

	return axis, nil
}

// ReconstructIdentityAxis reconstructs an axis from repository data
func ReconstructIdentityAxis(
	id valueobjects.AxisID,
	name, color string,
	createdAt, updatedAt time.Time,
) (*IdentityAxis, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("axis id cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.NewValidationError("name cannot be empty")
	}

	return &IdentityAxis{
		id:        id,
		name:      name,
		color:     color,
		createdAt: createdAt,
		updatedAt: updatedAt,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the axis's unique identifier
func (a *IdentityAxis) ID() valueobjects.AxisID {
	return a.id
}

// Name returns the axis name
func (a *IdentityAxis) Name() string {
	return a.name
}

// Color returns the axis color
func (a *IdentityAxis) Color() string {
	return a.color
}

// CreatedAt returns when the axis was created
func (a *IdentityAxis) CreatedAt() time.Time {
	return a.createdAt
}

// UpdatedAt returns when the axis was last updated
func (a *IdentityAxis) UpdatedAt() time.Time {
	return a.updatedAt
}

// Rename changes the axis name with validation
func (a *IdentityAxis) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return pkgerrors.NewValidationError("name cannot be empty")
	}

	if name == a.name {
		return nil
	}

	a.name = name
	a.touch()

	return nil
}

// SetColor changes the axis color with validation
func (a *IdentityAxis) SetColor(color string) error {
	if color != "" && !hexColorPattern.MatchString(color) {
		return pkgerrors.NewValidationError("color must be a hex color")
	}

	if color == a.color {
		return nil
	}

	a.color = color
	a.touch()

	return nil
}

// Clone returns an independent copy with no uncommitted events, for
// handing out in immutable snapshots
func (a *IdentityAxis) Clone() *IdentityAxis {
	clone := *a
	clone.events = []events.DomainEvent{}
	return &clone
}

// GetUncommittedEvents returns all uncommitted domain events
func (a *IdentityAxis) GetUncommittedEvents() []events.DomainEvent {
	return a.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (a *IdentityAxis) MarkEventsAsCommitted() {
	a.events = []events.DomainEvent{}
}

// touch stamps a new update time and records an update event
func (a *IdentityAxis) touch() {
	a.updatedAt = time.Now()
	a.addEvent(events.NewAxisUpdated(a.id, a.updatedAt))
}

// addEvent adds a domain event to the uncommitted list
func (a *IdentityAxis) addEvent(event events.DomainEvent) {
	a.events = append(a.events, event)
}
