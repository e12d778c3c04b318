package entities

import (
	"time"

	"mirror-backend/domain/core/valueobjects"
	"mirror-backend/domain/events"
	pkgerrors "mirror-backend/pkg/errors"
)

// Theme is the UI theme preference stored in settings
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Settings is the singleton preferences record. Exactly one instance exists
// per profile; it is created once with defaults and only ever updated.
type Settings struct {
	theme           Theme
	reducedMotion   bool
	highContrast    bool
	defaultLayer    valueobjects.Layer
	defaultModality valueobjects.Modality
	updatedAt       time.Time

	events []events.DomainEvent
}

// DefaultSettings creates the settings record with defaults
func DefaultSettings() *Settings {
	return &Settings{
		theme:           ThemeSystem,
		defaultLayer:    valueobjects.DefaultLayer,
		defaultModality: valueobjects.DefaultModality,
		updatedAt:       time.Now(),
		events:          []events.DomainEvent{},
	}
}

// ReconstructSettings reconstructs settings from repository data
func ReconstructSettings(
	theme Theme,
	reducedMotion, highContrast bool,
	defaultLayer valueobjects.Layer,
	defaultModality valueobjects.Modality,
	updatedAt time.Time,
) *Settings {
	if theme == "" {
		theme = ThemeSystem
	}
	if !defaultLayer.IsValid() {
		defaultLayer = valueobjects.DefaultLayer
	}
	if !defaultModality.IsValid() {
		defaultModality = valueobjects.DefaultModality
	}

	return &Settings{
		theme:           theme,
		reducedMotion:   reducedMotion,
		highContrast:    highContrast,
		defaultLayer:    defaultLayer,
		defaultModality: defaultModality,
		updatedAt:       updatedAt,
		events:          []events.DomainEvent{},
	}
}

// Theme returns the theme preference
func (s *Settings) Theme() Theme {
	return s.theme
}

// ReducedMotion returns the reduced-motion accessibility flag
func (s *Settings) ReducedMotion() bool {
	return s.reducedMotion
}

// HighContrast returns the high-contrast accessibility flag
func (s *Settings) HighContrast() bool {
	return s.highContrast
}

// DefaultLayer returns the preferred layer for new reflections
func (s *Settings) DefaultLayer() valueobjects.Layer {
	return s.defaultLayer
}

// DefaultModality returns the preferred modality for new reflections
func (s *Settings) DefaultModality() valueobjects.Modality {
	return s.defaultModality
}

// UpdatedAt returns when the settings were last updated
func (s *Settings) UpdatedAt() time.Time {
	return s.updatedAt
}

// SetTheme updates the theme preference
func (s *Settings) SetTheme(theme Theme) error {
	switch theme {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		return pkgerrors.NewValidationError("theme must be one of: system, light, dark")
	}

	if theme == s.theme {
		return nil
	}

	s.theme = theme
	s.touch()

	return nil
}

// SetAccessibility updates the accessibility flags
func (s *Settings) SetAccessibility(reducedMotion, highContrast bool) {
	if s.reducedMotion == reducedMotion && s.highContrast == highContrast {
		return
	}
	s.reducedMotion = reducedMotion
	s.highContrast = highContrast
	s.touch()
}

// SetDefaultLayer updates the preferred layer for new reflections
func (s *Settings) SetDefaultLayer(layer valueobjects.Layer) error {
	if !layer.IsValid() {
		return pkgerrors.NewValidationError("invalid layer")
	}

	if layer == s.defaultLayer {
		return nil
	}

	s.defaultLayer = layer
	s.touch()

	return nil
}

// SetDefaultModality updates the preferred modality for new reflections
func (s *Settings) SetDefaultModality(modality valueobjects.Modality) error {
	if !modality.IsValid() {
		return pkgerrors.NewValidationError("invalid modality")
	}

	if modality == s.defaultModality {
		return nil
	}

	s.defaultModality = modality
	s.touch()

	return nil
}

// Clone returns an independent copy with no uncommitted events, for
// handing out in immutable snapshots
func (s *Settings) Clone() *Settings {
	clone := *s
	clone.events = []events.DomainEvent{}
	return &clone
}

// GetUncommittedEvents returns all uncommitted domain events
func (s *Settings) GetUncommittedEvents() []events.DomainEvent {
	return s.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (s *Settings) MarkEventsAsCommitted() {
	s.events = []events.DomainEvent{}
}

// touch stamps a new update time and records an update event
func (s *Settings) touch() {
	s.updatedAt = time.Now()
	s.events = append(s.events, events.NewSettingsUpdated(s.updatedAt))
}
