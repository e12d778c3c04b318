package valueobjects

import (
	pkgerrors "mirror-backend/pkg/errors"
)

// Layer is the closed-set visibility/context tag carried by every
// reflection. The layer controls the default public/private flag: only the
// shared layer defaults to public.
type Layer string

const (
	LayerPrivate      Layer = "private"
	LayerShared       Layer = "shared"
	LayerExperimental Layer = "experimental"
)

// DefaultLayer is the layer applied when the caller does not specify one.
const DefaultLayer = LayerPrivate

// NewLayer validates a layer tag against the closed set
func NewLayer(s string) (Layer, error) {
	layer := Layer(s)
	if !layer.IsValid() {
		return "", pkgerrors.NewValidationError("layer must be one of: private, shared, experimental")
	}
	return layer, nil
}

// IsValid reports whether the layer belongs to the closed set
func (l Layer) IsValid() bool {
	switch l {
	case LayerPrivate, LayerShared, LayerExperimental:
		return true
	}
	return false
}

// DefaultPublic returns the public/private default for reflections created
// on this layer
func (l Layer) DefaultPublic() bool {
	return l == LayerShared
}

// String returns the string representation of the layer
func (l Layer) String() string {
	return string(l)
}
