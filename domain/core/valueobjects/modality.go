package valueobjects

import (
	pkgerrors "mirror-backend/pkg/errors"
)

// Modality tags how a reflection was captured
type Modality string

const (
	ModalityText     Modality = "text"
	ModalityVoice    Modality = "voice"
	ModalityVideo    Modality = "video"
	ModalityDocument Modality = "document"
)

// DefaultModality is the modality applied when the caller does not specify one.
const DefaultModality = ModalityText

// NewModality validates a modality tag against the closed set
func NewModality(s string) (Modality, error) {
	modality := Modality(s)
	if !modality.IsValid() {
		return "", pkgerrors.NewValidationError("modality must be one of: text, voice, video, document")
	}
	return modality, nil
}

// IsValid reports whether the modality belongs to the closed set
func (m Modality) IsValid() bool {
	switch m {
	case ModalityText, ModalityVoice, ModalityVideo, ModalityDocument:
		return true
	}
	return false
}

// String returns the string representation of the modality
func (m Modality) String() string {
	return string(m)
}
