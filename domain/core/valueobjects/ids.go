package valueobjects

import (
	"github.com/google/uuid"

	pkgerrors "mirror-backend/pkg/errors"
)

// ReflectionID is a value object representing a unique reflection identifier
// Value objects are immutable and have no identity beyond their value
type ReflectionID struct {
	value string
}

// NewReflectionID creates a new random ReflectionID
func NewReflectionID() ReflectionID {
	return ReflectionID{value: uuid.New().String()}
}

// NewReflectionIDFromString creates a ReflectionID from an existing string
func NewReflectionIDFromString(id string) (ReflectionID, error) {
	if id == "" {
		return ReflectionID{}, pkgerrors.NewValidationError("reflection ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ReflectionID{}, pkgerrors.NewValidationError("reflection ID must be a valid UUID")
	}
	return ReflectionID{value: id}, nil
}

// String returns the string representation of the ReflectionID
func (id ReflectionID) String() string {
	return id.value
}

// Equals checks if two ReflectionIDs are equal
func (id ReflectionID) Equals(other ReflectionID) bool {
	return id.value == other.value
}

// IsZero checks if the ReflectionID is the zero value
func (id ReflectionID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ReflectionID) MarshalJSON() ([]byte, error) {
	return marshalIDString(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ReflectionID) UnmarshalJSON(data []byte) error {
	return unmarshalIDString(data, &id.value)
}

// ThreadID is a value object representing a unique thread identifier
type ThreadID struct {
	value string
}

// NewThreadID creates a new random ThreadID
func NewThreadID() ThreadID {
	return ThreadID{value: uuid.New().String()}
}

// NewThreadIDFromString creates a ThreadID from an existing string
func NewThreadIDFromString(id string) (ThreadID, error) {
	if id == "" {
		return ThreadID{}, pkgerrors.NewValidationError("thread ID cannot be empty")
	}
	if !isValidUUID(id) {
		return ThreadID{}, pkgerrors.NewValidationError("thread ID must be a valid UUID")
	}
	return ThreadID{value: id}, nil
}

// String returns the string representation of the ThreadID
func (id ThreadID) String() string {
	return id.value
}

// Equals checks if two ThreadIDs are equal
func (id ThreadID) Equals(other ThreadID) bool {
	return id.value == other.value
}

// IsZero checks if the ThreadID is the zero value
func (id ThreadID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ThreadID) MarshalJSON() ([]byte, error) {
	return marshalIDString(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ThreadID) UnmarshalJSON(data []byte) error {
	return unmarshalIDString(data, &id.value)
}

// AxisID is a value object representing a unique identity axis identifier
type AxisID struct {
	value string
}

// NewAxisID creates a new random AxisID
func NewAxisID() AxisID {
	return AxisID{value: uuid.New().String()}
}

// NewAxisIDFromString creates an AxisID from an existing string
func NewAxisIDFromString(id string) (AxisID, error) {
	if id == "" {
		return AxisID{}, pkgerrors.NewValidationError("axis ID cannot be empty")
	}
	if !isValidUUID(id) {
		return AxisID{}, pkgerrors.NewValidationError("axis ID must be a valid UUID")
	}
	return AxisID{value: id}, nil
}

// String returns the string representation of the AxisID
func (id AxisID) String() string {
	return id.value
}

// Equals checks if two AxisIDs are equal
func (id AxisID) Equals(other AxisID) bool {
	return id.value == other.value
}

// IsZero checks if the AxisID is the zero value
func (id AxisID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id AxisID) MarshalJSON() ([]byte, error) {
	return marshalIDString(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *AxisID) UnmarshalJSON(data []byte) error {
	return unmarshalIDString(data, &id.value)
}

// marshalIDString renders an id value as a JSON string
func marshalIDString(value string) ([]byte, error) {
	return []byte(`"` + value + `"`), nil
}

// unmarshalIDString parses a JSON string into an id value.
// null leaves the zero value in place, matching an absent weak reference.
func unmarshalIDString(data []byte, value *string) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return pkgerrors.NewValidationError("id must be a string")
	}
	*value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
