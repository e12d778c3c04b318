package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"mirror-backend/domain/config"
	pkgerrors "mirror-backend/pkg/errors"
)

// ReflectionContent is a value object for the free-text body of a reflection
type ReflectionContent struct {
	text string
}

// NewReflectionContent creates content with validation using default configuration
func NewReflectionContent(text string) (ReflectionContent, error) {
	return NewReflectionContentWithConfig(text, config.DefaultDomainConfig())
}

// NewReflectionContentWithConfig creates content with validation and configuration
func NewReflectionContentWithConfig(text string, cfg *config.DomainConfig) (ReflectionContent, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if strings.TrimSpace(text) == "" {
		return ReflectionContent{}, pkgerrors.NewValidationError("content cannot be empty")
	}

	if utf8.RuneCountInString(text) > cfg.MaxContentLength {
		return ReflectionContent{}, fmt.Errorf("content exceeds maximum length of %d characters", cfg.MaxContentLength)
	}

	return ReflectionContent{text: text}, nil
}

// ReconstructReflectionContent rebuilds content from stored data without
// re-applying length limits, so records written under an older configuration
// still load.
func ReconstructReflectionContent(text string) ReflectionContent {
	return ReflectionContent{text: text}
}

// Text returns the content text
func (c ReflectionContent) Text() string {
	return c.text
}

// IsEmpty checks if the content is empty
func (c ReflectionContent) IsEmpty() bool {
	return strings.TrimSpace(c.text) == ""
}

// Equals checks if two contents are equal
func (c ReflectionContent) Equals(other ReflectionContent) bool {
	return c.text == other.text
}

// Preview returns the first n runes of the content, for logging and titles
func (c ReflectionContent) Preview(n int) string {
	runes := []rune(c.text)
	if len(runes) <= n {
		return c.text
	}
	return string(runes[:n]) + "..."
}
