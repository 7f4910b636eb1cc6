package chat

import (
	"regexp"
	"strings"
)

const (
	// DefaultColor replaces anything that is not a #RRGGBB value
	DefaultColor = "#000000"

	// FallbackName replaces empty or whitespace-only display names
	FallbackName = "Slime"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Sanitizer clamps untrusted client strings to configured bounds. All methods
// are total: any input produces a usable value, never an error.
type Sanitizer struct {
	maxNameLength    int
	maxContentLength int
}

func NewSanitizer(maxNameLength, maxContentLength int) *Sanitizer {
	return &Sanitizer{
		maxNameLength:    maxNameLength,
		maxContentLength: maxContentLength,
	}
}

// Color returns s when it is exactly "#" plus six hex digits, else DefaultColor.
func (s *Sanitizer) Color(v string) string {
	if colorPattern.MatchString(v) {
		return v
	}
	return DefaultColor
}

// Name returns FallbackName for blank input and truncates the rest to the
// configured maximum. Truncation counts runes, not bytes.
func (s *Sanitizer) Name(v string) string {
	if strings.TrimSpace(v) == "" {
		return FallbackName
	}
	return truncateRunes(v, s.maxNameLength)
}

// Content returns "" for blank input and truncates the rest to the configured
// maximum rune count.
func (s *Sanitizer) Content(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return truncateRunes(v, s.maxContentLength)
}

func truncateRunes(v string, max int) string {
	runes := []rune(v)
	if len(runes) <= max {
		return v
	}
	return string(runes[:max])
}
