package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxLanes bounds the lane count accepted from user input. The lane window
// search is linear in lanes per item.
const MaxLanes = 24

// ValidateKey validates an item key for use as a cache and map key.
//
// The validation rules are intentionally conservative:
//   - No empty keys
//   - No control characters
//   - Maximum length of 256 characters
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidFeed, "item key cannot be empty")
	}

	if len(key) > 256 {
		return New(ErrCodeInvalidFeed, "item key too long (max 256 characters)")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFeed, "item key contains invalid control characters")
		}
	}
	return nil
}

// ValidateLanes validates a lane count.
func ValidateLanes(lanes int) error {
	if lanes < 1 {
		return New(ErrCodeInvalidInput, "lanes must be at least 1, got %d", lanes)
	}
	if lanes > MaxLanes {
		return New(ErrCodeInvalidInput, "lanes must be at most %d, got %d", MaxLanes, lanes)
	}
	return nil
}

// ValidateSize validates a non-negative length such as a gap, padding or
// item size.
func ValidateSize(name string, v float64) error {
	if v < 0 || v != v {
		return New(ErrCodeInvalidInput, "%s must be a non-negative number, got %v", name, v)
	}
	return nil
}

// nameRegex matches breakpoint and feed names.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName validates a short identifier such as a breakpoint name.
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidInput, "name too long (max 64 characters)")
	}
	if !nameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid name: %q", name)
	}
	return nil
}

// ValidatePath validates a user-supplied file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}
	return nil
}
