package errors

import (
	"strings"
	"unicode"
)

// MaxIDLength bounds the length of catalog identifiers.
const MaxIDLength = 128

// ValidateID checks an identifier taken from a catalog document or a request.
// kind names the entity ("service", "feed", "flow") for the message.
//
// The rules are deliberately narrow:
//   - No empty ids
//   - No leading or trailing whitespace
//   - No control characters
//   - Maximum length of MaxIDLength bytes
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidCatalog, "%s id cannot be empty", kind)
	}

	if len(id) > MaxIDLength {
		return New(ErrCodeInvalidCatalog, "%s id too long (max %d characters)", kind, MaxIDLength)
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidCatalog, "%s id %q has surrounding whitespace", kind, id)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCatalog, "%s id contains invalid control characters", kind)
		}
	}

	return nil
}

// ValidatePath validates a catalog file path given on the command line or in
// configuration. Absolute paths are allowed; null bytes and control
// characters are not.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a backend URL such as a Redis or MongoDB address.
// Only the scheme is checked; the driver parses the rest.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}

	return New(ErrCodeInvalidInput, "URL must use one of the schemes %s", strings.Join(schemes, ", "))
}
