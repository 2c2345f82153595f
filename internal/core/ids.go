package core

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxDocumentIDLength bounds document ids in bytes.
const MaxDocumentIDLength = 128

// ValidateDocumentID rejects ids that cannot be used as a single key or path
// segment: empty or overlong ids, path separators, "." and "..", and control
// characters. Stores and object keys build on ids that passed this check.
func ValidateDocumentID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: document id is required", ErrValidation)
	case len(id) > MaxDocumentIDLength:
		return fmt.Errorf("%w: document id longer than %d bytes", ErrValidation, MaxDocumentIDLength)
	case id == "." || id == "..":
		return fmt.Errorf("%w: document id %q is reserved", ErrValidation, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: document id %q contains a path separator", ErrValidation, id)
	case strings.IndexFunc(id, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: document id contains control characters", ErrValidation)
	}
	return nil
}
