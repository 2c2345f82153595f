package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocumentID(t *testing.T) {
	for _, ok := range []string{"handbook", "42", "policy-2024_v2", "a..b", "Hand Book.pdf"} {
		assert.NoError(t, ValidateDocumentID(ok), ok)
	}

	for _, bad := range []string{"", ".", "..", "a/b", "../../x", `a\b`, "tab\there", strings.Repeat("x", MaxDocumentIDLength+1)} {
		assert.ErrorIs(t, ValidateDocumentID(bad), ErrValidation, bad)
	}
}
