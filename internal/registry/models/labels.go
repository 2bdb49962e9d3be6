package models

import (
	"strings"
	"unicode/utf8"

	dErrors "nameledger/pkg/domain-errors"
)

// CheckLabel accepts a single name label. Labels are joined with "." to form
// hashed keys, so a label containing "." could collide with another split of
// the same string.
func CheckLabel(field, label string) error {
	if label == "" {
		return dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if strings.Contains(label, ".") {
		return dErrors.New(dErrors.CodeInvalidInput, field+" must be a single label")
	}
	return CheckText(field, label)
}

// CheckText rejects values that every store cannot hold verbatim: invalid
// UTF-8 and NUL bytes.
func CheckText(field, s string) error {
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeInvalidInput, field+" must be valid UTF-8")
	}
	if strings.IndexByte(s, 0) >= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, field+" must not contain NUL bytes")
	}
	return nil
}

// IsLabel reports whether label would pass CheckLabel.
func IsLabel(label string) bool {
	return CheckLabel("label", label) == nil
}
