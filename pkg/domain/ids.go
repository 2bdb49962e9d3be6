// Package domain holds the ledger's identifier primitives.
//
// Values arriving from the outside (path params, token claims, CLI flags) are
// parsed through the Parse* constructors at the trust boundary; direct casts
// are reserved for trusted sources such as store rows.
package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "nameledger/pkg/domain-errors"
)

// RecordID identifies a registered name. IDs are allocated from a counter
// starting at 1; the zero value means "no record".
type RecordID uint64

// ParseRecordID parses a decimal record id. Zero is rejected.
func ParseRecordID(s string) (RecordID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be a positive integer")
	}
	if n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be a positive integer")
	}
	return RecordID(n), nil
}

func (id RecordID) IsZero() bool {
	return id == 0
}

func (id RecordID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Identity is an opaque owner or caller identifier. The empty string is the
// null identity and can never own a record.
type Identity string

// NullIdentity is the absent identity.
const NullIdentity Identity = ""

const maxIdentityLength = 256

// ParseIdentity validates an identity taken from external input.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullIdentity, dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if len(s) > maxIdentityLength {
		return NullIdentity, dErrors.New(dErrors.CodeInvalidInput, "identity is too long")
	}
	if !utf8.ValidString(s) {
		return NullIdentity, dErrors.New(dErrors.CodeInvalidInput, "identity must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == '\u200b' {
			return NullIdentity, dErrors.New(dErrors.CodeInvalidInput, "identity contains invalid characters")
		}
	}
	return Identity(s), nil
}

func (i Identity) IsNull() bool {
	return i == NullIdentity
}

func (i Identity) String() string {
	return string(i)
}
