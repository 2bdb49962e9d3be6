package models

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	id "nameledger/pkg/domain"
)

// Amount is a monetary value in the smallest currency unit.
type Amount uint64

// Term bounds and the length of one term year.
const (
	MinTermYears = 1
	MaxTermYears = 10
	TermYear     = 365 * 24 * time.Hour
)

// Record is a registered name under a TLD.
type Record struct {
	ID        id.RecordID `json:"record_id"`
	Name      string      `json:"name"`
	TLD       string      `json:"tld"`
	Owner     id.Identity `json:"owner"`
	ExpiresAt time.Time   `json:"expires_at"`
	Active    bool        `json:"active"`
	Metadata  string      `json:"metadata"`
	CreatedAt time.Time   `json:"created_at"`
}

// FullName returns "name.tld".
func (r *Record) FullName() string {
	return FullName(r.Name, r.TLD)
}

// IsExpired reports whether now is at or past the expiry instant.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// SubRecord is a sub-name under a parent record, keyed by (ParentID, SubHash(FullName)).
type SubRecord struct {
	ParentID  id.RecordID `json:"parent_id"`
	FullName  string      `json:"full_name"`
	Metadata  string      `json:"metadata"`
	Owner     id.Identity `json:"owner"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// Key returns the sub-record's hash key under its parent.
func (s *SubRecord) Key() string {
	return SubHash(s.FullName)
}

// TldEntry is a supported TLD and its fee multiplier (hundredths, 100 = 1.00x).
type TldEntry struct {
	TLD           string `json:"tld"`
	FeeMultiplier uint64 `json:"fee_multiplier"`
}

// LedgerState holds the ledger-wide scalars: id counter, pricing base and the
// accumulated fee balance.
type LedgerState struct {
	NextRecordID id.RecordID
	BaseFee      Amount
	Balance      Amount
	Initialized  bool
}

// Receipt is returned by paid operations.
type Receipt struct {
	RecordID  id.RecordID `json:"record_id"`
	Fee       Amount      `json:"fee"`
	Refund    Amount      `json:"refund"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// FullName joins labels with ".".
func FullName(labels ...string) string {
	return strings.Join(labels, ".")
}

// NameHash is the hex keccak256 of "name.tld", the uniqueness key of a record.
func NameHash(name, tld string) string {
	return keccakHex(FullName(name, tld))
}

// SubHash is the hex keccak256 of a sub-record's full name.
func SubHash(fullName string) string {
	return keccakHex(fullName)
}

func keccakHex(s string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
