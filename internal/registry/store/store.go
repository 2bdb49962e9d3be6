// Package store defines the ledger persistence contract shared by the memory
// and Postgres implementations.
//
// Every mutation runs inside Tx.RunInTx: the callback sees a Store bound to one
// atomic unit, and returning an error discards every write made through it.
// Reads that need a consistent snapshot go through Tx.View.
package store

import (
	"context"

	"nameledger/internal/registry/models"
	id "nameledger/pkg/domain"
	"nameledger/pkg/platform/sentinel"
)

// Re-exported so callers only need this package to classify store errors.
var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

// Reader exposes committed ledger state.
type Reader interface {
	State(ctx context.Context) (*models.LedgerState, error)
	FindRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	FindRecordByName(ctx context.Context, nameHash string) (*models.Record, error)
	FindSubRecord(ctx context.Context, parentID id.RecordID, subHash string) (*models.SubRecord, error)
	// ListSubRecords returns sub-records in insertion order.
	ListSubRecords(ctx context.Context, parentID id.RecordID) ([]*models.SubRecord, error)
	FindTld(ctx context.Context, tld string) (*models.TldEntry, error)
	ListTlds(ctx context.Context) ([]*models.TldEntry, error)
}

// Store is a Reader that can also write inside a transaction.
type Store interface {
	Reader
	SaveState(ctx context.Context, state *models.LedgerState) error
	// CreateRecord fails with ErrConflict when the name hash is already indexed.
	CreateRecord(ctx context.Context, record *models.Record) error
	UpdateRecord(ctx context.Context, record *models.Record) error
	// CreateSubRecord appends a new key to the parent's list. ErrConflict if
	// the key exists.
	CreateSubRecord(ctx context.Context, sub *models.SubRecord) error
	// UpdateSubRecord replaces an existing entry in place, keeping its list
	// position.
	UpdateSubRecord(ctx context.Context, sub *models.SubRecord) error
	CreateTld(ctx context.Context, entry *models.TldEntry) error
	UpdateTld(ctx context.Context, entry *models.TldEntry) error
}

// Tx is the transactional boundary around a ledger.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
	View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
}
