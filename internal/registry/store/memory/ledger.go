// Package memory is an in-process ledger store.
//
// Writers are serialized by a single lock held for the whole transaction.
// Every write records its inverse in an undo journal; when the transaction
// callback fails the journal is replayed in reverse so the ledger is left
// exactly as it was.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nameledger/internal/registry/models"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

type subKey struct {
	parent id.RecordID
	hash   string
}

// Ledger holds all ledger state in maps guarded by mu.
type Ledger struct {
	mu      sync.RWMutex
	timeout time.Duration

	state    models.LedgerState
	records  map[id.RecordID]*models.Record
	byName   map[string]id.RecordID
	subs     map[subKey]*models.SubRecord
	subOrder map[id.RecordID][]string
	tlds     map[string]*models.TldEntry
	tldOrder []string
}

type Option func(*Ledger)

// WithTimeout bounds how long RunInTx waits for the writer lock.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.timeout = d
	}
}

// New returns an empty, uninitialized ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		timeout:  defaultTxTimeout,
		state:    models.LedgerState{NextRecordID: 1},
		records:  make(map[id.RecordID]*models.Record),
		byName:   make(map[string]id.RecordID),
		subs:     make(map[subKey]*models.SubRecord),
		subOrder: make(map[id.RecordID][]string),
		tlds:     make(map[string]*models.TldEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunInTx runs fn under the writer lock. An error from fn rolls back every
// write fn made.
func (l *Ledger) RunInTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.lock(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	t := &txn{reader: reader{l: l}}
	err := fn(ctx, t)
	if err != nil {
		t.rollback()
	}
	t.closed = true
	return err
}

// lock acquires the writer lock or gives up when ctx ends first.
func (l *Ledger) lock(ctx context.Context) error {
	if l.mu.TryLock() {
		return nil
	}
	acquired := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// Release the lock once the goroutine finally gets it.
		go func() {
			<-acquired
			l.mu.Unlock()
		}()
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "transaction aborted: lock wait timed out")
	}
}

// View runs fn under the read lock against committed state.
func (l *Ledger) View(ctx context.Context, fn func(ctx context.Context, r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "read aborted: context cancelled")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(ctx, reader{l: l})
}

// reader serves copies so callers never alias ledger memory.
type reader struct {
	l *Ledger
}

func (r reader) State(_ context.Context) (*models.LedgerState, error) {
	st := r.l.state
	return &st, nil
}

func (r reader) FindRecord(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	rec, ok := r.l.records[recordID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r reader) FindRecordByName(ctx context.Context, nameHash string) (*models.Record, error) {
	recordID, ok := r.l.byName[nameHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.FindRecord(ctx, recordID)
}

func (r reader) FindSubRecord(_ context.Context, parentID id.RecordID, subHash string) (*models.SubRecord, error) {
	sub, ok := r.l.subs[subKey{parent: parentID, hash: subHash}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r reader) ListSubRecords(_ context.Context, parentID id.RecordID) ([]*models.SubRecord, error) {
	keys := r.l.subOrder[parentID]
	out := make([]*models.SubRecord, 0, len(keys))
	for _, hash := range keys {
		cp := *r.l.subs[subKey{parent: parentID, hash: hash}]
		out = append(out, &cp)
	}
	return out, nil
}

func (r reader) FindTld(_ context.Context, tld string) (*models.TldEntry, error) {
	entry, ok := r.l.tlds[tld]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (r reader) ListTlds(_ context.Context) ([]*models.TldEntry, error) {
	out := make([]*models.TldEntry, 0, len(r.l.tldOrder))
	for _, tld := range r.l.tldOrder {
		cp := *r.l.tlds[tld]
		out = append(out, &cp)
	}
	return out, nil
}

// txn is a Store bound to one RunInTx call.
type txn struct {
	reader
	undo   []func()
	closed bool
}

func (t *txn) record(inverse func()) error {
	if t.closed {
		return fmt.Errorf("memory ledger: write after transaction end")
	}
	t.undo = append(t.undo, inverse)
	return nil
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txn) SaveState(_ context.Context, state *models.LedgerState) error {
	prev := t.l.state
	if err := t.record(func() { t.l.state = prev }); err != nil {
		return err
	}
	t.l.state = *state
	return nil
}

func (t *txn) CreateRecord(_ context.Context, record *models.Record) error {
	hash := models.NameHash(record.Name, record.TLD)
	if _, taken := t.l.byName[hash]; taken {
		return store.ErrConflict
	}
	if _, exists := t.l.records[record.ID]; exists {
		return store.ErrConflict
	}
	if err := t.record(func() {
		delete(t.l.records, record.ID)
		delete(t.l.byName, hash)
	}); err != nil {
		return err
	}
	cp := *record
	t.l.records[record.ID] = &cp
	t.l.byName[hash] = record.ID
	return nil
}

func (t *txn) UpdateRecord(_ context.Context, record *models.Record) error {
	prev, ok := t.l.records[record.ID]
	if !ok {
		return store.ErrNotFound
	}
	if err := t.record(func() { t.l.records[record.ID] = prev }); err != nil {
		return err
	}
	cp := *record
	t.l.records[record.ID] = &cp
	return nil
}

func (t *txn) CreateSubRecord(_ context.Context, sub *models.SubRecord) error {
	key := subKey{parent: sub.ParentID, hash: sub.Key()}
	if _, exists := t.l.subs[key]; exists {
		return store.ErrConflict
	}
	order := t.l.subOrder[sub.ParentID]
	if err := t.record(func() {
		delete(t.l.subs, key)
		if len(order) == 0 {
			delete(t.l.subOrder, sub.ParentID)
		} else {
			t.l.subOrder[sub.ParentID] = order
		}
	}); err != nil {
		return err
	}
	cp := *sub
	t.l.subs[key] = &cp
	// Full slice expression forces a copy so the undo closure keeps the old view.
	t.l.subOrder[sub.ParentID] = append(order[:len(order):len(order)], key.hash)
	return nil
}

func (t *txn) UpdateSubRecord(_ context.Context, sub *models.SubRecord) error {
	key := subKey{parent: sub.ParentID, hash: sub.Key()}
	prev, ok := t.l.subs[key]
	if !ok {
		return store.ErrNotFound
	}
	if err := t.record(func() { t.l.subs[key] = prev }); err != nil {
		return err
	}
	cp := *sub
	t.l.subs[key] = &cp
	return nil
}

func (t *txn) CreateTld(_ context.Context, entry *models.TldEntry) error {
	if _, exists := t.l.tlds[entry.TLD]; exists {
		return store.ErrConflict
	}
	order := t.l.tldOrder
	if err := t.record(func() {
		delete(t.l.tlds, entry.TLD)
		t.l.tldOrder = order
	}); err != nil {
		return err
	}
	cp := *entry
	t.l.tlds[entry.TLD] = &cp
	t.l.tldOrder = append(order[:len(order):len(order)], entry.TLD)
	return nil
}

func (t *txn) UpdateTld(_ context.Context, entry *models.TldEntry) error {
	prev, ok := t.l.tlds[entry.TLD]
	if !ok {
		return store.ErrNotFound
	}
	if err := t.record(func() { t.l.tlds[entry.TLD] = prev }); err != nil {
		return err
	}
	cp := *entry
	t.l.tlds[entry.TLD] = &cp
	return nil
}
