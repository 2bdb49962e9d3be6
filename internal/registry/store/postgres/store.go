// Package postgres persists the ledger in PostgreSQL.
//
// Writers take a transaction scoped advisory lock before touching any table,
// so mutations are totally ordered. They run at READ COMMITTED so statements
// issued after the lock see the previous writer's commit. Readers use a
// read-only REPEATABLE READ snapshot.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"nameledger/internal/registry/models"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	txcontext "nameledger/pkg/platform/tx"
)

const (
	defaultTxTimeout = 5 * time.Second
	// ledgerLockKey is the advisory lock id shared by every writer.
	ledgerLockKey int64 = 0x6e616d656c656467

	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqQueryCanceled        = "57014"
)

// Store is a Postgres-backed ledger. It implements store.Tx, and inside
// RunInTx it is also the store.Store handed to the callback.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

type Option func(*Store)

// WithTimeout bounds each transaction when the caller set no deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, st store.Store) error) error {
	return s.inTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
			return classify(err, "acquire ledger lock")
		}
		if err := ctx.Err(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
		}
		return fn(ctx, s)
	})
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r store.Reader) error) error {
	return s.inTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, func(ctx context.Context, _ *sql.Tx) error {
		return fn(ctx, s)
	})
}

func (s *Store) inTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.Bind(ctx, tx), tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

func (s *Store) execer(ctx context.Context) txcontext.Querier {
	return txcontext.Pick(ctx, s.db)
}

// classify turns driver failures that mean "try again" into timeouts and
// leaves everything else as a plain wrapped error.
func classify(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+": context cancelled")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable, pqQueryCanceled:
			return dErrors.Wrap(err, dErrors.CodeTimeout, op+": concurrent update, retry")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// =============================================================================
// Reader
// =============================================================================

func (s *Store) State(ctx context.Context) (*models.LedgerState, error) {
	var next, baseFee, balance string
	var st models.LedgerState
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT next_record_id, base_fee, balance, initialized
		FROM ledger_state WHERE id = 1
	`).Scan(&next, &baseFee, &balance, &st.Initialized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, classify(err, "load ledger state")
	}
	n, err := parseUint(next)
	if err != nil {
		return nil, err
	}
	fee, err := parseUint(baseFee)
	if err != nil {
		return nil, err
	}
	bal, err := parseUint(balance)
	if err != nil {
		return nil, err
	}
	st.NextRecordID = id.RecordID(n)
	st.BaseFee = models.Amount(fee)
	st.Balance = models.Amount(bal)
	return &st, nil
}

const recordColumns = `id, name, tld, owner, expires_at, active, metadata, created_at`

func (s *Store) FindRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, recordID.String())
	return scanRecord(row)
}

func (s *Store) FindRecordByName(ctx context.Context, nameHash string) (*models.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE name_hash = $1`, nameHash)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	var rawID, owner string
	var rec models.Record
	err := row.Scan(&rawID, &rec.Name, &rec.TLD, &owner, &rec.ExpiresAt, &rec.Active, &rec.Metadata, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, classify(err, "find record")
	}
	n, err := parseUint(rawID)
	if err != nil {
		return nil, err
	}
	rec.ID = id.RecordID(n)
	rec.Owner = id.Identity(owner)
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

const subColumns = `parent_id, full_name, metadata, owner, active, created_at`

func (s *Store) FindSubRecord(ctx context.Context, parentID id.RecordID, subHash string) (*models.SubRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+subColumns+` FROM subrecords WHERE parent_id = $1 AND sub_hash = $2`,
		parentID.String(), subHash)
	if err != nil {
		return nil, classify(err, "find sub-record")
	}
	subs, err := scanSubRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, store.ErrNotFound
	}
	return subs[0], nil
}

func (s *Store) ListSubRecords(ctx context.Context, parentID id.RecordID) ([]*models.SubRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+subColumns+` FROM subrecords WHERE parent_id = $1 ORDER BY position`,
		parentID.String())
	if err != nil {
		return nil, classify(err, "list sub-records")
	}
	return scanSubRecords(rows)
}

func scanSubRecords(rows *sql.Rows) ([]*models.SubRecord, error) {
	defer rows.Close()
	out := make([]*models.SubRecord, 0)
	for rows.Next() {
		var rawParent, owner string
		var sub models.SubRecord
		if err := rows.Scan(&rawParent, &sub.FullName, &sub.Metadata, &owner, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, classify(err, "scan sub-record")
		}
		n, err := parseUint(rawParent)
		if err != nil {
			return nil, err
		}
		sub.ParentID = id.RecordID(n)
		sub.Owner = id.Identity(owner)
		sub.CreatedAt = sub.CreatedAt.UTC()
		out = append(out, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate sub-records")
	}
	return out, nil
}

func (s *Store) FindTld(ctx context.Context, tld string) (*models.TldEntry, error) {
	var multiplier string
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT multiplier FROM tlds WHERE tld = $1`, tld).Scan(&multiplier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, classify(err, "find tld")
	}
	m, err := parseUint(multiplier)
	if err != nil {
		return nil, err
	}
	return &models.TldEntry{TLD: tld, FeeMultiplier: m}, nil
}

func (s *Store) ListTlds(ctx context.Context) ([]*models.TldEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT tld, multiplier FROM tlds ORDER BY position`)
	if err != nil {
		return nil, classify(err, "list tlds")
	}
	defer rows.Close()

	out := make([]*models.TldEntry, 0)
	for rows.Next() {
		var entry models.TldEntry
		var multiplier string
		if err := rows.Scan(&entry.TLD, &multiplier); err != nil {
			return nil, classify(err, "scan tld")
		}
		if entry.FeeMultiplier, err = parseUint(multiplier); err != nil {
			return nil, err
		}
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate tlds")
	}
	return out, nil
}

// =============================================================================
// Writer
// =============================================================================

func (s *Store) SaveState(ctx context.Context, st *models.LedgerState) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE ledger_state
		SET next_record_id = $1, base_fee = $2, balance = $3, initialized = $4
		WHERE id = 1
	`, formatUint(uint64(st.NextRecordID)), formatUint(uint64(st.BaseFee)), formatUint(uint64(st.Balance)), st.Initialized)
	if err != nil {
		return classify(err, "save ledger state")
	}
	return nil
}

func (s *Store) CreateRecord(ctx context.Context, rec *models.Record) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO records (id, name_hash, name, tld, owner, expires_at, active, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID.String(), models.NameHash(rec.Name, rec.TLD), rec.Name, rec.TLD, rec.Owner.String(),
		rec.ExpiresAt, rec.Active, rec.Metadata, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return classify(err, "create record")
	}
	return nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec *models.Record) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE records
		SET owner = $2, expires_at = $3, active = $4, metadata = $5
		WHERE id = $1
	`, rec.ID.String(), rec.Owner.String(), rec.ExpiresAt, rec.Active, rec.Metadata)
	if err != nil {
		return classify(err, "update record")
	}
	return requireOneRow(res)
}

func (s *Store) CreateSubRecord(ctx context.Context, sub *models.SubRecord) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO subrecords (parent_id, sub_hash, full_name, metadata, owner, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sub.ParentID.String(), sub.Key(), sub.FullName, sub.Metadata, sub.Owner.String(), sub.Active, sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return classify(err, "create sub-record")
	}
	return nil
}

func (s *Store) UpdateSubRecord(ctx context.Context, sub *models.SubRecord) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE subrecords
		SET metadata = $3, owner = $4, active = $5, created_at = $6
		WHERE parent_id = $1 AND sub_hash = $2
	`, sub.ParentID.String(), sub.Key(), sub.Metadata, sub.Owner.String(), sub.Active, sub.CreatedAt)
	if err != nil {
		return classify(err, "update sub-record")
	}
	return requireOneRow(res)
}

func (s *Store) CreateTld(ctx context.Context, entry *models.TldEntry) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO tlds (tld, multiplier) VALUES ($1, $2)`,
		entry.TLD, formatUint(entry.FeeMultiplier))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return classify(err, "create tld")
	}
	return nil
}

func (s *Store) UpdateTld(ctx context.Context, entry *models.TldEntry) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE tlds SET multiplier = $2 WHERE tld = $1`,
		entry.TLD, formatUint(entry.FeeMultiplier))
	if err != nil {
		return classify(err, "update tld")
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func parseUint(raw string) (uint64, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric column %q: %w", raw, err)
	}
	return n, nil
}

func formatUint(n uint64) string {
	return strconv.FormatUint(n, 10)
}
