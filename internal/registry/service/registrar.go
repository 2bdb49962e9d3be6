package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"nameledger/internal/registry/events"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/pricing"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/requestcontext"
)

// Registrar owns the record lifecycle: registration, renewal, transfer and
// the read paths over records.
type Registrar struct {
	core
}

func NewRegistrar(tx store.Tx, opts ...Option) (*Registrar, error) {
	c, err := newCore(tx, opts)
	if err != nil {
		return nil, err
	}
	return &Registrar{core: c}, nil
}

// Register claims name.tld for caller. Checks run in order: name, tld, term,
// availability, payment. Nothing is written unless all of them pass.
func (s *Registrar) Register(ctx context.Context, caller id.Identity, req *models.RegisterRequest) (receipt *models.Receipt, err error) {
	ctx, finish := s.begin(ctx, "register",
		attribute.String("name", req.Name),
		attribute.String("tld", req.TLD),
	)
	defer func() { finish(err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var rec *models.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.State(ctx)
		if err != nil {
			return err
		}
		fee, err := computeFee(ctx, st, state, req.Name, req.TLD, req.TermYears)
		if err != nil {
			return err
		}

		hash := models.NameHash(req.Name, req.TLD)
		if _, err := st.FindRecordByName(ctx, hash); err == nil {
			return dErrors.New(dErrors.CodeNameTaken, "name is already registered")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if req.Payment < fee {
			return dErrors.New(dErrors.CodeInsufficientPayment, "payment is below the registration fee")
		}

		rec = &models.Record{
			ID:        state.NextRecordID,
			Name:      req.Name,
			TLD:       req.TLD,
			Owner:     caller,
			ExpiresAt: now.Add(time.Duration(req.TermYears) * models.TermYear),
			Active:    true,
			Metadata:  req.Metadata,
			CreatedAt: now,
		}
		state.NextRecordID++
		if err := addFee(state, fee); err != nil {
			return err
		}
		if err := st.SaveState(ctx, state); err != nil {
			return err
		}
		if err := st.CreateRecord(ctx, rec); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.New(dErrors.CodeNameTaken, "name is already registered")
			}
			return err
		}
		receipt = &models.Receipt{
			RecordID:  rec.ID,
			Fee:       fee,
			Refund:    req.Payment - fee,
			ExpiresAt: rec.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "", "failed to register name")
	}

	s.metrics.AddFeesCollected(uint64(receipt.Fee))
	s.logAudit(ctx, auditRecordRegistered,
		"record_id", rec.ID.String(),
		"name", rec.Name,
		"tld", rec.TLD,
		"owner", rec.Owner.String(),
	)
	s.publish(ctx, events.Registered(ctx, rec))
	return receipt, nil
}

// Renew extends a record by termYears from its current expiry, so renewals
// accumulate even when made early.
func (s *Registrar) Renew(ctx context.Context, caller id.Identity, recordID id.RecordID, req *models.RenewRequest) (receipt *models.Receipt, err error) {
	ctx, finish := s.begin(ctx, "renew", attribute.String("record_id", recordID.String()))
	defer func() { finish(err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var rec *models.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		found, err := st.FindRecord(ctx, recordID)
		if err != nil {
			return err
		}
		rec = found
		if rec.Owner != caller {
			return dErrors.New(dErrors.CodeNotOwner, "caller does not own the record")
		}
		if err := pricing.ValidateTerm(req.TermYears); err != nil {
			return err
		}
		if !rec.Active {
			return dErrors.New(dErrors.CodeInactive, "record is inactive")
		}

		state, err := st.State(ctx)
		if err != nil {
			return err
		}
		fee, err := computeFee(ctx, st, state, rec.Name, rec.TLD, req.TermYears)
		if err != nil {
			return err
		}
		if req.Payment < fee {
			return dErrors.New(dErrors.CodeInsufficientPayment, "payment is below the renewal fee")
		}

		rec.ExpiresAt = rec.ExpiresAt.Add(time.Duration(req.TermYears) * models.TermYear)
		if err := addFee(state, fee); err != nil {
			return err
		}
		if err := st.SaveState(ctx, state); err != nil {
			return err
		}
		if err := st.UpdateRecord(ctx, rec); err != nil {
			return err
		}
		receipt = &models.Receipt{
			RecordID:  rec.ID,
			Fee:       fee,
			Refund:    req.Payment - fee,
			ExpiresAt: rec.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "record not found", "failed to renew record")
	}

	s.invalidate(ctx, models.NameHash(rec.Name, rec.TLD))
	s.metrics.AddFeesCollected(uint64(receipt.Fee))
	s.logAudit(ctx, auditRecordRenewed,
		"record_id", rec.ID.String(),
		"expires_at", rec.ExpiresAt.Format(time.RFC3339),
	)
	s.publish(ctx, events.Renewed(ctx, rec))
	return receipt, nil
}

// Transfer hands an active, unexpired record to newOwner.
func (s *Registrar) Transfer(ctx context.Context, caller id.Identity, recordID id.RecordID, newOwner id.Identity) (err error) {
	ctx, finish := s.begin(ctx, "transfer", attribute.String("record_id", recordID.String()))
	defer func() { finish(err) }()

	if err := requireCaller(caller); err != nil {
		return err
	}
	if newOwner.IsNull() {
		return dErrors.New(dErrors.CodeInvalidInput, "new owner is required")
	}

	now := requestcontext.Now(ctx)
	var rec *models.Record
	var previous id.Identity
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		found, err := st.FindRecord(ctx, recordID)
		if err != nil {
			return err
		}
		rec = found
		if rec.Owner != caller {
			return dErrors.New(dErrors.CodeNotOwner, "caller does not own the record")
		}
		if !rec.Active {
			return dErrors.New(dErrors.CodeInactive, "record is inactive")
		}
		if rec.IsExpired(now) {
			return dErrors.New(dErrors.CodeExpired, "record has expired")
		}
		previous = rec.Owner
		rec.Owner = newOwner
		return st.UpdateRecord(ctx, rec)
	})
	if err != nil {
		return storeErr(err, "record not found", "failed to transfer record")
	}

	s.invalidate(ctx, models.NameHash(rec.Name, rec.TLD))
	s.logAudit(ctx, auditRecordTransferred,
		"record_id", rec.ID.String(),
		"previous_owner", previous.String(),
		"new_owner", newOwner.String(),
	)
	s.publish(ctx, events.OwnershipTransferred(ctx, rec.ID, previous, newOwner))
	return nil
}

func (s *Registrar) GetRecord(ctx context.Context, recordID id.RecordID) (rec *models.Record, err error) {
	ctx, finish := s.begin(ctx, "get_record", attribute.String("record_id", recordID.String()))
	defer func() { finish(err) }()

	err = s.tx.View(ctx, func(ctx context.Context, r store.Reader) error {
		rec, err = r.FindRecord(ctx, recordID)
		return err
	})
	if err != nil {
		return nil, storeErr(err, "record not found", "failed to load record")
	}
	return rec, nil
}

// Resolve looks a record up by name. Hits are served from the cache when one
// is configured. A cache failure falls back to the store without refilling.
func (s *Registrar) Resolve(ctx context.Context, name, tld string) (rec *models.Record, err error) {
	ctx, finish := s.begin(ctx, "resolve",
		attribute.String("name", name),
		attribute.String("tld", tld),
	)
	defer func() { finish(err) }()

	hash := models.NameHash(name, tld)
	var (
		generation uint64
		fill       bool
	)
	if s.cache != nil {
		cached, gen, err := s.cache.GetRecord(ctx, hash)
		switch {
		case err == nil:
			return cached, nil
		case errors.Is(err, store.ErrNotFound):
			generation, fill = gen, true
		default:
			s.logger.WarnContext(ctx, "resolve cache read failed", "name_hash", hash, "error", err)
		}
	}

	err = s.tx.View(ctx, func(ctx context.Context, r store.Reader) error {
		rec, err = r.FindRecordByName(ctx, hash)
		return err
	})
	if err != nil {
		return nil, storeErr(err, "name is not registered", "failed to resolve name")
	}

	if fill {
		if err := s.cache.SetRecord(ctx, rec, generation); err != nil {
			s.logger.WarnContext(ctx, "resolve cache write failed", "name_hash", hash, "error", err)
		}
	}
	return rec, nil
}

// IsAvailable reports whether no record holds name.tld. Expired records keep
// their name. A TLD that Register would refuse is reported as unsupported
// rather than available.
func (s *Registrar) IsAvailable(ctx context.Context, name, tld string) (available bool, err error) {
	ctx, finish := s.begin(ctx, "is_available")
	defer func() { finish(err) }()

	if err := models.CheckLabel("name", name); err != nil {
		return false, err
	}
	err = s.tx.View(ctx, func(ctx context.Context, r store.Reader) error {
		if _, err := supportedTld(ctx, r, tld); err != nil {
			return err
		}
		_, err := r.FindRecordByName(ctx, models.NameHash(name, tld))
		if errors.Is(err, store.ErrNotFound) {
			available = true
			return nil
		}
		return err
	})
	if err != nil {
		return false, storeErr(err, "", "failed to check availability")
	}
	return available, nil
}

// Quote prices a registration against committed pricing state.
func (s *Registrar) Quote(ctx context.Context, name, tld string, termYears int) (fee models.Amount, err error) {
	ctx, finish := s.begin(ctx, "quote")
	defer func() { finish(err) }()

	if err := models.CheckLabel("name", name); err != nil {
		return 0, err
	}
	err = s.tx.View(ctx, func(ctx context.Context, r store.Reader) error {
		state, err := r.State(ctx)
		if err != nil {
			return err
		}
		fee, err = computeFee(ctx, r, state, name, tld, termYears)
		return err
	})
	if err != nil {
		return 0, storeErr(err, "", "failed to quote fee")
	}
	return fee, nil
}

// computeFee resolves the TLD entry and prices the term. An empty name is
// reported before an unknown TLD.
func computeFee(ctx context.Context, r store.Reader, state *models.LedgerState, name, tld string, termYears int) (models.Amount, error) {
	var entry *models.TldEntry
	if name != "" {
		found, err := supportedTld(ctx, r, tld)
		switch {
		case err == nil:
			entry = found
		case !dErrors.HasCode(err, dErrors.CodeUnsupportedTld):
			return 0, err
		}
	}
	return pricing.ComputeFee(state.BaseFee, name, entry, termYears)
}

// supportedTld returns the catalog entry for tld. Strings that could never
// have been added to the catalog are not looked up.
func supportedTld(ctx context.Context, r store.Reader, tld string) (*models.TldEntry, error) {
	if models.IsLabel(tld) {
		entry, err := r.FindTld(ctx, tld)
		switch {
		case err == nil && entry.FeeMultiplier > 0:
			return entry, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	return nil, dErrors.New(dErrors.CodeUnsupportedTld, "tld is not supported")
}
