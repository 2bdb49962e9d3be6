package service

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"nameledger/internal/registry/models"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

// Capability names a privilege checked by RequireCapability.
type Capability string

const CapabilityAdmin Capability = "admin"

// Admin runs the ledger's privileged operations: the TLD catalog, the base
// fee and the fee balance. The administrator identity is fixed at
// construction.
type Admin struct {
	core
	admin id.Identity
}

func NewAdmin(tx store.Tx, admin id.Identity, opts ...Option) (*Admin, error) {
	if admin.IsNull() {
		return nil, errors.New("administrator identity is required")
	}
	c, err := newCore(tx, opts)
	if err != nil {
		return nil, err
	}
	return &Admin{core: c, admin: admin}, nil
}

// RequireCapability fails with unauthorized unless caller holds capability.
func (s *Admin) RequireCapability(ctx context.Context, caller id.Identity, capability Capability) error {
	if capability == CapabilityAdmin && !caller.IsNull() && caller == s.admin {
		return nil
	}
	s.logAudit(ctx, auditAdminDenied,
		"caller", caller.String(),
		"capability", string(capability),
	)
	return dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrator")
}

// Bootstrap seeds the base fee and TLD catalog the first time a ledger is
// opened. Later calls leave existing state alone and report false.
func (s *Admin) Bootstrap(ctx context.Context, baseFee models.Amount, tlds []models.TldEntry) (seeded bool, err error) {
	ctx, finish := s.begin(ctx, "bootstrap")
	defer func() { finish(err) }()

	for _, entry := range tlds {
		if err := validateTldEntry(entry.TLD, entry.FeeMultiplier); err != nil {
			return false, err
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.State(ctx)
		if err != nil {
			return err
		}
		if state.Initialized {
			return nil
		}
		for _, entry := range tlds {
			if err := st.CreateTld(ctx, &entry); err != nil {
				if errors.Is(err, store.ErrConflict) {
					return dErrors.New(dErrors.CodeDuplicate, "tld "+entry.TLD+" listed twice")
				}
				return err
			}
		}
		state.BaseFee = baseFee
		state.Initialized = true
		seeded = true
		return st.SaveState(ctx, state)
	})
	if err != nil {
		return false, storeErr(err, "", "failed to bootstrap ledger")
	}
	if seeded {
		s.logAudit(ctx, auditLedgerBootstrapped,
			"base_fee", strconv.FormatUint(uint64(baseFee), 10),
			"tld_count", len(tlds),
		)
	}
	return seeded, nil
}

func validateTldEntry(tld string, multiplier uint64) error {
	if err := models.CheckLabel("tld", tld); err != nil {
		return err
	}
	if multiplier == 0 {
		return dErrors.New(dErrors.CodeInvalidMultiplier, "fee multiplier must be positive")
	}
	return nil
}

func (s *Admin) AddTld(ctx context.Context, caller id.Identity, req *models.AddTldRequest) (err error) {
	ctx, finish := s.begin(ctx, "add_tld", attribute.String("tld", req.TLD))
	defer func() { finish(err) }()

	if err := s.RequireCapability(ctx, caller, CapabilityAdmin); err != nil {
		return err
	}
	if err := validateTldEntry(req.TLD, req.FeeMultiplier); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		return st.CreateTld(ctx, &models.TldEntry{TLD: req.TLD, FeeMultiplier: req.FeeMultiplier})
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return dErrors.New(dErrors.CodeDuplicate, "tld is already supported")
		}
		return storeErr(err, "", "failed to add tld")
	}

	s.logAudit(ctx, auditTldAdded,
		"tld", req.TLD,
		"fee_multiplier", strconv.FormatUint(req.FeeMultiplier, 10),
	)
	return nil
}

// UpdateTldMultiplier changes pricing for future registrations and renewals
// only.
func (s *Admin) UpdateTldMultiplier(ctx context.Context, caller id.Identity, tld string, req *models.UpdateTldRequest) (err error) {
	ctx, finish := s.begin(ctx, "update_tld_multiplier", attribute.String("tld", tld))
	defer func() { finish(err) }()

	if err := s.RequireCapability(ctx, caller, CapabilityAdmin); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		entry, err := supportedTld(ctx, st, tld)
		if err != nil {
			return err
		}
		if req.FeeMultiplier == 0 {
			return dErrors.New(dErrors.CodeInvalidMultiplier, "fee multiplier must be positive")
		}
		entry.FeeMultiplier = req.FeeMultiplier
		return st.UpdateTld(ctx, entry)
	})
	if err != nil {
		return storeErr(err, "", "failed to update tld")
	}

	s.logAudit(ctx, auditTldUpdated,
		"tld", tld,
		"fee_multiplier", strconv.FormatUint(req.FeeMultiplier, 10),
	)
	return nil
}

func (s *Admin) UpdateBaseFee(ctx context.Context, caller id.Identity, req *models.UpdateBaseFeeRequest) (err error) {
	ctx, finish := s.begin(ctx, "update_base_fee")
	defer func() { finish(err) }()

	if err := s.RequireCapability(ctx, caller, CapabilityAdmin); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.State(ctx)
		if err != nil {
			return err
		}
		state.BaseFee = req.BaseFee
		return st.SaveState(ctx, state)
	})
	if err != nil {
		return storeErr(err, "", "failed to update base fee")
	}

	s.logAudit(ctx, auditBaseFeeUpdated,
		"base_fee", strconv.FormatUint(uint64(req.BaseFee), 10),
	)
	return nil
}

// Withdraw pays the whole fee balance out to the administrator. An empty
// balance withdraws zero.
func (s *Admin) Withdraw(ctx context.Context, caller id.Identity) (amount models.Amount, err error) {
	ctx, finish := s.begin(ctx, "withdraw")
	defer func() { finish(err) }()

	if err := s.RequireCapability(ctx, caller, CapabilityAdmin); err != nil {
		return 0, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.State(ctx)
		if err != nil {
			return err
		}
		amount = state.Balance
		state.Balance = 0
		return st.SaveState(ctx, state)
	})
	if err != nil {
		return 0, storeErr(err, "", "failed to withdraw balance")
	}

	s.metrics.AddFeesWithdrawn(uint64(amount))
	s.logAudit(ctx, auditBalanceWithdrawn,
		"amount", strconv.FormatUint(uint64(amount), 10),
		"recipient", s.admin.String(),
	)
	return amount, nil
}

func (s *Admin) Balance(ctx context.Context, caller id.Identity) (balance models.Amount, err error) {
	ctx, finish := s.begin(ctx, "balance")
	defer func() { finish(err) }()

	if err := s.RequireCapability(ctx, caller, CapabilityAdmin); err != nil {
		return 0, err
	}
	err = s.tx.View(ctx, func(ctx context.Context, r store.Reader) error {
		state, err := r.State(ctx)
		if err != nil {
			return err
		}
		balance = state.Balance
		return nil
	})
	if err != nil {
		return 0, storeErr(err, "", "failed to read balance")
	}
	return balance, nil
}

// ListTlds returns the catalog in the order entries were added. It needs no
// capability.
func (s *Admin) ListTlds(ctx context.Context) (tlds []*models.TldEntry, err error) {
	ctx, finish := s.begin(ctx, "list_tlds")
	defer func() { finish(err) }()

	err = s.tx.View(ctx, func(ctx context.Context, r store.Reader) error {
		found, err := r.ListTlds(ctx)
		if err != nil {
			return err
		}
		tlds = found
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "", "failed to list tlds")
	}
	return tlds, nil
}
