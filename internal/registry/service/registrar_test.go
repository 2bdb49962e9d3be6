package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/mock/gomock"

	"nameledger/internal/registry/events"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/pricing"
	"nameledger/internal/registry/service/mocks"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

// =============================================================================
// Register
// =============================================================================

func (s *ServiceSuite) TestRegister() {
	published := s.captureEvents()

	receipt, err := s.registrar.Register(s.ctx, alice, &models.RegisterRequest{
		Name: "alice", TLD: "com", TermYears: 1, Metadata: "ipfs://alice", Payment: aliceFee + 500,
	})
	s.Require().NoError(err)

	s.Run("receipt reports fee and refund", func() {
		s.Equal(id.RecordID(1), receipt.RecordID)
		s.Equal(aliceFee, receipt.Fee)
		s.Equal(models.Amount(500), receipt.Refund)
		s.Equal(t0.Add(models.TermYear), receipt.ExpiresAt)
	})

	s.Run("record is stored", func() {
		rec, err := s.registrar.GetRecord(s.ctx, receipt.RecordID)
		s.Require().NoError(err)
		s.Equal(alice, rec.Owner)
		s.True(rec.Active)
		s.Equal("ipfs://alice", rec.Metadata)
		s.Equal(t0, rec.CreatedAt)
	})

	s.Run("balance grows by the fee only", func() {
		st := s.state()
		s.Equal(aliceFee, st.Balance)
		s.Equal(id.RecordID(2), st.NextRecordID)
	})

	s.Run("emits Registered", func() {
		s.Require().Len(*published, 1)
		e := (*published)[0]
		s.Equal(events.TypeRegistered, e.Type)
		s.Equal(receipt.RecordID, e.RecordID)
		s.Equal("alice", e.Name)
		s.Equal("com", e.TLD)
		s.Equal(alice, e.Owner)
	})
}

func (s *ServiceSuite) TestRegister_SingleRegistrationPerKey() {
	s.allowEvents()
	s.register(alice, "alice")

	_, err := s.registrar.Register(s.ctx, bob, &models.RegisterRequest{
		Name: "alice", TLD: "com", TermYears: 1, Payment: aliceFee,
	})
	s.requireCode(err, dErrors.CodeNameTaken)

	available, err := s.registrar.IsAvailable(s.ctx, "alice", "com")
	s.Require().NoError(err)
	s.False(available)

	s.Run("same label under another tld is a different key", func() {
		_, err := s.registrar.Register(s.ctx, bob, &models.RegisterRequest{
			Name: "alice", TLD: "net", TermYears: 1, Payment: aliceFee,
		})
		s.NoError(err)
	})

	rec, err := s.registrar.Resolve(s.ctx, "alice", "com")
	s.Require().NoError(err)
	s.Equal(alice, rec.Owner)
}

func (s *ServiceSuite) TestRegister_FailuresLeaveLedgerUntouched() {
	// No Publish expectation: any notification fails the test.
	before := s.state()

	cases := []struct {
		name   string
		caller id.Identity
		req    models.RegisterRequest
		code   dErrors.Code
	}{
		{"null caller", id.NullIdentity, models.RegisterRequest{Name: "alice", TLD: "com", TermYears: 1, Payment: aliceFee}, dErrors.CodeUnauthenticated},
		{"empty name", alice, models.RegisterRequest{TLD: "com", TermYears: 1, Payment: aliceFee}, dErrors.CodeInvalidInput},
		{"empty name beats unknown tld", alice, models.RegisterRequest{TLD: "xyz", TermYears: 0}, dErrors.CodeInvalidInput},
		{"unknown tld", alice, models.RegisterRequest{Name: "alice", TLD: "xyz", TermYears: 1, Payment: aliceFee}, dErrors.CodeUnsupportedTld},
		{"unknown tld beats bad term", alice, models.RegisterRequest{Name: "alice", TLD: "xyz", TermYears: 0}, dErrors.CodeUnsupportedTld},
		{"empty tld", alice, models.RegisterRequest{Name: "alice", TermYears: 1, Payment: aliceFee}, dErrors.CodeUnsupportedTld},
		{"dotted name", alice, models.RegisterRequest{Name: "x.b", TLD: "com", TermYears: 1, Payment: aliceFee}, dErrors.CodeInvalidInput},
		{"NUL in name", alice, models.RegisterRequest{Name: "al\x00ce", TLD: "com", TermYears: 1, Payment: aliceFee}, dErrors.CodeInvalidInput},
		{"invalid UTF-8 name", alice, models.RegisterRequest{Name: "\xffalice", TLD: "com", TermYears: 1, Payment: aliceFee}, dErrors.CodeInvalidInput},
		{"NUL in metadata", alice, models.RegisterRequest{Name: "alice", TLD: "com", TermYears: 1, Metadata: "a\x00", Payment: aliceFee}, dErrors.CodeInvalidInput},
		{"zero term", alice, models.RegisterRequest{Name: "alice", TLD: "com", Payment: aliceFee}, dErrors.CodeInvalidTerm},
		{"eleven years", alice, models.RegisterRequest{Name: "alice", TLD: "com", TermYears: 11, Payment: aliceFee * 10}, dErrors.CodeInvalidTerm},
		{"one unit short", alice, models.RegisterRequest{Name: "alice", TLD: "com", TermYears: 1, Payment: aliceFee - 1}, dErrors.CodeInsufficientPayment},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := tc.req
			_, err := s.registrar.Register(s.ctx, tc.caller, &req)
			s.requireCode(err, tc.code)
		})
	}

	s.Equal(before, s.state())
	available, err := s.registrar.IsAvailable(s.ctx, "alice", "com")
	s.Require().NoError(err)
	s.True(available)
}

func (s *ServiceSuite) TestRegister_KeysCannotCollideAcrossLabelSplits() {
	s.allowEvents()

	// ("x.b", "com") and ("x", "b.com") both spell x.b.com; neither split may
	// enter the ledger, so one key cannot answer for the other.
	s.requireCode(s.admin.AddTld(s.ctx, admin, &models.AddTldRequest{TLD: "b.com", FeeMultiplier: 100}), dErrors.CodeInvalidInput)
	_, err := s.registrar.Register(s.ctx, alice, &models.RegisterRequest{
		Name: "x.b", TLD: "com", TermYears: 1, Payment: aliceFee * 10,
	})
	s.requireCode(err, dErrors.CodeInvalidInput)

	_, err = s.registrar.IsAvailable(s.ctx, "x.b", "com")
	s.requireCode(err, dErrors.CodeInvalidInput)
	_, err = s.registrar.IsAvailable(s.ctx, "x", "b.com")
	s.requireCode(err, dErrors.CodeUnsupportedTld)
	_, err = s.registrar.Resolve(s.ctx, "x", "b.com")
	s.requireCode(err, dErrors.CodeNotFound)

	s.register(alice, "x")
	rec, err := s.registrar.Resolve(s.ctx, "x", "com")
	s.Require().NoError(err)
	s.Equal("x", rec.Name)
}

func (s *ServiceSuite) TestIsAvailable_UnsupportedTld() {
	for _, tld := range []string{"", "xyz", "b.com", "c\x00m"} {
		s.Run("tld "+strconv.Quote(tld), func() {
			available, err := s.registrar.IsAvailable(s.ctx, "alice", tld)
			s.requireCode(err, dErrors.CodeUnsupportedTld)
			s.False(available)
		})
	}

	available, err := s.registrar.IsAvailable(s.ctx, "alice", "net")
	s.Require().NoError(err)
	s.True(available)
}

func (s *ServiceSuite) TestRegister_RefundsOverpayment() {
	s.allowEvents()
	var collected models.Amount
	for i, payment := range []models.Amount{aliceFee, aliceFee + 1, 3 * aliceFee} {
		name := []string{"carol", "daves", "erins"}[i]
		receipt, err := s.registrar.Register(s.ctx, alice, &models.RegisterRequest{
			Name: name, TLD: "com", TermYears: 1, Payment: payment,
		})
		s.Require().NoError(err)
		s.Equal(payment, receipt.Fee+receipt.Refund)
		collected += receipt.Fee
	}
	s.Equal(collected, s.state().Balance)
}

func (s *ServiceSuite) TestRegister_ExactPaymentHasNoRefund() {
	s.allowEvents()
	receipt, err := s.registrar.Register(s.ctx, alice, &models.RegisterRequest{
		Name: "alice", TLD: "com", TermYears: 10, Payment: 11_000_000,
	})
	s.Require().NoError(err)
	s.Equal(models.Amount(11_000_000), receipt.Fee)
	s.Zero(receipt.Refund)
	s.Equal(t0.Add(10*models.TermYear), receipt.ExpiresAt)
}

func (s *ServiceSuite) TestRegister_PublishFailureDoesNotFailOperation() {
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	receipt, err := s.registrar.Register(s.ctx, alice, &models.RegisterRequest{
		Name: "alice", TLD: "com", TermYears: 1, Payment: aliceFee,
	})
	s.Require().NoError(err)
	s.Equal(id.RecordID(1), receipt.RecordID)
}

func (s *ServiceSuite) TestRegister_CancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.registrar.Register(ctx, alice, &models.RegisterRequest{
		Name: "alice", TLD: "com", TermYears: 1, Payment: aliceFee,
	})
	s.requireCode(err, dErrors.CodeTimeout)
}

// =============================================================================
// Renew
// =============================================================================

func (s *ServiceSuite) TestRenew() {
	published := s.captureEvents()
	recordID := s.register(alice, "alice").RecordID

	s.Run("extends from current expiry", func() {
		receipt, err := s.registrar.Renew(s.ctx, alice, recordID, &models.RenewRequest{TermYears: 2, Payment: 5_000_000})
		s.Require().NoError(err)
		// 10000 * 100 * 200 * 2 * 90 / 10000
		s.Equal(models.Amount(3_600_000), receipt.Fee)
		s.Equal(models.Amount(1_400_000), receipt.Refund)
		s.Equal(t0.Add(3*models.TermYear), receipt.ExpiresAt)

		last := (*published)[len(*published)-1]
		s.Equal(events.TypeRenewed, last.Type)
		s.Require().NotNil(last.NewExpiry)
		s.Equal(receipt.ExpiresAt, *last.NewExpiry)
	})

	s.Run("renewals accumulate", func() {
		receipt, err := s.registrar.Renew(s.ctx, alice, recordID, &models.RenewRequest{TermYears: 1, Payment: aliceFee})
		s.Require().NoError(err)
		s.Equal(t0.Add(4*models.TermYear), receipt.ExpiresAt)
	})

	s.Equal(aliceFee+3_600_000+aliceFee, s.state().Balance)
}

func (s *ServiceSuite) TestRenew_Failures() {
	s.allowEvents()
	recordID := s.register(alice, "alice").RecordID
	rec, err := s.registrar.GetRecord(s.ctx, recordID)
	s.Require().NoError(err)
	balance := s.state().Balance

	cases := []struct {
		name     string
		caller   id.Identity
		recordID id.RecordID
		req      models.RenewRequest
		code     dErrors.Code
	}{
		{"unknown record", alice, 99, models.RenewRequest{TermYears: 1, Payment: aliceFee}, dErrors.CodeNotFound},
		{"not the owner", bob, recordID, models.RenewRequest{TermYears: 1, Payment: aliceFee}, dErrors.CodeNotOwner},
		{"not the owner beats bad term", bob, recordID, models.RenewRequest{TermYears: 0}, dErrors.CodeNotOwner},
		{"bad term", alice, recordID, models.RenewRequest{TermYears: 11, Payment: aliceFee * 10}, dErrors.CodeInvalidTerm},
		{"underpaid", alice, recordID, models.RenewRequest{TermYears: 1, Payment: aliceFee - 1}, dErrors.CodeInsufficientPayment},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := tc.req
			_, err := s.registrar.Renew(s.ctx, tc.caller, tc.recordID, &req)
			s.requireCode(err, tc.code)
		})
	}

	after, err := s.registrar.GetRecord(s.ctx, recordID)
	s.Require().NoError(err)
	s.Equal(rec.ExpiresAt, after.ExpiresAt)
	s.Equal(balance, s.state().Balance)
}

func (s *ServiceSuite) TestRenew_InactiveRecord() {
	s.allowEvents()
	recordID := s.register(alice, "alice").RecordID
	s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, st store.Store) error {
		rec, err := st.FindRecord(ctx, recordID)
		if err != nil {
			return err
		}
		rec.Active = false
		return st.UpdateRecord(ctx, rec)
	}))

	_, err := s.registrar.Renew(s.ctx, alice, recordID, &models.RenewRequest{TermYears: 1, Payment: aliceFee})
	s.requireCode(err, dErrors.CodeInactive)
}

func (s *ServiceSuite) TestRenew_ExpiredRecordStillRenewable() {
	s.allowEvents()
	recordID := s.register(alice, "alice").RecordID

	later := s.at(t0.Add(2 * models.TermYear))
	receipt, err := s.registrar.Renew(later, alice, recordID, &models.RenewRequest{TermYears: 1, Payment: aliceFee})
	s.Require().NoError(err)
	s.Equal(t0.Add(2*models.TermYear), receipt.ExpiresAt)
}

// =============================================================================
// Transfer
// =============================================================================

func (s *ServiceSuite) TestTransfer() {
	published := s.captureEvents()
	recordID := s.register(alice, "alice").RecordID

	s.Require().NoError(s.registrar.Transfer(s.ctx, alice, recordID, bob))

	rec, err := s.registrar.GetRecord(s.ctx, recordID)
	s.Require().NoError(err)
	s.Equal(bob, rec.Owner)

	last := (*published)[len(*published)-1]
	s.Equal(events.TypeOwnershipTransferred, last.Type)
	s.Equal(alice, last.PreviousOwner)
	s.Equal(bob, last.Owner)

	s.Run("previous owner can no longer act", func() {
		err := s.registrar.Transfer(s.ctx, alice, recordID, alice)
		s.requireCode(err, dErrors.CodeNotOwner)
	})
}

func (s *ServiceSuite) TestTransfer_Failures() {
	s.allowEvents()
	recordID := s.register(alice, "alice").RecordID

	s.Run("unknown record", func() {
		s.requireCode(s.registrar.Transfer(s.ctx, alice, 42, bob), dErrors.CodeNotFound)
	})
	s.Run("null new owner", func() {
		s.requireCode(s.registrar.Transfer(s.ctx, alice, recordID, id.NullIdentity), dErrors.CodeInvalidInput)
	})
	s.Run("not the owner", func() {
		s.requireCode(s.registrar.Transfer(s.ctx, bob, recordID, bob), dErrors.CodeNotOwner)
	})
	s.Run("expired at exactly the expiry instant", func() {
		expired := s.at(t0.Add(models.TermYear))
		s.requireCode(s.registrar.Transfer(expired, alice, recordID, bob), dErrors.CodeExpired)
	})
	s.Run("one nanosecond before expiry is fine", func() {
		almost := s.at(t0.Add(models.TermYear - 1))
		s.Require().NoError(s.registrar.Transfer(almost, alice, recordID, bob))
		s.Require().NoError(s.registrar.Transfer(almost, bob, recordID, alice))
	})

	rec, err := s.registrar.GetRecord(s.ctx, recordID)
	s.Require().NoError(err)
	s.Equal(alice, rec.Owner)
}

// =============================================================================
// Reads
// =============================================================================

func (s *ServiceSuite) TestExpiredNamesAreNotReclaimed() {
	s.allowEvents()
	s.register(alice, "alice")

	later := s.at(t0.Add(5 * models.TermYear))
	available, err := s.registrar.IsAvailable(later, "alice", "com")
	s.Require().NoError(err)
	s.False(available)

	_, err = s.registrar.Register(later, bob, &models.RegisterRequest{
		Name: "alice", TLD: "com", TermYears: 1, Payment: aliceFee,
	})
	s.requireCode(err, dErrors.CodeNameTaken)
}

func (s *ServiceSuite) TestGetRecordAndResolve_NotFound() {
	_, err := s.registrar.GetRecord(s.ctx, 7)
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.registrar.Resolve(s.ctx, "ghost", "com")
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.registrar.IsAvailable(s.ctx, "", "com")
	s.requireCode(err, dErrors.CodeInvalidInput)
}

func (s *ServiceSuite) TestQuote() {
	fee, err := s.registrar.Quote(s.ctx, "alice", "com", 1)
	s.Require().NoError(err)
	s.Equal(aliceFee, fee)

	expected, err := pricing.ComputeFee(baseFee, "ab", &models.TldEntry{TLD: "net", FeeMultiplier: 150}, 4)
	s.Require().NoError(err)
	fee, err = s.registrar.Quote(s.ctx, "ab", "net", 4)
	s.Require().NoError(err)
	s.Equal(expected, fee)

	_, err = s.registrar.Quote(s.ctx, "alice", "org", 1)
	s.requireCode(err, dErrors.CodeUnsupportedTld)
	_, err = s.registrar.Quote(s.ctx, "alice", "com", 0)
	s.requireCode(err, dErrors.CodeInvalidTerm)
	_, err = s.registrar.Quote(s.ctx, "x.b", "com", 1)
	s.requireCode(err, dErrors.CodeInvalidInput)
}

// =============================================================================
// Resolve cache
// =============================================================================

func (s *ServiceSuite) TestResolve_Cache() {
	s.allowEvents()
	cache := mocks.NewMockCache(s.ctrl)
	registrar, err := NewRegistrar(s.ledger, WithCache(cache), WithPublisher(s.publisher))
	s.Require().NoError(err)

	hash := models.NameHash("alice", "com")
	recordID := s.register(alice, "alice").RecordID

	s.Run("miss reads the store and fills at the observed generation", func() {
		cache.EXPECT().GetRecord(gomock.Any(), hash).Return(nil, uint64(4), store.ErrNotFound)
		cache.EXPECT().SetRecord(gomock.Any(), gomock.Any(), uint64(4)).DoAndReturn(
			func(_ context.Context, rec *models.Record, _ uint64) error {
				s.Equal(recordID, rec.ID)
				return nil
			})

		rec, err := registrar.Resolve(s.ctx, "alice", "com")
		s.Require().NoError(err)
		s.Equal(alice, rec.Owner)
	})

	s.Run("hit skips the store", func() {
		cached := &models.Record{ID: recordID, Name: "alice", TLD: "com", Owner: "cached"}
		cache.EXPECT().GetRecord(gomock.Any(), hash).Return(cached, uint64(4), nil)

		rec, err := registrar.Resolve(s.ctx, "alice", "com")
		s.Require().NoError(err)
		s.Equal(id.Identity("cached"), rec.Owner)
	})

	s.Run("cache failure falls back to the store without a fill", func() {
		cache.EXPECT().GetRecord(gomock.Any(), hash).Return(nil, uint64(0), errors.New("redis down"))

		rec, err := registrar.Resolve(s.ctx, "alice", "com")
		s.Require().NoError(err)
		s.Equal(alice, rec.Owner)
	})

	s.Run("transfer invalidates", func() {
		cache.EXPECT().Invalidate(gomock.Any(), hash).Return(nil)
		s.Require().NoError(registrar.Transfer(s.ctx, alice, recordID, bob))
	})

	s.Run("renew invalidates even when the cache errors", func() {
		cache.EXPECT().Invalidate(gomock.Any(), hash).Return(errors.New("redis down"))
		_, err := registrar.Renew(s.ctx, bob, recordID, &models.RenewRequest{TermYears: 1, Payment: aliceFee})
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestResolve_FillRacingTransferIsDropped() {
	s.allowEvents()
	recordID := s.register(alice, "alice").RecordID

	cache := newGenerationCache()
	tx := &hookedView{Tx: s.ledger}
	registrar, err := NewRegistrar(tx, WithCache(cache), WithPublisher(s.publisher))
	s.Require().NoError(err)

	// The transfer commits after Resolve has read the store but before it
	// fills the cache.
	tx.after = func() {
		s.Require().NoError(registrar.Transfer(s.ctx, alice, recordID, bob))
	}
	rec, err := registrar.Resolve(s.ctx, "alice", "com")
	s.Require().NoError(err)
	s.Equal(alice, rec.Owner, "the racing read predates the transfer")

	for range 2 {
		rec, err = registrar.Resolve(s.ctx, "alice", "com")
		s.Require().NoError(err)
		s.Equal(bob, rec.Owner)
	}
	s.Equal(1, cache.hits)
}

// generationCache is an in-memory Cache with the same generation rule as the
// Redis cache.
type generationCache struct {
	mu          sync.Mutex
	entries     map[string]models.Record
	generations map[string]uint64
	hits        int
}

func newGenerationCache() *generationCache {
	return &generationCache{
		entries:     map[string]models.Record{},
		generations: map[string]uint64{},
	}
}

func (c *generationCache) GetRecord(_ context.Context, nameHash string) (*models.Record, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generations[nameHash]
	rec, ok := c.entries[nameHash]
	if !ok {
		return nil, gen, store.ErrNotFound
	}
	c.hits++
	return &rec, gen, nil
}

func (c *generationCache) SetRecord(_ context.Context, rec *models.Record, generation uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	hash := models.NameHash(rec.Name, rec.TLD)
	if c.generations[hash] == generation {
		c.entries[hash] = *rec
	}
	return nil
}

func (c *generationCache) Invalidate(_ context.Context, nameHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[nameHash]++
	delete(c.entries, nameHash)
	return nil
}

// hookedView runs after once, right after the next View returns.
type hookedView struct {
	store.Tx
	after func()
}

func (h *hookedView) View(ctx context.Context, fn func(ctx context.Context, r store.Reader) error) error {
	err := h.Tx.View(ctx, fn)
	if after := h.after; after != nil {
		h.after = nil
		after()
	}
	return err
}
