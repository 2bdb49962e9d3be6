package service

import (
	"nameledger/internal/registry/models"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

func (s *ServiceSuite) TestAdmin_UnauthorizedLeavesStateUnchanged() {
	s.allowEvents()
	s.register(alice, "alice")
	before := s.state()
	tldsBefore, err := s.admin.ListTlds(s.ctx)
	s.Require().NoError(err)

	for _, caller := range []id.Identity{alice, id.NullIdentity} {
		s.requireCode(s.admin.AddTld(s.ctx, caller, &models.AddTldRequest{TLD: "org", FeeMultiplier: 100}), dErrors.CodeUnauthorized)
		s.requireCode(s.admin.UpdateTldMultiplier(s.ctx, caller, "com", &models.UpdateTldRequest{FeeMultiplier: 1}), dErrors.CodeUnauthorized)
		s.requireCode(s.admin.UpdateBaseFee(s.ctx, caller, &models.UpdateBaseFeeRequest{BaseFee: 1}), dErrors.CodeUnauthorized)
		_, err := s.admin.Withdraw(s.ctx, caller)
		s.requireCode(err, dErrors.CodeUnauthorized)
		_, err = s.admin.Balance(s.ctx, caller)
		s.requireCode(err, dErrors.CodeUnauthorized)
	}

	s.Equal(before, s.state())
	tldsAfter, err := s.admin.ListTlds(s.ctx)
	s.Require().NoError(err)
	s.Equal(tldsBefore, tldsAfter)
}

func (s *ServiceSuite) TestAddTld() {
	s.Require().NoError(s.admin.AddTld(s.ctx, admin, &models.AddTldRequest{TLD: "org", FeeMultiplier: 120}))

	tlds, err := s.admin.ListTlds(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tlds, 3)
	s.Equal("org", tlds[2].TLD)

	fee, err := s.registrar.Quote(s.ctx, "alice", "org", 1)
	s.Require().NoError(err)
	s.Equal(models.Amount(1_200_000), fee)

	s.Run("failures", func() {
		s.requireCode(s.admin.AddTld(s.ctx, admin, &models.AddTldRequest{TLD: "org", FeeMultiplier: 100}), dErrors.CodeDuplicate)
		s.requireCode(s.admin.AddTld(s.ctx, admin, &models.AddTldRequest{TLD: "", FeeMultiplier: 100}), dErrors.CodeInvalidInput)
		s.requireCode(s.admin.AddTld(s.ctx, admin, &models.AddTldRequest{TLD: "b.com", FeeMultiplier: 100}), dErrors.CodeInvalidInput)
		s.requireCode(s.admin.AddTld(s.ctx, admin, &models.AddTldRequest{TLD: "o\x00rg", FeeMultiplier: 100}), dErrors.CodeInvalidInput)
		s.requireCode(s.admin.AddTld(s.ctx, admin, &models.AddTldRequest{TLD: "io", FeeMultiplier: 0}), dErrors.CodeInvalidMultiplier)
	})
}

func (s *ServiceSuite) TestUpdateTldMultiplier() {
	s.allowEvents()
	s.register(alice, "alice")
	balance := s.state().Balance

	s.Require().NoError(s.admin.UpdateTldMultiplier(s.ctx, admin, "com", &models.UpdateTldRequest{FeeMultiplier: 400}))

	fee, err := s.registrar.Quote(s.ctx, "alice", "com", 1)
	s.Require().NoError(err)
	s.Equal(2*aliceFee, fee)
	s.Equal(balance, s.state().Balance, "no retroactive repricing")

	s.requireCode(s.admin.UpdateTldMultiplier(s.ctx, admin, "org", &models.UpdateTldRequest{FeeMultiplier: 100}), dErrors.CodeUnsupportedTld)
	s.requireCode(s.admin.UpdateTldMultiplier(s.ctx, admin, "c\x00m", &models.UpdateTldRequest{FeeMultiplier: 100}), dErrors.CodeUnsupportedTld)
	s.requireCode(s.admin.UpdateTldMultiplier(s.ctx, admin, "com", &models.UpdateTldRequest{FeeMultiplier: 0}), dErrors.CodeInvalidMultiplier)
}

func (s *ServiceSuite) TestUpdateBaseFee() {
	s.Require().NoError(s.admin.UpdateBaseFee(s.ctx, admin, &models.UpdateBaseFeeRequest{BaseFee: 2 * baseFee}))

	fee, err := s.registrar.Quote(s.ctx, "alice", "com", 1)
	s.Require().NoError(err)
	s.Equal(2*aliceFee, fee)
	s.Equal(2*baseFee, s.state().BaseFee)
}

func (s *ServiceSuite) TestWithdraw() {
	s.allowEvents()

	s.Run("empty balance withdraws zero", func() {
		amount, err := s.admin.Withdraw(s.ctx, admin)
		s.Require().NoError(err)
		s.Zero(amount)
	})

	s.register(alice, "alice")
	s.register(bob, "bobby")

	balance, err := s.admin.Balance(s.ctx, admin)
	s.Require().NoError(err)
	s.Equal(2*aliceFee, balance)

	amount, err := s.admin.Withdraw(s.ctx, admin)
	s.Require().NoError(err)
	s.Equal(2*aliceFee, amount)
	s.Zero(s.state().Balance)

	again, err := s.admin.Withdraw(s.ctx, admin)
	s.Require().NoError(err)
	s.Zero(again)
}

func (s *ServiceSuite) TestBootstrap_RunsOnce() {
	seeded, err := s.admin.Bootstrap(s.ctx, 1, []models.TldEntry{{TLD: "org", FeeMultiplier: 1}})
	s.Require().NoError(err)
	s.False(seeded)

	tlds, err := s.admin.ListTlds(s.ctx)
	s.Require().NoError(err)
	s.Len(tlds, 2)
	s.Equal(baseFee, s.state().BaseFee)
}

func (s *ServiceSuite) TestBootstrap_RejectsBadSeed() {
	fresh, err := NewAdmin(s.ledger, admin)
	s.Require().NoError(err)

	_, err = fresh.Bootstrap(s.ctx, 1, []models.TldEntry{{TLD: "org", FeeMultiplier: 0}})
	s.requireCode(err, dErrors.CodeInvalidMultiplier)
	_, err = fresh.Bootstrap(s.ctx, 1, []models.TldEntry{{TLD: "", FeeMultiplier: 10}})
	s.requireCode(err, dErrors.CodeInvalidInput)
	_, err = fresh.Bootstrap(s.ctx, 1, []models.TldEntry{{TLD: "co.uk", FeeMultiplier: 10}})
	s.requireCode(err, dErrors.CodeInvalidInput)
}
