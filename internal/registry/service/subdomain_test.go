package service

import (
	"context"

	"nameledger/internal/registry/events"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
)

func (s *ServiceSuite) createSub(parentID id.RecordID, subName string) *models.SubRecord {
	s.T().Helper()
	sub, err := s.subdomains.CreateSubdomain(s.ctx, alice, parentID, &models.CreateSubdomainRequest{SubName: subName})
	s.Require().NoError(err)
	return sub
}

func (s *ServiceSuite) TestCreateSubdomain() {
	published := s.captureEvents()
	parentID := s.register(alice, "alice").RecordID

	sub, err := s.subdomains.CreateSubdomain(s.ctx, alice, parentID, &models.CreateSubdomainRequest{
		SubName: "www", Metadata: "ipfs://www",
	})
	s.Require().NoError(err)
	s.Equal("www.alice.com", sub.FullName)
	s.Equal(alice, sub.Owner)
	s.True(sub.Active)
	s.Equal(parentID, sub.ParentID)

	last := (*published)[len(*published)-1]
	s.Equal(events.TypeSubdomainCreated, last.Type)
	s.Equal("www.alice.com", last.FullName)
	s.Equal(parentID, last.RecordID)

	s.Run("same name again is rejected", func() {
		_, err := s.subdomains.CreateSubdomain(s.ctx, alice, parentID, &models.CreateSubdomainRequest{SubName: "www"})
		s.requireCode(err, dErrors.CodeAlreadyExists)
	})
}

func (s *ServiceSuite) TestCreateSubdomain_Failures() {
	s.allowEvents()
	parentID := s.register(alice, "alice").RecordID

	cases := []struct {
		name     string
		ctx      context.Context
		caller   id.Identity
		parentID id.RecordID
		subName  string
		metadata string
		code     dErrors.Code
	}{
		{"null caller", s.ctx, id.NullIdentity, parentID, "www", "", dErrors.CodeUnauthenticated},
		{"empty label", s.ctx, alice, parentID, "", "", dErrors.CodeInvalidInput},
		{"dotted label", s.ctx, alice, parentID, "a.b", "", dErrors.CodeInvalidInput},
		{"NUL in label", s.ctx, alice, parentID, "w\x00w", "", dErrors.CodeInvalidInput},
		{"NUL in metadata", s.ctx, alice, parentID, "www", "ipfs://\x00", dErrors.CodeInvalidInput},
		{"invalid UTF-8 metadata", s.ctx, alice, parentID, "www", "\xff\xfe", dErrors.CodeInvalidInput},
		{"unknown parent", s.ctx, alice, 99, "www", "", dErrors.CodeNotFound},
		{"not the owner", s.ctx, bob, parentID, "www", "", dErrors.CodeNotOwner},
		{"expired parent", s.at(t0.Add(models.TermYear)), alice, parentID, "www", "", dErrors.CodeExpired},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.subdomains.CreateSubdomain(tc.ctx, tc.caller, tc.parentID, &models.CreateSubdomainRequest{SubName: tc.subName, Metadata: tc.metadata})
			s.requireCode(err, tc.code)
		})
	}

	subs, err := s.subdomains.ListSubdomains(s.ctx, parentID)
	s.Require().NoError(err)
	s.Empty(subs)
}

func (s *ServiceSuite) TestCreateSubdomain_InactiveParent() {
	s.allowEvents()
	parentID := s.register(alice, "alice").RecordID
	s.Require().NoError(s.ledger.RunInTx(s.ctx, func(ctx context.Context, st store.Store) error {
		rec, err := st.FindRecord(ctx, parentID)
		if err != nil {
			return err
		}
		rec.Active = false
		return st.UpdateRecord(ctx, rec)
	}))

	_, err := s.subdomains.CreateSubdomain(s.ctx, alice, parentID, &models.CreateSubdomainRequest{SubName: "www"})
	s.requireCode(err, dErrors.CodeInactive)
}

func (s *ServiceSuite) TestListSubdomains() {
	s.allowEvents()
	parentID := s.register(alice, "alice").RecordID
	other := s.register(bob, "bobby").RecordID

	for _, label := range []string{"www", "mail", "api"} {
		s.createSub(parentID, label)
	}

	subs, err := s.subdomains.ListSubdomains(s.ctx, parentID)
	s.Require().NoError(err)
	s.Require().Len(subs, 3)
	s.Equal("www.alice.com", subs[0].FullName)
	s.Equal("mail.alice.com", subs[1].FullName)
	s.Equal("api.alice.com", subs[2].FullName)

	s.Run("parents do not share lists", func() {
		subs, err := s.subdomains.ListSubdomains(s.ctx, other)
		s.Require().NoError(err)
		s.Empty(subs)
	})

	s.Run("unknown parent", func() {
		_, err := s.subdomains.ListSubdomains(s.ctx, 404)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestDeactivateSubdomain() {
	published := s.captureEvents()
	parentID := s.register(alice, "alice").RecordID
	s.createSub(parentID, "www")
	s.createSub(parentID, "mail")

	s.Require().NoError(s.subdomains.DeactivateSubdomain(s.ctx, alice, parentID, "www"))

	last := (*published)[len(*published)-1]
	s.Equal(events.TypeSubdomainRemoved, last.Type)
	s.Equal("www.alice.com", last.FullName)

	s.Run("second deactivation fails", func() {
		err := s.subdomains.DeactivateSubdomain(s.ctx, alice, parentID, "www")
		s.requireCode(err, dErrors.CodeAlreadyInactive)
	})

	s.Run("failures", func() {
		s.requireCode(s.subdomains.DeactivateSubdomain(s.ctx, alice, 99, "www"), dErrors.CodeNotFound)
		s.requireCode(s.subdomains.DeactivateSubdomain(s.ctx, bob, parentID, "mail"), dErrors.CodeNotOwner)
		s.requireCode(s.subdomains.DeactivateSubdomain(s.ctx, alice, parentID, "ftp"), dErrors.CodeNotFound)
	})

	s.Run("deactivated entries stay listed", func() {
		subs, err := s.subdomains.ListSubdomains(s.ctx, parentID)
		s.Require().NoError(err)
		s.Require().Len(subs, 2)
		s.False(subs[0].Active)
		s.True(subs[1].Active)
	})

	s.Run("an unknown name never creates an entry", func() {
		subs, err := s.subdomains.ListSubdomains(s.ctx, parentID)
		s.Require().NoError(err)
		for _, sub := range subs {
			s.NotEqual("ftp.alice.com", sub.FullName)
		}
	})
}

func (s *ServiceSuite) TestRecreateAfterDeactivation() {
	s.allowEvents()
	parentID := s.register(alice, "alice").RecordID
	s.createSub(parentID, "www")
	s.createSub(parentID, "mail")
	s.Require().NoError(s.subdomains.DeactivateSubdomain(s.ctx, alice, parentID, "www"))

	sub, err := s.subdomains.CreateSubdomain(s.ctx, alice, parentID, &models.CreateSubdomainRequest{
		SubName: "www", Metadata: "v2",
	})
	s.Require().NoError(err)
	s.True(sub.Active)

	subs, err := s.subdomains.ListSubdomains(s.ctx, parentID)
	s.Require().NoError(err)
	s.Require().Len(subs, 2, "re-creation must not duplicate the list entry")
	s.Equal("www.alice.com", subs[0].FullName)
	s.True(subs[0].Active)
	s.Equal("v2", subs[0].Metadata)
}

func (s *ServiceSuite) TestSubdomainOwnerFollowsCaller() {
	s.allowEvents()
	parentID := s.register(alice, "alice").RecordID
	s.Require().NoError(s.registrar.Transfer(s.ctx, alice, parentID, bob))

	_, err := s.subdomains.CreateSubdomain(s.ctx, alice, parentID, &models.CreateSubdomainRequest{SubName: "www"})
	s.requireCode(err, dErrors.CodeNotOwner)

	sub, err := s.subdomains.CreateSubdomain(s.ctx, bob, parentID, &models.CreateSubdomainRequest{SubName: "www"})
	s.Require().NoError(err)
	s.Equal(bob, sub.Owner)
}
