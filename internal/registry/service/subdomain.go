package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"nameledger/internal/registry/events"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/requestcontext"
)

// Subdomains manages sub-records under an owned parent record.
type Subdomains struct {
	core
}

func NewSubdomains(tx store.Tx, opts ...Option) (*Subdomains, error) {
	c, err := newCore(tx, opts)
	if err != nil {
		return nil, err
	}
	return &Subdomains{core: c}, nil
}

func validateSubName(subName string) error {
	return models.CheckLabel("subdomain name", subName)
}

// CreateSubdomain adds sub.name.tld under parentID. A deactivated entry with
// the same name is replaced in place and keeps its list position.
func (s *Subdomains) CreateSubdomain(ctx context.Context, caller id.Identity, parentID id.RecordID, req *models.CreateSubdomainRequest) (sub *models.SubRecord, err error) {
	ctx, finish := s.begin(ctx, "create_subdomain",
		attribute.String("parent_id", parentID.String()),
		attribute.String("sub_name", req.SubName),
	)
	defer func() { finish(err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		parent, err := st.FindRecord(ctx, parentID)
		if err != nil {
			return err
		}
		if err := checkParentWritable(parent, caller, now); err != nil {
			return err
		}

		sub = &models.SubRecord{
			ParentID:  parentID,
			FullName:  models.FullName(req.SubName, parent.Name, parent.TLD),
			Metadata:  req.Metadata,
			Owner:     caller,
			Active:    true,
			CreatedAt: now,
		}
		existing, err := st.FindSubRecord(ctx, parentID, sub.Key())
		switch {
		case errors.Is(err, store.ErrNotFound):
			return st.CreateSubRecord(ctx, sub)
		case err != nil:
			return err
		case existing.Active:
			return dErrors.New(dErrors.CodeAlreadyExists, "subdomain already exists")
		default:
			return st.UpdateSubRecord(ctx, sub)
		}
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "subdomain already exists")
		}
		return nil, storeErr(err, "parent record not found", "failed to create subdomain")
	}

	s.logAudit(ctx, auditSubdomainCreated,
		"parent_id", parentID.String(),
		"full_name", sub.FullName,
		"owner", sub.Owner.String(),
	)
	s.publish(ctx, events.SubdomainCreated(ctx, sub))
	return sub, nil
}

func checkParentWritable(parent *models.Record, caller id.Identity, now time.Time) error {
	if parent.Owner != caller {
		return dErrors.New(dErrors.CodeNotOwner, "caller does not own the parent record")
	}
	if !parent.Active {
		return dErrors.New(dErrors.CodeInactive, "parent record is inactive")
	}
	if parent.IsExpired(now) {
		return dErrors.New(dErrors.CodeExpired, "parent record has expired")
	}
	return nil
}

// ListSubdomains returns every sub-record of parentID, inactive ones
// included, in creation order.
func (s *Subdomains) ListSubdomains(ctx context.Context, parentID id.RecordID) (subs []*models.SubRecord, err error) {
	ctx, finish := s.begin(ctx, "list_subdomains", attribute.String("parent_id", parentID.String()))
	defer func() { finish(err) }()

	err = s.tx.View(ctx, func(ctx context.Context, r store.Reader) error {
		if _, err := r.FindRecord(ctx, parentID); err != nil {
			return err
		}
		found, err := r.ListSubRecords(ctx, parentID)
		if err != nil {
			return err
		}
		subs = found
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "parent record not found", "failed to list subdomains")
	}
	return subs, nil
}

// DeactivateSubdomain switches a sub-record off. Deactivation is permanent for
// that entry; the name can be created again as a fresh entry.
func (s *Subdomains) DeactivateSubdomain(ctx context.Context, caller id.Identity, parentID id.RecordID, subName string) (err error) {
	ctx, finish := s.begin(ctx, "deactivate_subdomain",
		attribute.String("parent_id", parentID.String()),
		attribute.String("sub_name", subName),
	)
	defer func() { finish(err) }()

	if err := requireCaller(caller); err != nil {
		return err
	}

	var sub *models.SubRecord
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		parent, err := st.FindRecord(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.Owner != caller {
			return dErrors.New(dErrors.CodeNotOwner, "caller does not own the parent record")
		}
		found, err := st.FindSubRecord(ctx, parentID, models.SubHash(models.FullName(subName, parent.Name, parent.TLD)))
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subdomain not found")
		}
		if err != nil {
			return err
		}
		if !found.Active {
			return dErrors.New(dErrors.CodeAlreadyInactive, "subdomain is already inactive")
		}
		found.Active = false
		sub = found
		return st.UpdateSubRecord(ctx, found)
	})
	if err != nil {
		return storeErr(err, "parent record not found", "failed to deactivate subdomain")
	}

	s.logAudit(ctx, auditSubdomainRemoved,
		"parent_id", parentID.String(),
		"full_name", sub.FullName,
	)
	s.publish(ctx, events.SubdomainRemoved(ctx, sub))
	return nil
}
