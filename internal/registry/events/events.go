// Package events carries ledger notifications out of the service after a
// transaction commits. Delivery is fire-and-forget from the ledger's point of
// view: publish failures are logged and counted, never returned to callers of
// ledger operations.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nameledger/internal/registry/models"
	id "nameledger/pkg/domain"
	"nameledger/pkg/requestcontext"
)

type Type string

const (
	TypeRegistered           Type = "registered"
	TypeRenewed              Type = "renewed"
	TypeOwnershipTransferred Type = "ownership_transferred"
	TypeSubdomainCreated     Type = "subdomain_created"
	TypeSubdomainRemoved     Type = "subdomain_removed"
)

// Event is one ledger notification. Fields not relevant to Type are zero.
type Event struct {
	ID            string      `json:"id"`
	Type          Type        `json:"type"`
	RecordID      id.RecordID `json:"record_id"`
	Name          string      `json:"name,omitempty"`
	TLD           string      `json:"tld,omitempty"`
	FullName      string      `json:"full_name,omitempty"`
	Owner         id.Identity `json:"owner,omitempty"`
	PreviousOwner id.Identity `json:"previous_owner,omitempty"`
	NewExpiry     *time.Time  `json:"new_expiry,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
	RequestID     string      `json:"request_id,omitempty"`
}

// Publisher receives committed notifications.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func newEvent(ctx context.Context, t Type, recordID id.RecordID) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		RecordID:   recordID,
		OccurredAt: requestcontext.Now(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}
}

func Registered(ctx context.Context, rec *models.Record) Event {
	e := newEvent(ctx, TypeRegistered, rec.ID)
	e.Name, e.TLD, e.Owner = rec.Name, rec.TLD, rec.Owner
	return e
}

func Renewed(ctx context.Context, rec *models.Record) Event {
	e := newEvent(ctx, TypeRenewed, rec.ID)
	expiry := rec.ExpiresAt
	e.NewExpiry = &expiry
	return e
}

func OwnershipTransferred(ctx context.Context, recordID id.RecordID, from, to id.Identity) Event {
	e := newEvent(ctx, TypeOwnershipTransferred, recordID)
	e.PreviousOwner, e.Owner = from, to
	return e
}

func SubdomainCreated(ctx context.Context, sub *models.SubRecord) Event {
	e := newEvent(ctx, TypeSubdomainCreated, sub.ParentID)
	e.FullName, e.Owner = sub.FullName, sub.Owner
	return e
}

func SubdomainRemoved(ctx context.Context, sub *models.SubRecord) Event {
	e := newEvent(ctx, TypeSubdomainRemoved, sub.ParentID)
	e.FullName = sub.FullName
	return e
}
