package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes every notification as a structured log line.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	attrs := []any{
		"event_id", e.ID,
		"event_type", string(e.Type),
		"record_id", e.RecordID.String(),
		"log_type", "notification",
	}
	if e.Name != "" {
		attrs = append(attrs, "name", e.Name, "tld", e.TLD)
	}
	if e.FullName != "" {
		attrs = append(attrs, "full_name", e.FullName)
	}
	if !e.Owner.IsNull() {
		attrs = append(attrs, "owner", e.Owner.String())
	}
	if !e.PreviousOwner.IsNull() {
		attrs = append(attrs, "previous_owner", e.PreviousOwner.String())
	}
	if e.NewExpiry != nil {
		attrs = append(attrs, "new_expiry", e.NewExpiry.UTC())
	}
	if e.RequestID != "" {
		attrs = append(attrs, "request_id", e.RequestID)
	}
	p.logger.InfoContext(ctx, string(e.Type), attrs...)
	return nil
}

// Fanout publishes to every publisher and returns the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
