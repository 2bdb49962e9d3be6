package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Publisher,Cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nameledger/internal/registry/events"
	"nameledger/internal/registry/metrics"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/store"
	"nameledger/pkg/attrs"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/requestcontext"
)

const tracerName = "nameledger/internal/registry/service"

// Publisher receives notifications after a transaction commits.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Cache is the optional Resolve read-through cache. Every Invalidate bumps a
// per-name generation. GetRecord returns store.ErrNotFound on a miss together
// with the generation it observed, and SetRecord stores the fill only while
// that generation is still current, so a fill read before a committed change
// cannot outlive the change's invalidation.
type Cache interface {
	GetRecord(ctx context.Context, nameHash string) (*models.Record, uint64, error)
	SetRecord(ctx context.Context, record *models.Record, generation uint64) error
	Invalidate(ctx context.Context, nameHash string) error
}

// core holds the collaborators shared by the registrar, subdomain and admin
// services.
type core struct {
	tx        store.Tx
	logger    *slog.Logger
	publisher Publisher
	cache     Cache
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*core)

func WithLogger(logger *slog.Logger) Option {
	return func(c *core) {
		c.logger = logger
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(c *core) {
		c.publisher = publisher
	}
}

// WithCache enables the Resolve cache. Only the registrar reads it; every
// service that changes a record invalidates it.
func WithCache(cache Cache) Option {
	return func(c *core) {
		c.cache = cache
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *core) {
		c.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *core) {
		c.tracer = tracer
	}
}

func newCore(tx store.Tx, opts []Option) (core, error) {
	if tx == nil {
		return core{}, errors.New("ledger store is required")
	}
	c := core{tx: tx}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c, nil
}

// begin opens a span and returns a finish func recording outcome metrics.
// Call as: ctx, finish := c.begin(ctx, "register"); defer func() { finish(err) }().
func (c *core) begin(ctx context.Context, operation string, kv ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "registry."+operation, trace.WithAttributes(kv...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		c.metrics.ObserveOperation(operation, outcome, start)
	}
}

// publish hands committed notifications to the publisher. Failures are
// logged; they never change the outcome of the operation.
func (c *core) publish(ctx context.Context, evs ...events.Event) {
	if c.publisher == nil {
		return
	}
	for _, e := range evs {
		if err := c.publisher.Publish(ctx, e); err != nil {
			c.logger.WarnContext(ctx, "failed to publish notification",
				"event_type", string(e.Type),
				"event_id", e.ID,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
}

func (c *core) invalidate(ctx context.Context, nameHash string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, nameHash); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate resolve cache",
			"name_hash", nameHash,
			"error", err,
		)
	}
}

func (c *core) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if client := requestcontext.Client(ctx); client != "" {
		attributes = append(attributes, "client", client)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	c.logger.InfoContext(ctx, event, args...)
	c.metrics.IncrementAuditEvent(event)
	if tld := attrs.String(attributes, "tld"); tld != "" && event == auditRecordRegistered {
		c.metrics.IncrementRecordsRegistered(tld)
	}
}

// Audit event names.
const (
	auditRecordRegistered   = "record_registered"
	auditRecordRenewed      = "record_renewed"
	auditRecordTransferred  = "record_transferred"
	auditSubdomainCreated   = "subdomain_created"
	auditSubdomainRemoved   = "subdomain_deactivated"
	auditTldAdded           = "tld_added"
	auditTldUpdated         = "tld_multiplier_updated"
	auditBaseFeeUpdated     = "base_fee_updated"
	auditBalanceWithdrawn   = "balance_withdrawn"
	auditLedgerBootstrapped = "ledger_bootstrapped"
	auditAdminDenied        = "admin_denied"
)

// storeErr translates a store failure into a domain error. Domain errors
// raised inside a transaction pass through unchanged.
func storeErr(err error, notFoundMsg, internalMsg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, store.ErrNotFound) && notFoundMsg != "" {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

// requireCaller rejects the null identity.
func requireCaller(caller id.Identity) error {
	if caller.IsNull() {
		return dErrors.New(dErrors.CodeUnauthenticated, "caller identity is required")
	}
	return nil
}

// addFee credits fee to the balance, refusing to wrap.
func addFee(state *models.LedgerState, fee models.Amount) error {
	sum := state.Balance + fee
	if sum < state.Balance {
		return dErrors.New(dErrors.CodeInternal, "fee balance overflow")
	}
	state.Balance = sum
	return nil
}
