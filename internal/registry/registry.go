// Package registry assembles the ledger services and their HTTP handler over
// a chosen store.
package registry

import (
	"context"
	"errors"
	"log/slog"

	"nameledger/internal/registry/handler"
	"nameledger/internal/registry/metrics"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/service"
	"nameledger/internal/registry/store"
	id "nameledger/pkg/domain"
)

// Deps are the collaborators shared by every ledger service. Publisher, Cache
// and Metrics are optional.
type Deps struct {
	Store     store.Tx
	Admin     id.Identity
	Logger    *slog.Logger
	Publisher service.Publisher
	Cache     service.Cache
	Metrics   *metrics.Metrics
}

// Module is the wired ledger.
type Module struct {
	Registrar  *service.Registrar
	Subdomains *service.Subdomains
	Admin      *service.Admin
	Handler    *handler.Handler
}

func New(deps Deps) (*Module, error) {
	if deps.Store == nil {
		return nil, errors.New("registry: store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(deps.Metrics),
	}
	if deps.Publisher != nil {
		opts = append(opts, service.WithPublisher(deps.Publisher))
	}
	if deps.Cache != nil {
		opts = append(opts, service.WithCache(deps.Cache))
	}

	registrar, err := service.NewRegistrar(deps.Store, opts...)
	if err != nil {
		return nil, err
	}
	subdomains, err := service.NewSubdomains(deps.Store, opts...)
	if err != nil {
		return nil, err
	}
	admin, err := service.NewAdmin(deps.Store, deps.Admin, opts...)
	if err != nil {
		return nil, err
	}

	return &Module{
		Registrar:  registrar,
		Subdomains: subdomains,
		Admin:      admin,
		Handler:    handler.New(registrar, subdomains, admin, logger),
	}, nil
}

// Bootstrap seeds the catalog and base fee on first start. It reports whether
// anything was written.
func (m *Module) Bootstrap(ctx context.Context, baseFee models.Amount, tlds []models.TldEntry) (bool, error) {
	return m.Admin.Bootstrap(ctx, baseFee, tlds)
}
