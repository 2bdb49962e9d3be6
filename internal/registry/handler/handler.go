package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks RegistrarService,SubdomainService,AdminService

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nameledger/internal/registry/models"
	id "nameledger/pkg/domain"
	dErrors "nameledger/pkg/domain-errors"
	"nameledger/pkg/platform/httputil"
	request "nameledger/pkg/platform/middleware/request"
	"nameledger/pkg/requestcontext"
)

// RegistrarService defines the record operations the handler exposes.
type RegistrarService interface {
	Register(ctx context.Context, caller id.Identity, req *models.RegisterRequest) (*models.Receipt, error)
	Renew(ctx context.Context, caller id.Identity, recordID id.RecordID, req *models.RenewRequest) (*models.Receipt, error)
	Transfer(ctx context.Context, caller id.Identity, recordID id.RecordID, newOwner id.Identity) error
	GetRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	Resolve(ctx context.Context, name, tld string) (*models.Record, error)
	IsAvailable(ctx context.Context, name, tld string) (bool, error)
	Quote(ctx context.Context, name, tld string, termYears int) (models.Amount, error)
}

type SubdomainService interface {
	CreateSubdomain(ctx context.Context, caller id.Identity, parentID id.RecordID, req *models.CreateSubdomainRequest) (*models.SubRecord, error)
	ListSubdomains(ctx context.Context, parentID id.RecordID) ([]*models.SubRecord, error)
	DeactivateSubdomain(ctx context.Context, caller id.Identity, parentID id.RecordID, subName string) error
}

type AdminService interface {
	AddTld(ctx context.Context, caller id.Identity, req *models.AddTldRequest) error
	UpdateTldMultiplier(ctx context.Context, caller id.Identity, tld string, req *models.UpdateTldRequest) error
	UpdateBaseFee(ctx context.Context, caller id.Identity, req *models.UpdateBaseFeeRequest) error
	Withdraw(ctx context.Context, caller id.Identity) (models.Amount, error)
	Balance(ctx context.Context, caller id.Identity) (models.Amount, error)
	ListTlds(ctx context.Context) ([]*models.TldEntry, error)
}

// Handler serves the /v1 ledger API.
type Handler struct {
	logger     *slog.Logger
	registrar  RegistrarService
	subdomains SubdomainService
	admin      AdminService
}

func New(registrar RegistrarService, subdomains SubdomainService, admin AdminService, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		registrar:  registrar,
		subdomains: subdomains,
		admin:      admin,
	}
}

// Register registers the ledger routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/records", h.handleRegister)
		r.Get("/records/{id}", h.handleGetRecord)
		r.Post("/records/{id}/renew", h.handleRenew)
		r.Post("/records/{id}/transfer", h.handleTransfer)
		r.Get("/records/{id}/subdomains", h.handleListSubdomains)
		r.Post("/records/{id}/subdomains", h.handleCreateSubdomain)
		r.Delete("/records/{id}/subdomains/{sub}", h.handleDeactivateSubdomain)

		r.Get("/resolve/{tld}/{name}", h.handleResolve)
		r.Get("/availability/{tld}/{name}", h.handleAvailability)
		r.Get("/quote/{tld}/{name}", h.handleQuote)
		r.Get("/tlds", h.handleListTlds)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/tlds", h.handleAddTld)
			r.Put("/tlds/{tld}", h.handleUpdateTld)
			r.Put("/base-fee", h.handleUpdateBaseFee)
			r.Post("/withdraw", h.handleWithdraw)
			r.Get("/balance", h.handleBalance)
		})
	})
}

// fail writes err and logs it at a level matching its class.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	attrs := []any{
		"operation", op,
		"request_id", request.GetRequestID(ctx),
		"error", err.Error(),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "ledger operation failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "ledger operation rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func recordIDParam(r *http.Request) (id.RecordID, error) {
	return id.ParseRecordID(chi.URLParam(r, "id"))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "register", err)
		return
	}
	receipt, err := h.registrar.Register(r.Context(), requestcontext.Caller(r.Context()), &req)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID, err := recordIDParam(r)
	if err != nil {
		h.fail(w, r, "get_record", err)
		return
	}
	rec, err := h.registrar.GetRecord(r.Context(), recordID)
	if err != nil {
		h.fail(w, r, "get_record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	recordID, err := recordIDParam(r)
	if err != nil {
		h.fail(w, r, "renew", err)
		return
	}
	var req models.RenewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "renew", err)
		return
	}
	receipt, err := h.registrar.Renew(r.Context(), requestcontext.Caller(r.Context()), recordID, &req)
	if err != nil {
		h.fail(w, r, "renew", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	recordID, err := recordIDParam(r)
	if err != nil {
		h.fail(w, r, "transfer", err)
		return
	}
	var req models.TransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "transfer", err)
		return
	}
	newOwner, err := id.ParseIdentity(req.NewOwner)
	if err != nil {
		h.fail(w, r, "transfer", err)
		return
	}
	if err := h.registrar.Transfer(r.Context(), requestcontext.Caller(r.Context()), recordID, newOwner); err != nil {
		h.fail(w, r, "transfer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	rec, err := h.registrar.Resolve(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "tld"))
	if err != nil {
		h.fail(w, r, "resolve", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ResolveResponse{Record: rec})
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	name, tld := chi.URLParam(r, "name"), chi.URLParam(r, "tld")
	available, err := h.registrar.IsAvailable(r.Context(), name, tld)
	if err != nil {
		h.fail(w, r, "is_available", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AvailabilityResponse{Name: name, TLD: tld, Available: available})
}

// handleQuote defaults to a one year term.
func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	name, tld := chi.URLParam(r, "name"), chi.URLParam(r, "tld")
	term := models.MinTermYears
	if raw := r.URL.Query().Get("term"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, "quote", dErrors.New(dErrors.CodeInvalidTerm, "term must be an integer"))
			return
		}
		term = parsed
	}
	fee, err := h.registrar.Quote(r.Context(), name, tld, term)
	if err != nil {
		h.fail(w, r, "quote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.QuoteResponse{Name: name, TLD: tld, TermYears: term, Fee: fee})
}

func (h *Handler) handleCreateSubdomain(w http.ResponseWriter, r *http.Request) {
	parentID, err := recordIDParam(r)
	if err != nil {
		h.fail(w, r, "create_subdomain", err)
		return
	}
	var req models.CreateSubdomainRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "create_subdomain", err)
		return
	}
	sub, err := h.subdomains.CreateSubdomain(r.Context(), requestcontext.Caller(r.Context()), parentID, &req)
	if err != nil {
		h.fail(w, r, "create_subdomain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleListSubdomains(w http.ResponseWriter, r *http.Request) {
	parentID, err := recordIDParam(r)
	if err != nil {
		h.fail(w, r, "list_subdomains", err)
		return
	}
	subs, err := h.subdomains.ListSubdomains(r.Context(), parentID)
	if err != nil {
		h.fail(w, r, "list_subdomains", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListSubdomainsResponse{Subdomains: subs})
}

func (h *Handler) handleDeactivateSubdomain(w http.ResponseWriter, r *http.Request) {
	parentID, err := recordIDParam(r)
	if err != nil {
		h.fail(w, r, "deactivate_subdomain", err)
		return
	}
	err = h.subdomains.DeactivateSubdomain(r.Context(), requestcontext.Caller(r.Context()), parentID, chi.URLParam(r, "sub"))
	if err != nil {
		h.fail(w, r, "deactivate_subdomain", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTlds(w http.ResponseWriter, r *http.Request) {
	tlds, err := h.admin.ListTlds(r.Context())
	if err != nil {
		h.fail(w, r, "list_tlds", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListTldsResponse{Tlds: tlds})
}

func (h *Handler) handleAddTld(w http.ResponseWriter, r *http.Request) {
	var req models.AddTldRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "add_tld", err)
		return
	}
	if err := h.admin.AddTld(r.Context(), requestcontext.Caller(r.Context()), &req); err != nil {
		h.fail(w, r, "add_tld", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleUpdateTld(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTldRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "update_tld_multiplier", err)
		return
	}
	err := h.admin.UpdateTldMultiplier(r.Context(), requestcontext.Caller(r.Context()), chi.URLParam(r, "tld"), &req)
	if err != nil {
		h.fail(w, r, "update_tld_multiplier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateBaseFee(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateBaseFeeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "update_base_fee", err)
		return
	}
	if err := h.admin.UpdateBaseFee(r.Context(), requestcontext.Caller(r.Context()), &req); err != nil {
		h.fail(w, r, "update_base_fee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := h.admin.Withdraw(r.Context(), requestcontext.Caller(r.Context()))
	if err != nil {
		h.fail(w, r, "withdraw", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AmountResponse{Amount: amount})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.admin.Balance(r.Context(), requestcontext.Caller(r.Context()))
	if err != nil {
		h.fail(w, r, "balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AmountResponse{Amount: balance})
}
