package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "nameledger/internal/jwt_token"
	"nameledger/internal/platform/metrics"
	"nameledger/internal/registry/handler"
	"nameledger/internal/registry/models"
	"nameledger/internal/registry/service"
	"nameledger/internal/registry/store/memory"
	request "nameledger/pkg/platform/middleware/request"
	"nameledger/pkg/testutil"
)

const (
	signingKey = "router-test-signing-key-0123456789"
	issuer     = "nameledger-test"
)

type fixture struct {
	router http.Handler
	tokens *jwttoken.JWTService
	reg    *prometheus.Registry
}

func newFixture(t *testing.T, checks map[string]HealthCheck, devHeader bool) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := memory.New()

	registrar, err := service.NewRegistrar(ledger, service.WithLogger(logger))
	require.NoError(t, err)
	subdomains, err := service.NewSubdomains(ledger, service.WithLogger(logger))
	require.NoError(t, err)
	admin, err := service.NewAdmin(ledger, "root", service.WithLogger(logger))
	require.NoError(t, err)
	_, err = admin.Bootstrap(context.Background(), 10_000, []models.TldEntry{{TLD: "com", FeeMultiplier: 200}})
	require.NoError(t, err)

	tokens := jwttoken.NewJWTService(signingKey, issuer)
	reg := prometheus.NewRegistry()
	router := NewRouter(Config{
		Logger:            logger,
		Handler:           handler.New(registrar, subdomains, admin, logger),
		Validator:         jwttoken.NewJWTServiceAdapter(tokens),
		DevIdentityHeader: devHeader,
		RequestTimeout:    5 * time.Second,
		HTTPMetrics:       metrics.New(reg),
		Gatherer:          reg,
		Checks:            checks,
	})
	return fixture{router: router, tokens: tokens, reg: reg}
}

func TestRouter_BearerTokenRegistersForCaller(t *testing.T) {
	f := newFixture(t, nil, false)
	token, err := f.tokens.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/v1/records",
		models.RegisterRequest{Name: "alice", TLD: "com", TermYears: 1, Payment: 2_000_000}), token)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/resolve/com/alice"))
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[models.ResolveResponse](t, rr)
	assert.Equal(t, "alice", resp.Record.Owner.String())
}

func TestRouter_Authentication(t *testing.T) {
	t.Run("missing credentials reach the service as the null caller", func(t *testing.T) {
		f := newFixture(t, nil, false)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/records",
			models.RegisterRequest{Name: "alice", TLD: "com", TermYears: 1, Payment: 2_000_000})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("forged token is rejected by the middleware", func(t *testing.T) {
		f := newFixture(t, nil, false)
		other := jwttoken.NewJWTService("another-signing-key-0123456789ab", issuer)
		token, err := other.GenerateToken("alice", time.Hour)
		require.NoError(t, err)

		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/v1/tlds"), token)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("dev header is ignored unless enabled", func(t *testing.T) {
		f := newFixture(t, nil, false)
		req := testutil.NewRequest(t, http.MethodGet, "/v1/admin/balance")
		req.Header.Set("X-Caller-Identity", "root")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "unauthorized")
	})

	t.Run("dev header sets the caller when enabled", func(t *testing.T) {
		f := newFixture(t, nil, true)
		req := testutil.NewRequest(t, http.MethodGet, "/v1/admin/balance")
		req.Header.Set("X-Caller-Identity", "root")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)
	})
}

func TestRouter_MetricsUseRoutePatterns(t *testing.T) {
	f := newFixture(t, nil, false)
	testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/availability/com/alice"))
	testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/availability/com/bob"))

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	body := rr.Body.String()
	assert.Contains(t, body, `nameledger_http_requests_total{method="GET",route="/v1/availability/{tld}/{name}",status="200"} 2`)
	assert.NotContains(t, body, "/v1/availability/com/alice")
}

func TestRouter_Health(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		f := newFixture(t, nil, false)
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	t.Run("readiness reports each dependency", func(t *testing.T) {
		f := newFixture(t, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}, false)
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/readyz"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		body := *testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, "ok", body["postgres"])
		assert.True(t, strings.Contains(body["redis"], "refused"))
	})
}

func TestRouter_RejectsTextNoStoreCanHold(t *testing.T) {
	f := newFixture(t, nil, false)
	token, err := f.tokens.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	for name, req := range map[string]models.RegisterRequest{
		"NUL in name":     {Name: "al\x00ce", TLD: "com", TermYears: 1, Payment: 2_000_000},
		"NUL in metadata": {Name: "alice", TLD: "com", TermYears: 1, Metadata: "ipfs://\x00", Payment: 2_000_000},
		"dotted name":     {Name: "x.b", TLD: "com", TermYears: 1, Payment: 2_000_000},
	} {
		t.Run(name, func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.WithBearer(
				testutil.NewJSONRequest(t, http.MethodPost, "/v1/records", req), token))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
		})
	}

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/v1/availability/b.com/x"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "unsupported_tld")
}
