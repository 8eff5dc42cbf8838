package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/copperspur/rodeo-backend/internal/auth"
	checkoutsvc "github.com/copperspur/rodeo-backend/internal/checkout"
	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/internal/redemption"
	moneriswebhook "github.com/copperspur/rodeo-backend/internal/webhooks/moneris"
	pkgAuth "github.com/copperspur/rodeo-backend/pkg/auth"
	"github.com/copperspur/rodeo-backend/pkg/config"
	"github.com/copperspur/rodeo-backend/pkg/db/models"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/pagination"
	"github.com/copperspur/rodeo-backend/pkg/shiptime"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: map[string]string{}}
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	if str, ok := value.(string); ok {
		s.values[key] = str
	}
	return true, nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string {
	return "rodeo:idemp:" + scope + ":" + id
}

func (s *stubRedis) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *stubRedis) Ping(context.Context) error { return nil }

func (s *stubRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] += "x"
	return int64(len(s.values[key])), nil
}

type stubAuthService struct{}

func (stubAuthService) StaffLogin(_ context.Context, req auth.StaffLoginRequest) (*auth.StaffLoginResponse, error) {
	return &auth.StaffLoginResponse{
		AccessToken: "token",
		Role:        enums.StaffRoleScanner,
		DeviceLabel: req.DeviceLabel,
	}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Initiate(context.Context, checkoutsvc.Request) (*checkoutsvc.Initiation, error) {
	return &checkoutsvc.Initiation{
		Kind:             enums.OrderKindTicket,
		ConfirmationCode: "TKT-1717243200-A7K2MQ",
		Provider:         enums.PaymentProviderStripe,
		SessionID:        "cs_test_1",
		Total:            decimal.RequireFromString("84.75"),
	}, nil
}

type stubShippingService struct{}

func (stubShippingService) GetRates(context.Context, types.Address, int) ([]shiptime.Rate, error) {
	return []shiptime.Rate{}, nil
}

func (stubShippingService) CreateShipment(context.Context, *models.MerchOrder) (*shiptime.Shipment, error) {
	return nil, nil
}

type stubRedemptionService struct{}

func (stubRedemptionService) ScanTicket(_ context.Context, code string) (*redemption.ScanResult, error) {
	return &redemption.ScanResult{ConfirmationCode: code, ScannedAt: time.Now()}, nil
}

func (stubRedemptionService) RedeemBarCredit(_ context.Context, code string) (*redemption.RedeemResult, error) {
	return &redemption.RedeemResult{ConfirmationCode: code, RemainingCredits: 9}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) GetOrder(_ context.Context, code string) (*orders.Record, error) {
	return &orders.Record{
		Kind: enums.OrderKindTicket,
		Ticket: &models.TicketOrder{
			ConfirmationCode: code,
			Status:           enums.TicketOrderStatusConfirmed,
		},
	}, nil
}

func (stubOrdersService) ListOrders(context.Context, enums.OrderKind, pagination.Params, orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderSummary{}}, nil
}

func (stubOrdersService) Search(context.Context, string) ([]orders.OrderSummary, error) {
	return []orders.OrderSummary{}, nil
}

func (s stubOrdersService) ManualConfirm(ctx context.Context, code string) (*orders.Record, error) {
	return s.GetOrder(ctx, code)
}

func (stubOrdersService) Refund(_ context.Context, code string, amount decimal.Decimal) (*orders.RefundResult, error) {
	return &orders.RefundResult{ConfirmationCode: code, RefundAmount: amount}, nil
}

func (stubOrdersService) ResendEmail(context.Context, string) error { return nil }

func (s stubOrdersService) AttachRFIDTags(ctx context.Context, code string, _ []string) (*orders.Record, error) {
	return s.GetOrder(ctx, code)
}

type stubStripeProcessor struct{ calls int }

func (s *stubStripeProcessor) Process(context.Context, []byte, string) error {
	s.calls++
	return nil
}

type stubMonerisProcessor struct{ calls int }

func (s *stubMonerisProcessor) Process(context.Context, moneriswebhook.Callback, []byte) error {
	s.calls++
	return nil
}

func routerTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "rodeo-backend-test",
			ExpirationMinutes: 30,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:      time.Minute,
			LoginIPLimit:     100,
			LoginDeviceLimit: 100,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config, *stubStripeProcessor, *stubMonerisProcessor) {
	t.Helper()
	cfg := routerTestConfig()
	stripeProc := &stubStripeProcessor{}
	monerisProc := &stubMonerisProcessor{}

	handler := NewRouter(Deps{
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "router-test"}),
		DB:     stubPinger{},
		Redis:  newStubRedis(),

		AuthService:     stubAuthService{},
		CheckoutService: stubCheckoutService{},
		ShippingService: stubShippingService{},
		Redemption:      stubRedemptionService{},
		Orders:          stubOrdersService{},
		StripeWebhook:   stripeProc,
		MonerisWebhook:  monerisProc,
	})
	return handler, cfg, stripeProc, monerisProc
}

func mintToken(t *testing.T, cfg *config.Config, role enums.StaffRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		DeviceLabel: "test-device",
		Role:        role,
	})
	require.NoError(t, err)
	return token
}

func TestRouterHealthEndpoints(t *testing.T) {
	handler, _, _, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "test", rec.Header().Get("X-Rodeo-Env"))
	}
}

func TestRouterCheckoutRequiresIdempotencyKey(t *testing.T) {
	handler, _, _, _ := newTestRouter(t)

	body := `{"kind":"ticket","customer_name":"Reba","customer_email":"reba@example.com","ticket":{"event_slug":"stampede","ticket_type":"individual","quantity":1}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterCheckoutReplaysStoredResponse(t *testing.T) {
	handler, _, _, _ := newTestRouter(t)

	body := `{"kind":"ticket","customer_name":"Reba","customer_email":"reba@example.com","ticket":{"event_slug":"stampede","ticket_type":"individual","quantity":1}}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code)

	second := send()
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestRouterScanRequiresToken(t *testing.T) {
	handler, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/ticket", strings.NewReader(`{"code":"TKT-1-AAAAAA"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterScannerTokenReachesScan(t *testing.T) {
	handler, cfg, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/ticket", strings.NewReader(`{"code":"TKT-1-AAAAAA"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.StaffRoleScanner))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterScannerTokenCannotReachAdmin(t *testing.T) {
	handler, cfg, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?kind=ticket", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.StaffRoleScanner))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterAdminTokenListsOrders(t *testing.T) {
	handler, cfg, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?kind=ticket", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.StaffRoleAdmin))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterAdminTokenCanScan(t *testing.T) {
	handler, cfg, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/bar", strings.NewReader(`{"code":"BAR-1-AAAAAA"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.StaffRoleAdmin))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterStaffLogin(t *testing.T) {
	handler, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/staff", strings.NewReader(`{"device_label":"gate-1","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data auth.StaffLoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "gate-1", envelope.Data.DeviceLabel)
}

func TestRouterWebhooksArePublic(t *testing.T) {
	handler, _, stripeProc, monerisProc := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, stripeProc.calls)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/moneris", strings.NewReader(`{"ticket":"abc123"}`))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, monerisProc.calls)
}
