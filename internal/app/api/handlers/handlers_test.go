package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	mw "github.com/paymint/paymint/internal/app/api/middleware"
	"github.com/paymint/paymint/internal/app/service/account"
	notificationlog "github.com/paymint/paymint/internal/app/service/notification_log"
	"github.com/paymint/paymint/internal/app/service/payment"
	"github.com/paymint/paymint/internal/app/service/risk"
	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/internal/platform/db/dbtest"
	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/config"
)

type recorder struct {
	mu      sync.Mutex
	entries []notificationlog.Entry
}

func (r *recorder) Record(_ context.Context, e notificationlog.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

type app struct {
	router    *gin.Engine
	db        *gorm.DB
	callbacks *recorder
}

func newApp(t *testing.T, quotaLimit int) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := dbtest.New(t)
	log := zap.NewNop().Sugar()
	cfg := &config.Config{
		Payments: config.PaymentsConfig{MinAmount: 1, MaxAmount: 100000, Currencies: []string{"TRY", "USD", "EUR"}, DefaultReturnURL: "/demo", ListLimit: 50},
		Quota:    config.QuotaConfig{DefaultLimit: quotaLimit, WindowDays: 30},
	}
	accounts := account.NewService(gdb, log, cfg)
	payments := payment.New(gdb, log, cfg.Payments, provider.NewRegistry(provider.NewMock()), risk.New(log), accounts, nil, nil)
	rec := &recorder{}

	r := gin.New()
	r.Use(mw.TraceMiddleware(), mw.RequestLoggerMiddleware(log))
	RegisterHealthRoutes(r)
	RegisterAuthRoutes(r.Group("/api/auth"), accounts, log)
	h := NewPaymentHandler(payments, rec, log, "")
	RegisterPaymentRoutes(r.Group("/api/payments"), h, accounts, accounts)
	RegisterPageRoutes(r, h)
	return &app{router: r, db: gdb, callbacks: rec}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *app) do(t *testing.T, method, path, apiKey string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(mw.APIKeyHeader, apiKey)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *app) register(t *testing.T, email string) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var acct accountResp
	require.NoError(t, json.Unmarshal(env.Data, &acct))
	require.True(t, strings.HasPrefix(acct.APIKey, "pm_live_"))
	return acct.APIKey
}

func scenarioBody() map[string]any {
	return map[string]any{
		"amount":       150,
		"currency":     "TRY",
		"description":  "Order 42",
		"provider":     "mock",
		"customerInfo": map[string]string{"name": "Ahmet Yilmaz", "email": "ahmet@example.com"},
	}
}

func (a *app) usage(t *testing.T, apiKey string) int {
	t.Helper()
	var acct models.Account
	require.NoError(t, a.db.Where("api_key = ?", apiKey).First(&acct).Error)
	return acct.UsageCount
}

func TestHealthz(t *testing.T) {
	a := newApp(t, 10)
	w, env := a.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestAuth(t *testing.T) {
	a := newApp(t, 10)
	key := a.register(t, "m@example.com")

	w, _ := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "m@example.com", "password": "secret1"})
	require.Equal(t, http.StatusConflict, w.Code)

	w, env := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "m@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var acct accountResp
	require.NoError(t, json.Unmarshal(env.Data, &acct))
	require.Equal(t, key, acct.APIKey)

	w, _ = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "m@example.com", "password": "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad", "password": "secret1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMockScenario(t *testing.T) {
	a := newApp(t, 10)
	key := a.register(t, "m@example.com")

	w, env := a.do(t, http.MethodPost, "/api/payments", key, scenarioBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var created payment.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, "pending", string(created.Status))
	require.Equal(t, "http://example.com/pay/"+created.PaymentID, created.PaymentURL)

	w, env = a.do(t, http.MethodGet, "/api/payments/"+created.PaymentID+"/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"status":"pending"`)

	w, env = a.do(t, http.MethodPost, "/api/payments/"+created.PaymentID+"/complete", "", map[string]bool{"success": true})
	require.Equal(t, http.StatusOK, w.Code)
	var done payment.ReconcileResult
	require.NoError(t, json.Unmarshal(env.Data, &done))
	require.Equal(t, "paid", string(done.Status))
	require.Equal(t, "/demo?status=success", done.RedirectURL)
	require.Equal(t, 1, a.usage(t, key))

	w, _ = a.do(t, http.MethodPost, "/api/payments/"+created.PaymentID+"/complete", "", map[string]bool{"success": true})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, a.usage(t, key))

	w, _ = a.do(t, http.MethodPost, "/api/payments/"+created.PaymentID+"/complete", "", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreate_ErrorStatuses(t *testing.T) {
	a := newApp(t, 10)
	key := a.register(t, "m@example.com")

	body := scenarioBody()
	body["amount"] = -5
	w, env := a.do(t, http.MethodPost, "/api/payments", key, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 40000, env.Code)

	body = scenarioBody()
	body["description"] = "Casino chips"
	w, _ = a.do(t, http.MethodPost, "/api/payments", key, body)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.do(t, http.MethodPost, "/api/payments", "", scenarioBody())
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = a.do(t, http.MethodPost, "/api/payments", "pm_live_unknown", scenarioBody())
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var n int64
	require.NoError(t, a.db.Model(&models.Payment{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestCreate_QuotaExceeded(t *testing.T) {
	a := newApp(t, 1)
	key := a.register(t, "m@example.com")

	w, env := a.do(t, http.MethodPost, "/api/payments", key, scenarioBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var created payment.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// pending payments do not consume quota
	w, _ = a.do(t, http.MethodPost, "/api/payments", key, scenarioBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = a.do(t, http.MethodPost, "/api/payments/"+created.PaymentID+"/complete", "", map[string]bool{"success": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = a.do(t, http.MethodPost, "/api/payments", key, scenarioBody())
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	require.Equal(t, 40200, env.Code)

	// listing is still allowed
	w, _ = a.do(t, http.MethodGet, "/api/payments", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestList_Redacted(t *testing.T) {
	a := newApp(t, 10)
	key := a.register(t, "m@example.com")
	other := a.register(t, "o@example.com")
	for i := 0; i < 2; i++ {
		w, _ := a.do(t, http.MethodPost, "/api/payments", key, scenarioBody())
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, _ := a.do(t, http.MethodPost, "/api/payments", other, scenarioBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := a.do(t, http.MethodGet, "/api/payments", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, string(env.Data), "ahmet@example.com")
	require.NotContains(t, string(env.Data), "Ahmet Yilmaz")
	var views []payment.View
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 2)
	require.Equal(t, "ah***@example.com", views[0].CustomerInfo.Email)

	w, _ = a.do(t, http.MethodGet, "/api/payments?status=bogus", key, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAmountIsJSONNumber(t *testing.T) {
	a := newApp(t, 10)
	key := a.register(t, "m@example.com")
	body := scenarioBody()
	body["amount"] = 150.5
	w, env := a.do(t, http.MethodPost, "/api/payments", key, body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created payment.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &created))

	amountOf := func(raw json.RawMessage) any {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		return m["amount"]
	}

	w, env = a.do(t, http.MethodGet, "/api/payments/"+created.PaymentID+"/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 150.5, amountOf(env.Data))

	w, env = a.do(t, http.MethodGet, "/api/payments", key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	require.Equal(t, 150.5, amountOf(items[0]))
}

func TestStatus_NotFound(t *testing.T) {
	a := newApp(t, 10)
	w, env := a.do(t, http.MethodGet, "/api/payments/pay_missing/status", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40400, env.Code)
}

func TestCallback_MockRedirects(t *testing.T) {
	a := newApp(t, 10)
	key := a.register(t, "m@example.com")
	body := scenarioBody()
	body["returnUrl"] = "https://shop.example/thanks?order=42"
	_, env := a.do(t, http.MethodPost, "/api/payments", key, body)
	var created payment.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &created))

	form := url.Values{"paymentId": {created.PaymentID}, "success": {"false"}}
	req := httptest.NewRequest(http.MethodPost, "/api/payments/mock/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "https://shop.example/thanks?order=42&status=failed", w.Header().Get("Location"))

	a.callbacks.mu.Lock()
	defer a.callbacks.mu.Unlock()
	require.Len(t, a.callbacks.entries, 1)
	require.Equal(t, created.PaymentID, a.callbacks.entries[0].PaymentID)
	require.NoError(t, a.callbacks.entries[0].Err)
}

func TestCallback_ErrorsRedirectToFailurePage(t *testing.T) {
	a := newApp(t, 10)
	for _, path := range []string{
		"/api/payments/stripe/callback?session_id=cs_1",
		"/api/payments/paypal/callback",
		"/api/payments/mock/callback?paymentId=pay_missing&success=true",
	} {
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusFound, w.Code, path)
		require.Equal(t, "/demo?status=failed", w.Header().Get("Location"), path)
	}
}

func TestPages(t *testing.T) {
	a := newApp(t, 10)
	key := a.register(t, "m@example.com")
	_, env := a.do(t, http.MethodPost, "/api/payments", key, scenarioBody())
	var created payment.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pay/"+created.PaymentID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "150.00 TRY")
	require.Contains(t, w.Body.String(), "/complete")

	// a mock payment has no iyzico form
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/payments/"+created.PaymentID+"/checkout", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	a.do(t, http.MethodPost, "/api/payments/"+created.PaymentID+"/complete", "", map[string]bool{"success": true})
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pay/"+created.PaymentID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "already been processed")

	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pay/pay_missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBaseURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Host = "pay.example.com"
	require.Equal(t, "http://pay.example.com", baseURL(c, ""))

	c.Request.Header.Set("X-Forwarded-Proto", "https")
	require.Equal(t, "https://pay.example.com", baseURL(c, ""))
	require.Equal(t, "https://public.example", baseURL(c, "https://public.example/"))
}
