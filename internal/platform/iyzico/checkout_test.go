package iyzico

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/types"
)

type recorded struct {
	path   string
	auth   string
	rnd    string
	body   []byte
	decode map[string]any
}

func newServer(t *testing.T, reply func(path string) any) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec := recorded{path: r.URL.Path, auth: r.Header.Get("Authorization"), rnd: r.Header.Get("x-iyzi-rnd"), body: body}
		_ = json.Unmarshal(body, &rec.decode)
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply(r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAuthorization_Format(t *testing.T) {
	got := Authorization("key", "secret", "123", "/path", []byte(`{}`))
	require.True(t, strings.HasPrefix(got, "IYZWSv2 "))
	require.Equal(t, got, Authorization("key", "secret", "123", "/path", []byte(`{}`)))
	require.NotEqual(t, got, Authorization("key", "secret", "124", "/path", []byte(`{}`)))
}

func TestInitiate_SendsSignedCheckoutForm(t *testing.T) {
	srv, calls := newServer(t, func(string) any {
		return map[string]any{"status": "success", "token": "tok_1", "checkoutFormContent": "<script>form</script>"}
	})
	a := New(NewClient("api", "secret", srv.URL))

	res, err := a.Initiate(context.Background(), &provider.InitiateRequest{
		PaymentID:   "pay_1",
		Amount:      decimal.RequireFromString("150.5"),
		Currency:    types.CurrencyTRY,
		Description: "Order 42",
		Customer:    provider.Customer{Name: "Ahmet Can Yilmaz", Email: "ahmet@example.com"},
		ClientIP:    "10.0.0.1",
		BaseURL:     "https://pay.example.com/",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example.com/api/payments/pay_1/checkout", res.RedirectTarget)
	require.Equal(t, "<script>form</script>", res.ProviderRef)

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	require.Equal(t, pathInitialize, c.path)
	require.Equal(t, Authorization("api", "secret", c.rnd, pathInitialize, c.body), c.auth)
	require.Equal(t, "pay_1", c.decode["basketId"])
	require.Equal(t, "150.50", c.decode["price"])
	require.Equal(t, "https://pay.example.com/api/payments/iyzico/callback", c.decode["callbackUrl"])
	buyer := c.decode["buyer"].(map[string]any)
	require.Equal(t, "Ahmet", buyer["name"])
	require.Equal(t, "Can Yilmaz", buyer["surname"])
	require.Equal(t, "10.0.0.1", buyer["ip"])
}

func TestInitiate_ProviderFailure(t *testing.T) {
	srv, _ := newServer(t, func(string) any {
		return map[string]any{"status": "failure", "errorCode": "12", "errorMessage": "Invalid request"}
	})
	_, err := New(NewClient("api", "secret", srv.URL)).Initiate(context.Background(), &provider.InitiateRequest{
		PaymentID: "pay_1", Amount: decimal.NewFromInt(10), Currency: types.CurrencyTRY,
	})
	require.ErrorContains(t, err, "Invalid request")
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name          string
		paymentStatus string
		want          types.Outcome
	}{
		{"success", "SUCCESS", types.OutcomeSuccess},
		{"failure", "FAILURE", types.OutcomeFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, calls := newServer(t, func(string) any {
				return map[string]any{"status": "success", "paymentStatus": tc.paymentStatus, "basketId": "pay_9", "price": 10.0}
			})
			res, err := New(NewClient("api", "secret", srv.URL)).Reconcile(context.Background(), &provider.Callback{Token: "tok_1"})
			require.NoError(t, err)
			require.Equal(t, tc.want, res.Outcome)
			require.Equal(t, "pay_9", res.PaymentID)
			require.Equal(t, pathRetrieve, (*calls)[0].path)
			require.Equal(t, "tok_1", (*calls)[0].decode["token"])
		})
	}
}

func TestReconcile_DeclinedPaymentIsFailure(t *testing.T) {
	srv, _ := newServer(t, func(string) any {
		return map[string]any{
			"status":        "failure",
			"errorCode":     "10051",
			"errorMessage":  "Kart limiti yetersiz",
			"paymentStatus": "FAILURE",
			"basketId":      "pay_1",
		}
	})
	res, err := New(NewClient("api", "secret", srv.URL)).Reconcile(context.Background(), &provider.Callback{Token: "tok_1"})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeFailure, res.Outcome)
	require.Equal(t, "pay_1", res.PaymentID)
}

func TestReconcile_UnknownTokenErrors(t *testing.T) {
	srv, _ := newServer(t, func(string) any {
		return map[string]any{"status": "failure", "errorCode": "5", "errorMessage": "Token not found"}
	})
	_, err := New(NewClient("api", "secret", srv.URL)).Reconcile(context.Background(), &provider.Callback{Token: "tok_x"})
	require.ErrorContains(t, err, "Token not found")
}

func TestReconcile_MissingToken(t *testing.T) {
	_, err := New(NewClient("api", "secret", "http://127.0.0.1:1")).Reconcile(context.Background(), &provider.Callback{})
	require.Error(t, err)
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Ayse")
	require.Equal(t, "Ayse", first)
	require.Equal(t, "Kullanıcı", last)

	first, last = SplitName("  ")
	require.Equal(t, "Misafir", first)
	require.Equal(t, "Kullanıcı", last)
}
