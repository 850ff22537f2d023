package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/paymint/paymint/internal/app/service/payment"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/types"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "layout_head"}}<!doctype html>
<html lang="tr"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>body{font-family:system-ui,sans-serif;max-width:520px;margin:3rem auto;padding:0 1rem;color:#222}
.card{border:1px solid #ddd;border-radius:8px;padding:1.5rem}.amount{font-size:1.6rem;font-weight:600}
button{padding:.6rem 1.2rem;margin-right:.5rem;border:0;border-radius:6px;cursor:pointer}
.ok{background:#1e8e3e;color:#fff}.fail{background:#d93025;color:#fff}</style></head><body>{{end}}

{{define "iyzico"}}{{template "layout_head" .}}
<div class="card"><p>{{.Description}}</p><p class="amount">{{.Amount}} {{.Currency}}</p>
<div id="iyzipay-checkout-form" class="responsive"></div></div>
{{.Form}}
</body></html>{{end}}

{{define "mock"}}{{template "layout_head" .}}
<div class="card"><p>Test payment</p><p>{{.Description}}</p><p class="amount">{{.Amount}} {{.Currency}}</p>
<button class="ok" onclick="complete(true)">Pay</button><button class="fail" onclick="complete(false)">Decline</button></div>
<script>
function complete(success) {
  fetch({{.CompleteURL}}, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify({success: success})})
    .then(function (r) { return r.json(); })
    .then(function (body) { window.location.href = (body.data && body.data.redirectUrl) || {{.FailureURL}}; })
    .catch(function () { window.location.href = {{.FailureURL}}; });
}
</script>
</body></html>{{end}}

{{define "message"}}{{template "layout_head" .}}
<div class="card"><h2>{{.Title}}</h2><p>{{.Message}}</p></div>
</body></html>{{end}}
`))

type pageData struct {
	Title       string
	Message     string
	Description string
	Amount      string
	Currency    types.Currency
	Form        template.HTML
	CompleteURL string
	FailureURL  string
}

func renderPage(c *gin.Context, status int, name string, data pageData) {
	c.Render(status, render.HTML{Template: pages, Name: name, Data: data})
}

func (h *PaymentHandler) loadCheckout(c *gin.Context, want types.PaymentProvider) (*payment.CheckoutView, bool) {
	v, err := h.svc.Checkout(c.Request.Context(), c.Param("id"))
	if err == nil && v.Provider != want {
		err = apperr.NotFound("no %s checkout for payment", want)
	}
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logctx.FromGin(c, h.log).Errorw("checkout page failed", "error", err)
			renderPage(c, http.StatusInternalServerError, "message", pageData{Title: "Error", Message: "Something went wrong."})
			return nil, false
		}
		renderPage(c, http.StatusNotFound, "message", pageData{Title: "Not found", Message: "Payment not found."})
		return nil, false
	}
	if v.Status.IsTerminal() {
		renderPage(c, http.StatusOK, "message", pageData{Title: "Payment completed", Message: "This payment has already been processed."})
		return nil, false
	}
	return v, true
}

// CheckoutPage hosts the iyzico checkout form stored at creation.
func (h *PaymentHandler) CheckoutPage(c *gin.Context) {
	v, ok := h.loadCheckout(c, types.PaymentProviderIyzico)
	if !ok {
		return
	}
	renderPage(c, http.StatusOK, "iyzico", pageData{
		Title:       "Checkout",
		Description: v.Description,
		Amount:      v.Amount.StringFixed(2),
		Currency:    v.Currency,
		// provider-issued markup
		Form: template.HTML(v.FormContent),
	})
}

// MockPage is the mock provider's locally owned checkout.
func (h *PaymentHandler) MockPage(c *gin.Context) {
	v, ok := h.loadCheckout(c, types.PaymentProviderMock)
	if !ok {
		return
	}
	renderPage(c, http.StatusOK, "mock", pageData{
		Title:       "Mock checkout",
		Description: v.Description,
		Amount:      v.Amount.StringFixed(2),
		Currency:    v.Currency,
		CompleteURL: "/api/payments/" + v.PaymentID + "/complete",
		FailureURL:  h.svc.FailureURL(),
	})
}
