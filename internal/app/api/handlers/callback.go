package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	notificationlog "github.com/paymint/paymint/internal/app/service/notification_log"
	"github.com/paymint/paymint/internal/app/service/payment"
	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/types"
)

type CallbackRecorder interface {
	Record(ctx context.Context, e notificationlog.Entry)
}

// Callback reconciles a provider redirect and always answers with a
// browser redirect, to the failure page when reconciliation fails.
func (h *PaymentHandler) Callback(c *gin.Context) {
	log := logctx.FromGin(c, h.log)
	providerName := types.PaymentProvider(c.Param("id"))
	cb := parseCallback(c)

	var (
		res *payment.ReconcileResult
		err error
	)
	if providerName.Valid() {
		res, err = h.svc.Reconcile(c.Request.Context(), providerName, cb)
	} else {
		err = errUnknownProvider(providerName)
	}
	paymentID := cb.PaymentID
	if res != nil {
		paymentID = res.PaymentID
	}
	h.record(c, string(providerName), paymentID, callbackData(cb), res, err)

	status := http.StatusFound
	if c.Request.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	if err != nil {
		log.Warnw("callback reconciliation failed", "provider", providerName, "error", err)
		c.Redirect(status, h.svc.FailureURL())
		return
	}
	log.Infow("callback reconciled", "provider", providerName, "payment_id", res.PaymentID, "status", res.Status, "transitioned", res.Transitioned)
	c.Redirect(status, res.RedirectURL)
}

// parseCallback reads the provider handback: iyzico posts token, stripe
// returns session_id (and cancel=true on abort), the mock page sends
// paymentId and success.
func parseCallback(c *gin.Context) *provider.Callback {
	cb := &provider.Callback{
		Token:     firstNonEmpty(c.PostForm("token"), c.Query("token"), c.Query("session_id")),
		Cancelled: c.Query("cancel") == "true",
		PaymentID: firstNonEmpty(c.PostForm("paymentId"), c.Query("paymentId")),
	}
	if v := firstNonEmpty(c.PostForm("success"), c.Query("success")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cb.Success = &b
		}
	}
	return cb
}

func callbackData(cb *provider.Callback) map[string]any {
	data := map[string]any{"token": cb.Token, "cancelled": cb.Cancelled}
	if cb.PaymentID != "" {
		data["paymentId"] = cb.PaymentID
	}
	if cb.Success != nil {
		data["success"] = *cb.Success
	}
	return data
}

func (h *PaymentHandler) record(c *gin.Context, providerName, paymentID string, data any, res *payment.ReconcileResult, err error) {
	if h.callbacks == nil {
		return
	}
	var out any
	if res != nil {
		out = res
	}
	h.callbacks.Record(c.Request.Context(), notificationlog.Entry{
		Provider:  providerName,
		PaymentID: paymentID,
		Data:      data,
		Result:    out,
		Err:       err,
		At:        time.Now(),
	})
}

func errUnknownProvider(p types.PaymentProvider) error {
	return apperr.NotFound("provider %s", p)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
