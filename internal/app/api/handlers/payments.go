package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/paymint/paymint/internal/app/api/middleware"
	"github.com/paymint/paymint/internal/app/service/payment"
	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/response"
	"github.com/paymint/paymint/pkg/types"
)

type PaymentService interface {
	Create(ctx context.Context, ownerID string, in payment.CreateInput, origin payment.Origin) (*payment.CreateResult, error)
	List(ctx context.Context, ownerID string, f payment.ListFilter) ([]payment.View, error)
	GetStatus(ctx context.Context, paymentID string) (*payment.StatusView, error)
	Checkout(ctx context.Context, paymentID string) (*payment.CheckoutView, error)
	Complete(ctx context.Context, paymentID string, success bool) (*payment.ReconcileResult, error)
	Reconcile(ctx context.Context, p types.PaymentProvider, cb *provider.Callback) (*payment.ReconcileResult, error)
	FailureURL() string
}

// PaymentHandler serves the payment API and the browser-facing checkout flow.
type PaymentHandler struct {
	svc       PaymentService
	callbacks CallbackRecorder
	log       *zap.SugaredLogger
	baseURL   string
}

func NewPaymentHandler(svc PaymentService, callbacks CallbackRecorder, log *zap.SugaredLogger, baseURL string) *PaymentHandler {
	return &PaymentHandler{svc: svc, callbacks: callbacks, log: log, baseURL: baseURL}
}

func (h *PaymentHandler) Create(c *gin.Context) {
	var req payment.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, apperr.Validation("invalid request body: %v", err))
		return
	}
	acct := mw.CurrentAccount(c)
	res, err := h.svc.Create(c.Request.Context(), acct.ID, req, payment.Origin{
		BaseURL:  baseURL(c, h.baseURL),
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.OKT(res))
}

func (h *PaymentHandler) List(c *gin.Context) {
	var f payment.ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		writeError(c, h.log, apperr.Validation("invalid query: %v", err))
		return
	}
	views, err := h.svc.List(c.Request.Context(), mw.CurrentAccount(c).ID, f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(views))
}

func (h *PaymentHandler) Status(c *gin.Context) {
	st, err := h.svc.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(st))
}

type completeReq struct {
	Success *bool `json:"success"`
}

// Complete is the mock provider's completion signal.
func (h *PaymentHandler) Complete(c *gin.Context) {
	var req completeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.Success == nil {
		writeError(c, h.log, apperr.Validation("success is required"))
		return
	}
	paymentID := c.Param("id")
	res, err := h.svc.Complete(c.Request.Context(), paymentID, *req.Success)
	h.record(c, string(types.PaymentProviderMock), paymentID, req, res, err)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(res))
}

func RegisterPaymentRoutes(r gin.IRouter, h *PaymentHandler, auth mw.Authenticator, quota mw.QuotaChecker) {
	authed := mw.APIKeyAuth(auth)
	r.POST("", authed, mw.Quota(quota, types.OperationCreatePayment), h.Create)
	r.GET("", authed, h.List)
	r.GET("/:id/status", h.Status)
	r.GET("/:id/checkout", h.CheckoutPage)
	r.POST("/:id/complete", h.Complete)
	// :id is the provider name here
	r.GET("/:id/callback", h.Callback)
	r.POST("/:id/callback", h.Callback)
}

func RegisterPageRoutes(r gin.IRouter, h *PaymentHandler) {
	r.GET("/pay/:id", h.MockPage)
}
