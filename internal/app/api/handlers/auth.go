package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paymint/paymint/internal/app/service/account"
	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/response"
	"github.com/paymint/paymint/pkg/types"
)

type AccountService interface {
	Register(ctx context.Context, in account.Credentials) (*models.Account, error)
	Login(ctx context.Context, in account.Credentials) (*models.Account, error)
}

type accountResp struct {
	APIKey     string            `json:"apiKey"`
	Email      string            `json:"email"`
	Plan       types.AccountPlan `json:"plan"`
	UsageCount int               `json:"usageCount"`
	UsageLimit int               `json:"usageLimit"`
}

func newAccountResp(a *models.Account) accountResp {
	return accountResp{APIKey: a.APIKey, Email: a.Email, Plan: a.Plan, UsageCount: a.UsageCount, UsageLimit: a.UsageLimit}
}

func ApiRegister(svc AccountService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req account.Credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, log, apperr.Validation("invalid request body: %v", err))
			return
		}
		acct, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, response.OKT(newAccountResp(acct)))
	}
}

func ApiLogin(svc AccountService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req account.Credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, log, apperr.Validation("invalid request body: %v", err))
			return
		}
		acct, err := svc.Login(c.Request.Context(), req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(newAccountResp(acct)))
	}
}

func RegisterAuthRoutes(r gin.IRouter, svc AccountService, log *zap.SugaredLogger) {
	r.POST("/register", ApiRegister(svc, log))
	r.POST("/login", ApiLogin(svc, log))
}
