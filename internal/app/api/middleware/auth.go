package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/response"
	"github.com/paymint/paymint/pkg/types"
)

const (
	APIKeyHeader = "x-api-key"
	AccountKey   = "account"
	OwnerIDKey   = "ownerID"
)

type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*models.Account, error)
}

type QuotaChecker interface {
	CheckQuota(ctx context.Context, acct *models.Account, kind types.OperationKind) error
}

// APIKeyAuth resolves the x-api-key header to an account and scopes the
// request logger to it.
func APIKeyAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, err := auth.Authenticate(c.Request.Context(), c.GetHeader(APIKeyHeader))
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(AccountKey, acct)
		c.Set(OwnerIDKey, acct.ID)
		if l, ok := c.Get(logctx.GinLoggerKey); ok {
			if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
				c.Set(logctx.GinLoggerKey, lg.With("owner_id", acct.ID))
			}
		}
		c.Request = c.Request.WithContext(logctx.WithOwnerID(c.Request.Context(), acct.ID))
		c.Next()
	}
}

// Quota refuses the request when the authenticated account has no quota
// left for kind. It must run after APIKeyAuth.
func Quota(q QuotaChecker, kind types.OperationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		acct := CurrentAccount(c)
		if acct == nil {
			abort(c, apperr.Unauthorized("no authenticated account"))
			return
		}
		if err := q.CheckQuota(c.Request.Context(), acct, kind); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

func CurrentAccount(c *gin.Context) *models.Account {
	v, ok := c.Get(AccountKey)
	if !ok {
		return nil
	}
	acct, _ := v.(*models.Account)
	return acct
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := response.FromError(err)
	c.AbortWithStatusJSON(status, body)
}
