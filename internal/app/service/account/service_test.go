package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/internal/platform/db/dbtest"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/config"
	"github.com/paymint/paymint/pkg/types"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{Quota: config.QuotaConfig{DefaultLimit: 10, WindowDays: 30}}
	s := NewService(dbtest.New(t), zap.NewNop().Sugar(), cfg)
	s.now = func() time.Time { return epoch }
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	acct, err := s.Register(ctx, Credentials{Email: " Merchant@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(acct.APIKey, "pm_live_"))
	require.Equal(t, "merchant@example.com", acct.Email)
	require.Equal(t, types.AccountPlanFree, acct.Plan)
	require.Equal(t, 10, acct.UsageLimit)
	require.NotEqual(t, "secret1", acct.CredentialHash)

	_, err = s.Register(ctx, Credentials{Email: "merchant@example.com", Password: "another1"})
	require.True(t, errors.Is(err, apperr.ErrConflict))

	got, err := s.Login(ctx, Credentials{Email: "MERCHANT@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, acct.APIKey, got.APIKey)

	_, err = s.Login(ctx, Credentials{Email: "merchant@example.com", Password: "wrong-pass"})
	require.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = s.Login(ctx, Credentials{Email: "nobody@example.com", Password: "secret1"})
	require.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestRegister_Validation(t *testing.T) {
	s := newTestService(t)
	_, err := s.Register(context.Background(), Credentials{Email: "not-an-email", Password: "secret1"})
	require.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = s.Register(context.Background(), Credentials{Email: "a@example.com", Password: "123"})
	require.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestAuthenticate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	acct, err := s.Register(ctx, Credentials{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	got, err := s.Authenticate(ctx, acct.APIKey)
	require.NoError(t, err)
	require.Equal(t, acct.ID, got.ID)

	_, err = s.Authenticate(ctx, "")
	require.True(t, errors.Is(err, apperr.ErrUnauthorized))
	_, err = s.Authenticate(ctx, "pm_live_unknown")
	require.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func seedAccount(t *testing.T, s *Service, count, limit int, start time.Time) *models.Account {
	t.Helper()
	acct := &models.Account{
		ID:               "0192f000-0000-7000-8000-000000000001",
		Email:            "q@example.com",
		CredentialHash:   "x",
		APIKey:           "pm_live_quota",
		Plan:             types.AccountPlanFree,
		UsageCount:       count,
		UsageLimit:       limit,
		UsagePeriodStart: start,
	}
	require.NoError(t, s.db.Create(acct).Error)
	loaded, err := s.Authenticate(context.Background(), acct.APIKey)
	require.NoError(t, err)
	return loaded
}

func TestCheckQuota_LimitReached(t *testing.T) {
	s := newTestService(t)
	acct := seedAccount(t, s, 10, 10, epoch.Add(-24*time.Hour))

	err := s.CheckQuota(context.Background(), acct, types.OperationCreatePayment)
	require.True(t, errors.Is(err, apperr.ErrQuotaExceeded))

	// reads never consume quota
	require.NoError(t, s.CheckQuota(context.Background(), acct, types.OperationReadPayment))
}

func TestCheckQuota_UnderLimit(t *testing.T) {
	s := newTestService(t)
	acct := seedAccount(t, s, 9, 10, epoch.Add(-24*time.Hour))
	require.NoError(t, s.CheckQuota(context.Background(), acct, types.OperationCreatePayment))
}

func TestCheckQuota_WindowResets(t *testing.T) {
	s := newTestService(t)
	acct := seedAccount(t, s, 10, 10, epoch.Add(-30*24*time.Hour))

	require.NoError(t, s.CheckQuota(context.Background(), acct, types.OperationCreatePayment))
	require.Equal(t, 0, acct.UsageCount)
	require.True(t, acct.UsagePeriodStart.Equal(epoch))

	var stored models.Account
	require.NoError(t, s.db.Where("id = ?", acct.ID).First(&stored).Error)
	require.Equal(t, 0, stored.UsageCount)
	require.True(t, stored.UsagePeriodStart.Equal(epoch))
}

func TestCheckQuota_StaleResetReloads(t *testing.T) {
	s := newTestService(t)
	acct := seedAccount(t, s, 10, 10, epoch.Add(-31*24*time.Hour))

	// another request already rolled the window and counted a payment
	require.NoError(t, s.db.Model(&models.Account{}).Where("id = ?", acct.ID).
		Updates(map[string]any{"usage_count": 1, "usage_period_start": epoch.Add(-time.Hour)}).Error)

	require.NoError(t, s.CheckQuota(context.Background(), acct, types.OperationCreatePayment))
	require.Equal(t, 1, acct.UsageCount)
}

func TestIncrementUsage_Concurrent(t *testing.T) {
	s := newTestService(t)
	acct := seedAccount(t, s, 0, 100, epoch)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, s.IncrementUsage(context.Background(), s.db, acct.ID))
		}()
	}
	wg.Wait()

	var stored models.Account
	require.NoError(t, s.db.Where("id = ?", acct.ID).First(&stored).Error)
	require.Equal(t, 8, stored.UsageCount)

	err := s.IncrementUsage(context.Background(), s.db, "missing")
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}
