// Package account owns api-key holders: registration, login, authentication
// and the rolling usage quota.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/config"
	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/redact"
	"github.com/paymint/paymint/pkg/tool"
	"github.com/paymint/paymint/pkg/types"
	"github.com/paymint/paymint/pkg/validate"
)

const bcryptCost = 10

type Service struct {
	db    *gorm.DB
	log   *zap.SugaredLogger
	quota config.QuotaConfig
	now   func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config) *Service {
	return &Service{db: db, log: log, quota: cfg.Quota, now: time.Now}
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (c *Credentials) normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}

// Register creates a free-plan account and returns it with its api key.
func (s *Service) Register(ctx context.Context, in Credentials) (*models.Account, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	log := logctx.FromCtx(ctx, s.log)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash credential: %w", err)
	}
	acct := &models.Account{
		ID:               tool.GenerateUUIDV7(),
		Email:            in.Email,
		CredentialHash:   string(hash),
		APIKey:           tool.GenerateAPIKey(),
		Plan:             types.AccountPlanFree,
		UsageLimit:       s.quota.DefaultLimit,
		UsagePeriodStart: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(acct).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	log.Infow("account registered", "account_id", acct.ID, "email", redact.Email(acct.Email))
	return acct, nil
}

// Login verifies the credential and returns the account holding the api key.
func (s *Service) Login(ctx context.Context, in Credentials) (*models.Account, error) {
	in.normalize()
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	var acct models.Account
	err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.CredentialHash), []byte(in.Password)) != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return &acct, nil
}

// Authenticate resolves an api key to its account.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (*models.Account, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, apperr.Unauthorized("api key required")
	}
	var acct models.Account
	err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid api key")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return &acct, nil
}

// CheckQuota rolls the usage window over when it has elapsed, then refuses
// quota-consuming operations once the limit is reached. acct is updated in
// place with the state it was evaluated against.
func (s *Service) CheckQuota(ctx context.Context, acct *models.Account, kind types.OperationKind) error {
	now := s.now()
	if acct.WindowElapsed(now, s.quota.Window()) {
		if err := s.resetWindow(ctx, acct, now); err != nil {
			return err
		}
	}
	if kind.ConsumesQuota() && !acct.QuotaLeft() {
		return apperr.QuotaExceeded("usage limit of %d reached for the current period", acct.UsageLimit)
	}
	return nil
}

// resetWindow is conditional on the window start it observed, so concurrent
// checks reset at most once.
func (s *Service) resetWindow(ctx context.Context, acct *models.Account, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND usage_period_start = ?", acct.ID, acct.UsagePeriodStart).
		Updates(map[string]any{"usage_count": 0, "usage_period_start": now})
	if res.Error != nil {
		return fmt.Errorf("failed to reset usage window: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		logctx.FromCtx(ctx, s.log).Infow("usage window reset", "account_id", acct.ID, "previous_count", acct.UsageCount)
		acct.UsageCount = 0
		acct.UsagePeriodStart = now
		return nil
	}
	var fresh models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", acct.ID).First(&fresh).Error; err != nil {
		return fmt.Errorf("failed to reload account: %w", err)
	}
	*acct = fresh
	return nil
}

// IncrementUsage atomically counts one paid payment against the account.
// It runs on tx so it commits or rolls back with the status transition.
func (s *Service) IncrementUsage(ctx context.Context, tx *gorm.DB, accountID string) error {
	res := tx.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("account %s", accountID)
	}
	return nil
}
