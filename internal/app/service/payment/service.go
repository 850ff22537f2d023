// Package payment is the payment lifecycle manager: it creates pending
// payments through a provider adapter and reconciles provider callbacks
// exactly once.
package payment

import (
	"context"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paymint/paymint/internal/app/service/account"
	"github.com/paymint/paymint/internal/app/service/risk"
	"github.com/paymint/paymint/internal/app/service/webhook"
	"github.com/paymint/paymint/internal/platform/eventbus"
	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/config"
)

type RiskChecker interface {
	Check(ctx context.Context, in risk.Input) error
}

// UsageCounter counts a paid payment against its owner inside tx.
type UsageCounter interface {
	IncrementUsage(ctx context.Context, tx *gorm.DB, accountID string) error
}

// Notifier is woken after a webhook delivery has been committed.
type Notifier interface {
	Kick()
}

type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	cfg       config.PaymentsConfig
	providers *provider.Registry
	risk      RiskChecker
	usage     UsageCounter
	notifier  Notifier
	events    eventbus.Publisher
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.SugaredLogger
	Config    *config.Config
	Providers *provider.Registry
	Risk      *risk.Filter
	Accounts  *account.Service
	Webhooks  *webhook.Dispatcher
	Events    eventbus.Publisher
}

func NewService(p Params) *Service {
	return New(p.DB, p.Log, p.Config.Payments, p.Providers, p.Risk, p.Accounts, p.Webhooks, p.Events)
}

func New(db *gorm.DB, log *zap.SugaredLogger, cfg config.PaymentsConfig, providers *provider.Registry,
	risk RiskChecker, usage UsageCounter, notifier Notifier, events eventbus.Publisher) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 50
	}
	if events == nil {
		events = eventbus.Nop()
	}
	return &Service{
		db:        db,
		log:       log,
		cfg:       cfg,
		providers: providers,
		risk:      risk,
		usage:     usage,
		notifier:  notifier,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

var Module = fx.Options(
	fx.Provide(NewService),
)
