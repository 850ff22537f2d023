// Package gateways builds the provider registry from configuration.
package gateways

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/paymint/paymint/internal/platform/iyzico"
	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/internal/platform/stripe"
	"github.com/paymint/paymint/pkg/config"
)

// NewRegistry always registers the mock simulator; hosted providers are
// registered only when their credentials are configured.
func NewRegistry(cfg *config.Config, log *zap.SugaredLogger) *provider.Registry {
	adapters := []provider.Adapter{provider.NewMock()}
	if cfg.Iyzico.Enabled() {
		adapters = append(adapters, iyzico.New(iyzico.NewClient(cfg.Iyzico.APIKey, cfg.Iyzico.SecretKey, cfg.Iyzico.BaseURL)))
	} else {
		log.Warnw("iyzico disabled: credentials not configured")
	}
	if cfg.Stripe.Enabled() {
		adapters = append(adapters, stripe.New(stripe.NewClient(cfg.Stripe.SecretKey)))
	} else {
		log.Warnw("stripe disabled: secret key not configured")
	}
	return provider.NewRegistry(adapters...)
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
)
