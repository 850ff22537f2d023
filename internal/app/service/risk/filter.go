// Package risk is the synchronous pre-check run before any provider call.
package risk

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/logctx"
)

var DefaultKeywords = []string{
	"bahis", "iddaa", "kumar", "bet", "casino", "slot", "rulet", "poker", "jackpot",
	"escort", "adult", "+18", "xxx", "porn",
	"bitcoin", "crypto", "kripto", "tether", "usdt", "ether",
	"forex", "kaldıraç", "hisse",
}

var DefaultDisposableDomains = []string{
	"tempmail.com", "10minutemail.com", "throwawaymail.com",
}

var (
	structuringFloor = decimal.NewFromInt(10000)
	structuringStep  = decimal.NewFromInt(1000)
)

type Input struct {
	Amount        decimal.Decimal
	Description   string
	CustomerName  string
	CustomerEmail string
}

type Filter struct {
	keywords []string
	domains  map[string]struct{}
	log      *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Filter {
	return NewWithLists(log, DefaultKeywords, DefaultDisposableDomains)
}

func NewWithLists(log *zap.SugaredLogger, keywords, domains []string) *Filter {
	lower := func(s string, _ int) string { return strings.ToLower(s) }
	return &Filter{
		log:      log,
		keywords: lo.Map(keywords, lower),
		domains:  lo.Keyify(lo.Map(domains, lower)),
	}
}

// Check returns a SecurityViolation for blacklisted content or disposable
// email domains. Round large amounts are only logged.
func (f *Filter) Check(ctx context.Context, in Input) error {
	log := logctx.FromCtx(ctx, f.log)

	haystack := strings.ToLower(in.Description + " " + in.CustomerName + " " + in.CustomerEmail)
	if k, found := lo.Find(f.keywords, func(k string) bool { return strings.Contains(haystack, k) }); found {
		log.Warnw("risk: blacklisted keyword", "keyword", k)
		return apperr.SecurityViolation("content not allowed")
	}

	if at := strings.LastIndex(in.CustomerEmail, "@"); at >= 0 {
		domain := strings.ToLower(strings.TrimSpace(in.CustomerEmail[at+1:]))
		if _, ok := f.domains[domain]; ok {
			log.Warnw("risk: disposable email domain", "domain", domain)
			return apperr.SecurityViolation("email domain not allowed")
		}
	}

	if in.Amount.GreaterThanOrEqual(structuringFloor) && in.Amount.Mod(structuringStep).IsZero() {
		log.Warnw("risk: round high amount", "amount", in.Amount.String())
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
