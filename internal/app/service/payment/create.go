package payment

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/paymint/paymint/internal/app/service/risk"
	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/metrics"
	"github.com/paymint/paymint/pkg/tool"
	"github.com/paymint/paymint/pkg/types"
	"github.com/paymint/paymint/pkg/validate"
)

type CustomerInput struct {
	Name  string `json:"name" validate:"required,min=3"`
	Email string `json:"email" validate:"required,email"`
}

type CreateInput struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  string          `json:"description" validate:"required,min=3,max=100,paydesc"`
	Provider     string          `json:"provider" validate:"required,oneof=mock iyzico stripe"`
	CustomerInfo CustomerInput   `json:"customerInfo"`
	WebhookURL   *string         `json:"webhookUrl,omitempty" validate:"omitempty,http_url"`
	ReturnURL    *string         `json:"returnUrl,omitempty" validate:"omitempty,http_url"`
}

// Origin is request-derived context the adapters need.
type Origin struct {
	BaseURL  string
	ClientIP string
}

type CreateResult struct {
	PaymentID  string              `json:"paymentId"`
	PaymentURL string              `json:"paymentUrl"`
	Status     types.PaymentStatus `json:"status"`
}

// Create validates and risk-checks the request, initiates it with the chosen
// provider and persists a pending payment. Nothing is written unless the
// provider accepted the payment.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput, origin Origin) (*CreateResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	in = s.sanitize(in)
	currency, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	providerName := types.PaymentProvider(in.Provider)
	adapter, ok := s.providers.Get(providerName)
	if !ok {
		return nil, apperr.Validation("provider %s is not available", providerName)
	}

	if err := s.risk.Check(ctx, risk.Input{
		Amount:        in.Amount,
		Description:   in.Description,
		CustomerName:  in.CustomerInfo.Name,
		CustomerEmail: in.CustomerInfo.Email,
	}); err != nil {
		return nil, err
	}

	paymentID := tool.GeneratePaymentID()
	customer := models.CustomerInfo{Name: in.CustomerInfo.Name, Email: in.CustomerInfo.Email}

	start := time.Now()
	initiated, err := adapter.Initiate(ctx, &provider.InitiateRequest{
		PaymentID:   paymentID,
		Amount:      in.Amount,
		Currency:    currency,
		Description: in.Description,
		Customer:    provider.Customer{Name: customer.Name, Email: customer.Email},
		ClientIP:    origin.ClientIP,
		BaseURL:     origin.BaseURL,
	})
	metrics.ProviderLatency.WithLabelValues(string(providerName), "initiate").Observe(metrics.MillisecondsSince(start))
	if err != nil {
		log.Errorw("provider initiate failed", "provider", providerName, "payment_id", paymentID, "error", err)
		return nil, apperr.Provider(err, "%s initiate failed", providerName)
	}

	record := &models.Payment{
		ID:           tool.GenerateUUIDV7(),
		PaymentID:    paymentID,
		OwnerID:      ownerID,
		Amount:       in.Amount,
		Currency:     currency,
		Description:  in.Description,
		Status:       types.PaymentStatusPending,
		Provider:     providerName,
		ProviderRef:  initiated.ProviderRef,
		CustomerInfo: datatypes.NewJSONType(customer),
		WebhookURL:   in.WebhookURL,
		ReturnURL:    in.ReturnURL,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	metrics.PaymentsCreated.WithLabelValues(string(providerName)).Inc()
	log.Infow("payment created",
		"payment_id", paymentID,
		"provider", providerName,
		"amount", in.Amount.StringFixed(2),
		"currency", currency,
		"customer", customer.Redacted(),
	)
	return &CreateResult{PaymentID: paymentID, PaymentURL: initiated.RedirectTarget, Status: record.Status}, nil
}

// sanitize strips markup from free-text fields. The strict policy escapes
// entities; they are decoded back so names like "O'Neil" are stored as typed.
func (s *Service) sanitize(in CreateInput) CreateInput {
	clean := func(v string) string {
		return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(v)))
	}
	in.Description = clean(in.Description)
	in.CustomerInfo.Name = clean(in.CustomerInfo.Name)
	in.CustomerInfo.Email = strings.TrimSpace(in.CustomerInfo.Email)
	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	for _, u := range []*string{in.WebhookURL, in.ReturnURL} {
		if u != nil {
			*u = strings.TrimSpace(*u)
		}
	}
	if in.WebhookURL != nil && *in.WebhookURL == "" {
		in.WebhookURL = nil
	}
	if in.ReturnURL != nil && *in.ReturnURL == "" {
		in.ReturnURL = nil
	}
	return in
}

func (s *Service) validate(in CreateInput) (types.Currency, error) {
	if !in.Amount.IsPositive() {
		return "", apperr.Validation("amount must be positive")
	}
	if in.Amount.LessThan(s.cfg.MinAmountDecimal()) || in.Amount.GreaterThan(s.cfg.MaxAmountDecimal()) {
		return "", apperr.Validation("amount must be between %s and %s", s.cfg.MinAmountDecimal(), s.cfg.MaxAmountDecimal())
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return "", apperr.Validation("amount must have at most 2 decimal places")
	}
	currency := types.NormalizeCurrency(in.Currency)
	if !s.cfg.SupportsCurrency(currency) {
		return "", apperr.Validation("currency %s is not supported", currency)
	}
	if err := validate.Struct(in); err != nil {
		return "", err
	}
	if !types.PaymentProvider(in.Provider).Valid() {
		return "", apperr.Validation("unknown provider %s", in.Provider)
	}
	return currency, nil
}
