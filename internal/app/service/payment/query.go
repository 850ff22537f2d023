package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/types"
)

// StatusView is the public, PII-free projection of a payment.
type StatusView struct {
	PaymentID string                `json:"paymentId"`
	Status    types.PaymentStatus   `json:"status"`
	Amount    json.Number           `json:"amount"`
	Currency  types.Currency        `json:"currency"`
	Provider  types.PaymentProvider `json:"provider"`
}

// View is an owner-facing listing entry with customer data redacted.
type View struct {
	PaymentID    string                `json:"paymentId"`
	Status       types.PaymentStatus   `json:"status"`
	Amount       json.Number           `json:"amount"`
	Currency     types.Currency        `json:"currency"`
	Description  string                `json:"description"`
	Provider     types.PaymentProvider `json:"provider"`
	CustomerInfo models.CustomerInfo   `json:"customerInfo"`
	WebhookURL   *string               `json:"webhookUrl,omitempty"`
	ReturnURL    *string               `json:"returnUrl,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

func newView(p *models.Payment) View {
	return View{
		PaymentID:    p.PaymentID,
		Status:       p.Status,
		Amount:       p.AmountNumber(),
		Currency:     p.Currency,
		Description:  p.Description,
		Provider:     p.Provider,
		CustomerInfo: p.Customer().Redacted(),
		WebhookURL:   p.WebhookURL,
		ReturnURL:    p.ReturnURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (s *Service) GetStatus(ctx context.Context, paymentID string) (*StatusView, error) {
	p, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &StatusView{PaymentID: p.PaymentID, Status: p.Status, Amount: p.AmountNumber(), Currency: p.Currency, Provider: p.Provider}, nil
}

type ListFilter struct {
	Status   string `form:"status"`
	Provider string `form:"provider"`
}

// List returns the owner's payments, newest first, capped at the list limit.
func (s *Service) List(ctx context.Context, ownerID string, f ListFilter) ([]View, error) {
	filters := types.FiltersAnd{types.Eq("owner_id", ownerID)}
	if f.Status != "" {
		st := types.PaymentStatus(f.Status)
		if !st.Valid() {
			return nil, apperr.Validation("unknown status %s", f.Status)
		}
		filters = append(filters, types.Eq("status", st))
	}
	if f.Provider != "" {
		p := types.PaymentProvider(f.Provider)
		if !p.Valid() {
			return nil, apperr.Validation("unknown provider %s", f.Provider)
		}
		filters = append(filters, types.Eq("provider", p))
	}

	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where(filters).
		Order("created_at DESC").
		Order("payment_id DESC").
		Limit(s.cfg.ListLimit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return lo.Map(rows, func(p *models.Payment, _ int) View { return newView(p) }), nil
}

// CheckoutView carries what the hosted checkout pages render.
type CheckoutView struct {
	PaymentID   string
	Provider    types.PaymentProvider
	Status      types.PaymentStatus
	Amount      decimal.Decimal
	Currency    types.Currency
	Description string
	// FormContent is the provider-issued checkout markup (iyzico only).
	FormContent string
}

func (s *Service) Checkout(ctx context.Context, paymentID string) (*CheckoutView, error) {
	p, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	v := &CheckoutView{
		PaymentID:   p.PaymentID,
		Provider:    p.Provider,
		Status:      p.Status,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Description: p.Description,
	}
	if p.Provider == types.PaymentProviderIyzico {
		v.FormContent = p.ProviderRef
	}
	return v, nil
}
