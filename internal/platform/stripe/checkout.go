// Package stripe adapts Stripe Checkout Sessions to the provider contract.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"

	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/types"
)

const metadataPaymentID = "paymentId"

// SessionAPI is the subset of the checkout session client the adapter uses.
type SessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Adapter struct {
	sessions SessionAPI
}

// NewClient builds a session client bound to secretKey, leaving the
// package-level stripe.Key untouched.
func NewClient(secretKey string) SessionAPI {
	return &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

func New(sessions SessionAPI) *Adapter {
	return &Adapter{sessions: sessions}
}

func (a *Adapter) Name() types.PaymentProvider { return types.PaymentProviderStripe }

func (a *Adapter) Initiate(ctx context.Context, req *provider.InitiateRequest) (*provider.InitiateResult, error) {
	base := strings.TrimRight(req.BaseURL, "/")
	callback := base + "/api/payments/stripe/callback?session_id={CHECKOUT_SESSION_ID}"

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(string(req.Currency))),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Description),
						Description: stripe.String("Customer: " + req.Customer.Name),
					},
					UnitAmount: stripe.Int64(MinorUnits(req)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:    stripe.String(callback),
		CancelURL:     stripe.String(callback + "&cancel=true"),
		CustomerEmail: stripe.String(req.Customer.Email),
	}
	params.Context = ctx
	params.AddMetadata(metadataPaymentID, req.PaymentID)

	s, err := a.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", describe(err))
	}
	return &provider.InitiateResult{RedirectTarget: s.URL, ProviderRef: s.ID}, nil
}

func (a *Adapter) Reconcile(ctx context.Context, cb *provider.Callback) (*provider.ReconcileResult, error) {
	if cb == nil || cb.Token == "" {
		return nil, errors.New("missing session_id")
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := a.sessions.Get(cb.Token, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", describe(err))
	}
	paymentID := s.Metadata[metadataPaymentID]
	if paymentID == "" {
		return nil, fmt.Errorf("checkout session %s carries no payment id", s.ID)
	}
	return &provider.ReconcileResult{PaymentID: paymentID, Outcome: outcomeOf(s, cb.Cancelled)}, nil
}

// outcomeOf maps Stripe's payment_status vocabulary onto the internal outcome.
func outcomeOf(s *stripe.CheckoutSession, cancelled bool) types.Outcome {
	if cancelled {
		return types.OutcomeFailure
	}
	switch s.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return types.OutcomeSuccess
	default:
		return types.OutcomeFailure
	}
}

// MinorUnits converts the amount to the smallest currency unit, rounding half away from zero.
func MinorUnits(req *provider.InitiateRequest) int64 {
	return req.Amount.Shift(2).Round(0).IntPart()
}

func describe(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return fmt.Errorf("%s (%s): %w", se.Msg, se.Code, err)
	}
	return err
}
