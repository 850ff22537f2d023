// Package provider defines the contract every payment provider adapter
// implements. Provider-specific result vocabularies never cross it: callers
// only see types.Outcome.
package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/paymint/paymint/pkg/types"
)

type Customer struct {
	Name  string
	Email string
}

// InitiateRequest carries everything an adapter needs to open a checkout.
type InitiateRequest struct {
	PaymentID   string
	Amount      decimal.Decimal
	Currency    types.Currency
	Description string
	Customer    Customer
	ClientIP    string
	// BaseURL is the public origin used to build callback and checkout URLs.
	BaseURL string
}

type InitiateResult struct {
	// RedirectTarget is where the payer's browser is sent next.
	RedirectTarget string
	// ProviderRef is opaque state persisted with the payment.
	ProviderRef string
}

// Callback is what arrives when the payer returns from the provider. Hosted
// providers fill Token; the mock provider is driven by PaymentID and Success.
type Callback struct {
	Token     string
	Cancelled bool
	PaymentID string
	Success   *bool
}

type ReconcileResult struct {
	Outcome types.Outcome
	// PaymentID is the correlation id the provider echoed back.
	PaymentID string
}

type Adapter interface {
	Name() types.PaymentProvider
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error)
	Reconcile(ctx context.Context, cb *Callback) (*ReconcileResult, error)
}

// Registry resolves adapters by provider name. Providers without
// credentials are simply absent.
type Registry struct {
	adapters map[types.PaymentProvider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.PaymentProvider]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Name()] = a
		}
	}
	return r
}

func (r *Registry) Get(p types.PaymentProvider) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.adapters[p]
	return a, ok
}
