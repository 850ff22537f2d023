package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/paymint/paymint/pkg/types"
)

var ErrMockSignalMissing = errors.New("mock completion requires payment id and outcome")

// Mock is the local simulator: checkout happens on a page this service
// serves, and completion is an explicit signal from that page.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() types.PaymentProvider { return types.PaymentProviderMock }

func (m *Mock) Initiate(_ context.Context, req *InitiateRequest) (*InitiateResult, error) {
	return &InitiateResult{RedirectTarget: MockCheckoutURL(req.BaseURL, req.PaymentID)}, nil
}

func (m *Mock) Reconcile(_ context.Context, cb *Callback) (*ReconcileResult, error) {
	if cb == nil || cb.PaymentID == "" || cb.Success == nil {
		return nil, ErrMockSignalMissing
	}
	outcome := types.OutcomeFailure
	if *cb.Success {
		outcome = types.OutcomeSuccess
	}
	return &ReconcileResult{Outcome: outcome, PaymentID: cb.PaymentID}, nil
}

func MockCheckoutURL(baseURL, paymentID string) string {
	return strings.TrimRight(baseURL, "/") + "/pay/" + paymentID
}
