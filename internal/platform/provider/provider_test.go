package provider

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/paymint/paymint/pkg/types"
)

func TestMock_InitiateReturnsLocalCheckout(t *testing.T) {
	res, err := NewMock().Initiate(context.Background(), &InitiateRequest{PaymentID: "pay_1", BaseURL: "http://localhost:3000/"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000/pay/pay_1", res.RedirectTarget)
	require.Empty(t, res.ProviderRef)
}

func TestMock_ReconcileUsesExplicitSignal(t *testing.T) {
	m := NewMock()

	res, err := m.Reconcile(context.Background(), &Callback{PaymentID: "pay_1", Success: lo.ToPtr(true)})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeSuccess, res.Outcome)
	require.Equal(t, "pay_1", res.PaymentID)

	res, err = m.Reconcile(context.Background(), &Callback{PaymentID: "pay_1", Success: lo.ToPtr(false)})
	require.NoError(t, err)
	require.Equal(t, types.OutcomeFailure, res.Outcome)

	_, err = m.Reconcile(context.Background(), &Callback{Token: "tok"})
	require.ErrorIs(t, err, ErrMockSignalMissing)
}

func TestRegistry_SkipsNilAdapters(t *testing.T) {
	var missing Adapter
	r := NewRegistry(NewMock(), missing)

	a, ok := r.Get(types.PaymentProviderMock)
	require.True(t, ok)
	require.Equal(t, types.PaymentProviderMock, a.Name())

	_, ok = r.Get(types.PaymentProviderStripe)
	require.False(t, ok)
}
