package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/paymint/paymint/pkg/apperr"
)

func TestCheck(t *testing.T) {
	f := New(zap.NewNop().Sugar())
	base := Input{Amount: decimal.NewFromInt(150), Description: "Order 42", CustomerName: "Ahmet Yilmaz", CustomerEmail: "ahmet@example.com"}

	tests := []struct {
		name    string
		mutate  func(in *Input)
		blocked bool
	}{
		{"clean", func(*Input) {}, false},
		{"keyword in description", func(in *Input) { in.Description = "Online CASINO credits" }, true},
		{"keyword in name", func(in *Input) { in.CustomerName = "Poker Face" }, true},
		{"keyword in email", func(in *Input) { in.CustomerEmail = "crypto.fan@example.com" }, true},
		{"turkish keyword", func(in *Input) { in.Description = "Kaldıraç işlemi" }, true},
		{"disposable domain", func(in *Input) { in.CustomerEmail = "a@TempMail.com" }, true},
		{"round high amount only logs", func(in *Input) { in.Amount = decimal.NewFromInt(20000) }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			err := f.Check(context.Background(), in)
			if tc.blocked {
				require.True(t, errors.Is(err, apperr.ErrSecurityViolation))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheck_StructuringWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := New(zap.New(core).Sugar())

	require.NoError(t, f.Check(context.Background(), Input{Amount: decimal.NewFromInt(10000), Description: "Invoice"}))
	require.Equal(t, 1, logs.FilterMessage("risk: round high amount").Len())

	require.NoError(t, f.Check(context.Background(), Input{Amount: decimal.RequireFromString("10500.50"), Description: "Invoice"}))
	require.NoError(t, f.Check(context.Background(), Input{Amount: decimal.NewFromInt(9000), Description: "Invoice"}))
	require.Equal(t, 1, logs.FilterMessage("risk: round high amount").Len())
}

func TestNewWithLists_CaseInsensitive(t *testing.T) {
	f := NewWithLists(zap.NewNop().Sugar(), []string{"LOTTO"}, []string{"Spam.Example"})
	base := Input{Amount: decimal.NewFromInt(10), Description: "Order 42", CustomerName: "Ahmet Yilmaz", CustomerEmail: "ahmet@example.com"}

	in := base
	in.Description = "weekly lotto ticket"
	require.ErrorIs(t, f.Check(context.Background(), in), apperr.ErrSecurityViolation)

	in = base
	in.CustomerEmail = "a@SPAM.example"
	require.ErrorIs(t, f.Check(context.Background(), in), apperr.ErrSecurityViolation)

	require.NoError(t, f.Check(context.Background(), base))
}
