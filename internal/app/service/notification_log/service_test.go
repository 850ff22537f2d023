package notification_log

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/internal/platform/db/dbtest"
	"github.com/paymint/paymint/pkg/logctx"
)

func waitForLogs(t *testing.T, s *Service, n int64) []models.PaymentNotificationLog {
	t.Helper()
	var rows []models.PaymentNotificationLog
	require.Eventually(t, func() bool {
		var count int64
		if err := s.db.Model(&models.PaymentNotificationLog{}).Count(&count).Error; err != nil {
			return false
		}
		return count == n
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.db.Order("payment_id").Find(&rows).Error)
	return rows
}

func TestRecord(t *testing.T) {
	s := New(dbtest.New(t), zap.NewNop().Sugar())
	ctx := logctx.WithTraceID(context.Background(), "trace-1")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Record(ctx, Entry{Provider: "stripe", PaymentID: "pay_a", Data: map[string]string{"session_id": "cs_1"}, Result: "paid", At: at})
	s.Record(ctx, Entry{Provider: "iyzico", PaymentID: "pay_b", Err: errors.New("token expired"), At: at})

	rows := waitForLogs(t, s, 2)
	require.Equal(t, models.PaymentNotificationLogStatusHandled, rows[0].Status)
	require.Equal(t, "trace-1", rows[0].TraceID)
	require.JSONEq(t, `{"session_id":"cs_1"}`, string(rows[0].Data))

	require.Equal(t, models.PaymentNotificationLogStatusHandleFailed, rows[1].Status)
	require.NotNil(t, rows[1].Result)
	require.JSONEq(t, `{"result":null,"error":"token expired"}`, string(*rows[1].Result))
}
