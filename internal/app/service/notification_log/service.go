package notification_log

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Entry describes one provider callback or completion signal.
type Entry struct {
	Provider  string
	PaymentID string
	Data      any
	Result    any
	Err       error
	At        time.Time
}

// Record asynchronously persists the outcome of a callback. It never blocks
// the browser redirect that triggered it.
func (s *Service) Record(ctx context.Context, e Entry) {
	item := &models.PaymentNotificationLog{
		ID:               tool.GenerateUUIDV7(),
		Provider:         e.Provider,
		PaymentID:        e.PaymentID,
		TraceID:          logctx.TraceID(ctx),
		NotificationTime: e.At,
		Data:             marshal(e.Data),
		Status:           models.PaymentNotificationLogStatusHandled,
	}
	result := map[string]any{"result": e.Result}
	if e.Err != nil {
		item.Status = models.PaymentNotificationLogStatusHandleFailed
		result["error"] = e.Err.Error()
	}
	raw := marshal(result)
	item.Result = &raw

	s.Save(logctx.Detach(ctx), item)
}

// Save asynchronously persists a payment notification log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, log *models.PaymentNotificationLog) {
	go func() {
		if log == nil {
			return
		}
		if log.ID == "" {
			log.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.WithContext(ctx).Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save notification log: %v", err)
		}
	}()
}

func marshal(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

var Module = fx.Options(
	fx.Provide(New),
)
