package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/paymint/paymint/internal/app/service/webhook"
	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/internal/platform/eventbus"
	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/apperr"
	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/metrics"
	"github.com/paymint/paymint/pkg/types"
)

type ReconcileResult struct {
	PaymentID string              `json:"paymentId"`
	Status    types.PaymentStatus `json:"status"`
	// Transitioned is false when the payment was already terminal.
	Transitioned bool   `json:"-"`
	RedirectURL  string `json:"redirectUrl"`
}

// Reconcile resolves a provider callback to its payment and moves it out of
// pending exactly once. Duplicate callbacks on a terminal payment only
// recompute the redirect.
func (s *Service) Reconcile(ctx context.Context, providerName types.PaymentProvider, cb *provider.Callback) (*ReconcileResult, error) {
	adapter, ok := s.providers.Get(providerName)
	if !ok {
		return nil, apperr.NotFound("provider %s", providerName)
	}

	start := time.Now()
	outcome, err := adapter.Reconcile(ctx, cb)
	metrics.ProviderLatency.WithLabelValues(string(providerName), "reconcile").Observe(metrics.MillisecondsSince(start))
	if err != nil {
		return nil, apperr.Provider(err, "%s reconcile failed", providerName)
	}
	if outcome.PaymentID == "" {
		return nil, apperr.Provider(nil, "%s returned no payment id", providerName)
	}

	p, err := s.find(ctx, outcome.PaymentID)
	if err != nil {
		return nil, err
	}
	if p.Provider != providerName {
		return nil, apperr.NotFound("payment %s for provider %s", outcome.PaymentID, providerName)
	}
	return s.transition(ctx, p, outcome.Outcome.Status())
}

// Complete is the mock provider's explicit completion signal.
func (s *Service) Complete(ctx context.Context, paymentID string, success bool) (*ReconcileResult, error) {
	p, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Provider != types.PaymentProviderMock {
		return nil, apperr.Validation("explicit completion is only supported for mock payments")
	}
	return s.Reconcile(ctx, types.PaymentProviderMock, &provider.Callback{PaymentID: paymentID, Success: &success})
}

func (s *Service) transition(ctx context.Context, p *models.Payment, target types.PaymentStatus) (*ReconcileResult, error) {
	log := logctx.FromCtx(ctx, s.log).With("payment_id", p.PaymentID, "provider", p.Provider)

	if p.Status.IsTerminal() {
		log.Infow("duplicate reconciliation ignored", "status", p.Status)
		return s.result(p, false), nil
	}

	now := s.now()
	won := false
	var delivery *models.WebhookDelivery
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("payment_id = ? AND status = ?", p.PaymentID, types.PaymentStatusPending).
			Updates(map[string]any{"status": target, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("update payment status: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return nil
		}
		won = true
		p.Status = target
		p.UpdatedAt = now
		if target != types.PaymentStatusPaid {
			return nil
		}
		if err := s.usage.IncrementUsage(ctx, tx, p.OwnerID); err != nil {
			return err
		}
		d, err := webhook.Enqueue(tx, p, webhook.EventPaymentCompleted, now)
		if err != nil {
			return err
		}
		delivery = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile payment %s: %w", p.PaymentID, err)
	}

	if !won {
		// a concurrent callback got there first
		fresh, err := s.find(ctx, p.PaymentID)
		if err != nil {
			return nil, err
		}
		log.Infow("reconciliation lost race", "status", fresh.Status)
		return s.result(fresh, false), nil
	}

	metrics.PaymentsReconciled.WithLabelValues(string(p.Provider), string(target)).Inc()
	log.Infow("payment reconciled", "status", target)
	if delivery != nil && s.notifier != nil {
		s.notifier.Kick()
	}
	s.publish(ctx, p, now)
	return s.result(p, true), nil
}

func (s *Service) publish(ctx context.Context, p *models.Payment, at time.Time) {
	e := eventbus.Event{
		Type:       eventbus.EventPaymentFailed,
		PaymentID:  p.PaymentID,
		OwnerID:    p.OwnerID,
		Provider:   string(p.Provider),
		Amount:     p.AmountNumber(),
		Currency:   string(p.Currency),
		Status:     string(p.Status),
		OccurredAt: at.UTC(),
	}
	if p.Status == types.PaymentStatusPaid {
		e.Type = eventbus.EventPaymentPaid
	}
	ctx = logctx.Detach(ctx)
	go func() {
		if err := s.events.Publish(ctx, e); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("failed to publish payment event", "payment_id", e.PaymentID, "type", e.Type, "error", err)
		}
	}()
}

func (s *Service) result(p *models.Payment, transitioned bool) *ReconcileResult {
	return &ReconcileResult{
		PaymentID:    p.PaymentID,
		Status:       p.Status,
		Transitioned: transitioned,
		RedirectURL:  s.RedirectURL(p.ReturnURL, p.Status),
	}
}

func (s *Service) find(ctx context.Context, paymentID string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("payment %s", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &p, nil
}
