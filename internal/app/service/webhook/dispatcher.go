package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/pkg/config"
	"github.com/paymint/paymint/pkg/metrics"
)

const (
	retryBase = 10 * time.Second
	retryCap  = 15 * time.Minute
)

// Dispatcher polls the outbox and POSTs due deliveries. Each attempt is
// claimed with a conditional update, so several replicas may run it.
type Dispatcher struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	cfg    config.WebhookConfig
	client *http.Client
	signer *Signer
	now    func() time.Time
	kick   chan struct{}
}

func NewDispatcher(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config) *Dispatcher {
	wc := cfg.Webhook
	if wc.MaxAttempts <= 0 {
		wc.MaxAttempts = 1
	}
	if wc.BatchSize <= 0 {
		wc.BatchSize = 20
	}
	if wc.PollInterval <= 0 {
		wc.PollInterval = 5 * time.Second
	}
	if wc.Timeout <= 0 {
		wc.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		db:     db,
		log:    log.With("component", "webhook"),
		cfg:    wc,
		client: &http.Client{Timeout: wc.Timeout},
		signer: NewSigner(wc.SigningSecret),
		now:    time.Now,
		kick:   make(chan struct{}, 1),
	}
}

// Kick wakes the worker without waiting for the next poll. It never blocks.
func (d *Dispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run delivers until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := d.DeliverDue(ctx); err != nil && ctx.Err() == nil {
			d.log.Errorw("webhook poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
	}
}

// DeliverDue attempts every pending delivery whose next attempt is due and
// returns how many attempts were made.
func (d *Dispatcher) DeliverDue(ctx context.Context) (int, error) {
	var due []*models.WebhookDelivery
	err := d.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.WebhookDeliveryStatusPending, d.now()).
		Order("next_attempt_at ASC").
		Limit(d.cfg.BatchSize).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("load due deliveries: %w", err)
	}
	attempted := 0
	for _, item := range due {
		if ctx.Err() != nil {
			break
		}
		ok, err := d.claim(ctx, item)
		if err != nil {
			return attempted, err
		}
		if !ok {
			continue
		}
		attempted++
		d.settle(ctx, item, d.post(ctx, item))
	}
	return attempted, nil
}

// claim bumps the attempt counter and leases the row past the request timeout.
func (d *Dispatcher) claim(ctx context.Context, item *models.WebhookDelivery) (bool, error) {
	lease := d.now().Add(2 * d.cfg.Timeout)
	res := d.db.WithContext(ctx).Model(&models.WebhookDelivery{}).
		Where("id = ? AND status = ? AND attempts = ?", item.ID, models.WebhookDeliveryStatusPending, item.Attempts).
		Updates(map[string]any{"attempts": item.Attempts + 1, "next_attempt_at": lease})
	if res.Error != nil {
		return false, fmt.Errorf("claim delivery %s: %w", item.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	item.Attempts++
	return true, nil
}

func (d *Dispatcher) post(ctx context.Context, item *models.WebhookDelivery) error {
	body := []byte(item.Payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, item.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "paymint-webhook/1.0")
	req.Header.Set("X-Paymint-Event", item.Event)
	req.Header.Set("X-Paymint-Delivery", item.ID)
	sig, err := d.signer.Sign(item.ID, item.PaymentID, body, d.now())
	if err != nil {
		return err
	}
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) settle(ctx context.Context, item *models.WebhookDelivery, sendErr error) {
	log := d.log.With("delivery_id", item.ID, "payment_id", item.PaymentID, "attempt", item.Attempts)
	updates := map[string]any{}
	switch {
	case sendErr == nil:
		updates["status"] = models.WebhookDeliveryStatusSent
		updates["last_error"] = nil
		metrics.WebhookDeliveries.WithLabelValues("sent").Inc()
		log.Infow("webhook delivered")
	case item.Attempts >= d.cfg.MaxAttempts:
		updates["status"] = models.WebhookDeliveryStatusDead
		updates["last_error"] = lo.ToPtr(sendErr.Error())
		metrics.WebhookDeliveries.WithLabelValues("dead").Inc()
		log.Errorw("webhook delivery gave up", "error", sendErr)
	default:
		updates["next_attempt_at"] = d.now().Add(Backoff(item.Attempts))
		updates["last_error"] = lo.ToPtr(sendErr.Error())
		metrics.WebhookDeliveries.WithLabelValues("retry").Inc()
		log.Warnw("webhook delivery failed, will retry", "error", sendErr)
	}
	// the outcome must be recorded even when shutdown interrupted the request
	if err := d.db.WithContext(context.WithoutCancel(ctx)).Model(&models.WebhookDelivery{}).
		Where("id = ?", item.ID).Updates(updates).Error; err != nil {
		log.Errorw("failed to record webhook outcome", "error", err)
	}
}

// Backoff returns the wait before attempt n+1, doubling from retryBase up to retryCap.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := retryBase
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= retryCap {
			return retryCap
		}
	}
	return wait
}

func runDispatcher(lc fx.Lifecycle, d *Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Run(ctx)
			}()
			d.log.Infow("webhook dispatcher started", "poll_interval", d.cfg.PollInterval.String())
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return errors.New("webhook dispatcher did not stop in time")
			}
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewDispatcher),
	fx.Invoke(runDispatcher),
)
