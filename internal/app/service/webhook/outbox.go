// Package webhook delivers merchant notifications from the webhook_delivery outbox.
package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/paymint/paymint/internal/models"
	"github.com/paymint/paymint/pkg/tool"
)

const EventPaymentCompleted = "payment.completed"

// Payload is the JSON body POSTed to the merchant's webhook url.
type Payload struct {
	Event      string      `json:"event"`
	PaymentID  string      `json:"paymentId"`
	Status     string      `json:"status"`
	Amount     json.Number `json:"amount"`
	Currency   string      `json:"currency"`
	Provider   string      `json:"provider"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func NewPayload(event string, p *models.Payment, at time.Time) Payload {
	return Payload{
		Event:      event,
		PaymentID:  p.PaymentID,
		Status:     string(p.Status),
		Amount:     p.AmountNumber(),
		Currency:   string(p.Currency),
		Provider:   string(p.Provider),
		OccurredAt: at.UTC(),
	}
}

// Enqueue writes a pending delivery on tx. Payments without a webhook url
// are skipped.
func Enqueue(tx *gorm.DB, p *models.Payment, event string, at time.Time) (*models.WebhookDelivery, error) {
	if p.WebhookURL == nil || *p.WebhookURL == "" {
		return nil, nil
	}
	body, err := json.Marshal(NewPayload(event, p, at))
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	d := &models.WebhookDelivery{
		ID:            tool.GenerateUUIDV7(),
		PaymentID:     p.PaymentID,
		Event:         event,
		URL:           *p.WebhookURL,
		Payload:       datatypes.JSON(body),
		Status:        models.WebhookDeliveryStatusPending,
		NextAttemptAt: at,
	}
	if err := tx.Create(d).Error; err != nil {
		return nil, fmt.Errorf("enqueue webhook delivery: %w", err)
	}
	return d, nil
}
