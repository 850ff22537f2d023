package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusPending WebhookDeliveryStatus = "pending"
	WebhookDeliveryStatusSent    WebhookDeliveryStatus = "sent"
	// Dead deliveries exhausted their attempts.
	WebhookDeliveryStatusDead WebhookDeliveryStatus = "dead"
)

// WebhookDelivery is an outbox row for one merchant notification. It is
// written in the same transaction as the status change that triggers it.
type WebhookDelivery struct {
	ID            string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	PaymentID     string                `gorm:"column:payment_id;type:varchar(64);not null;index" json:"payment_id"`
	Event         string                `gorm:"column:event;type:varchar(64);not null" json:"event"`
	URL           string                `gorm:"column:url;type:varchar(512);not null" json:"url"`
	Payload       datatypes.JSON        `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Status        WebhookDeliveryStatus `gorm:"column:status;type:varchar(16);not null;index:idx_status_next,priority:1" json:"status"`
	Attempts      int                   `gorm:"column:attempts;not null;default:0" json:"attempts"`
	NextAttemptAt time.Time             `gorm:"column:next_attempt_at;not null;index:idx_status_next,priority:2" json:"next_attempt_at"`
	LastError     *string               `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func (WebhookDelivery) TableName() string { return "webhook_delivery" }
