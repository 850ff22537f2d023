package models

import (
	"encoding/json"
	"time"

	"github.com/paymint/paymint/pkg/redact"
	"github.com/paymint/paymint/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Redacted returns a copy safe to return in listings or write to logs.
func (c CustomerInfo) Redacted() CustomerInfo {
	return CustomerInfo{Name: redact.Name(c.Name), Email: redact.Email(c.Email)}
}

// Payment is one payment attempt. PaymentID is the external handle and the
// correlation key for provider callbacks; Amount, Currency, Provider and
// OwnerID never change after insert.
type Payment struct {
	ID          string                `gorm:"column:id;primary_key;type:uuid" json:"-"`
	PaymentID   string                `gorm:"column:payment_id;type:varchar(64);not null;uniqueIndex" json:"payment_id"`
	OwnerID     string                `gorm:"column:owner_id;type:varchar(64);not null;index:idx_owner_created,priority:1" json:"owner_id"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Currency    types.Currency        `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Description string                `gorm:"column:description;type:varchar(128)" json:"description"`
	Status      types.PaymentStatus   `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Provider    types.PaymentProvider `gorm:"column:provider;type:varchar(16);not null" json:"provider"`
	// ProviderRef is opaque provider state needed to reconcile or render checkout
	// (iyzico form content, stripe session id).
	ProviderRef  string                           `gorm:"column:provider_ref;type:text" json:"-"`
	CustomerInfo datatypes.JSONType[CustomerInfo] `gorm:"column:customer_info;type:jsonb" json:"customer_info"`
	WebhookURL   *string                          `gorm:"column:webhook_url;type:varchar(512)" json:"webhook_url,omitempty"`
	ReturnURL    *string                          `gorm:"column:return_url;type:varchar(512)" json:"return_url,omitempty"`
	CreatedAt    time.Time                        `gorm:"index:idx_owner_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// AmountNumber renders the amount as a bare JSON number.
func (p *Payment) AmountNumber() json.Number {
	return json.Number(p.Amount.String())
}

func (p *Payment) Customer() CustomerInfo {
	if p == nil {
		return CustomerInfo{}
	}
	return p.CustomerInfo.Data()
}
