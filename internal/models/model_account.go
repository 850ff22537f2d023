package models

import (
	"time"

	"github.com/paymint/paymint/pkg/types"
)

// Account is an api-key holder. UsageCount counts paid payments inside the
// rolling window that starts at UsagePeriodStart.
type Account struct {
	ID               string            `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Email            string            `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	CredentialHash   string            `gorm:"column:credential_hash;type:varchar(255);not null" json:"-"`
	APIKey           string            `gorm:"column:api_key;type:varchar(64);not null;uniqueIndex" json:"-"`
	Plan             types.AccountPlan `gorm:"column:plan;type:varchar(16);not null;default:'free'" json:"plan"`
	UsageCount       int               `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	UsageLimit       int               `gorm:"column:usage_limit;not null" json:"usage_limit"`
	UsagePeriodStart time.Time         `gorm:"column:usage_period_start;not null" json:"usage_period_start"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// WindowElapsed reports whether the quota window has rolled over at now.
func (a *Account) WindowElapsed(now time.Time, window time.Duration) bool {
	return !now.Before(a.UsagePeriodStart.Add(window))
}

func (a *Account) QuotaLeft() bool {
	return a.UsageCount < a.UsageLimit
}
