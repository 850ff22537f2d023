package types

import "strings"

type PaymentProvider string

const (
	PaymentProviderMock   PaymentProvider = "mock"
	PaymentProviderIyzico PaymentProvider = "iyzico"
	PaymentProviderStripe PaymentProvider = "stripe"
)

var PaymentProviders = []PaymentProvider{PaymentProviderMock, PaymentProviderIyzico, PaymentProviderStripe}

func (p PaymentProvider) Valid() bool {
	switch p {
	case PaymentProviderMock, PaymentProviderIyzico, PaymentProviderStripe:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle state of a payment. Paid and failed are terminal.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid || s == PaymentStatusFailed
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// RedirectStatus is the value of the status query parameter handed back to the browser.
func (s PaymentStatus) RedirectStatus() string {
	if s == PaymentStatusPaid {
		return "success"
	}
	return "failed"
}

type Currency string

const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

const DefaultCurrency = CurrencyTRY

// NormalizeCurrency upper-cases the code and applies the default for empty input.
func NormalizeCurrency(s string) Currency {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultCurrency
	}
	return Currency(s)
}

// Outcome is the provider-neutral result of a reconciliation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

func (o Outcome) Status() PaymentStatus {
	if o == OutcomeSuccess {
		return PaymentStatusPaid
	}
	return PaymentStatusFailed
}

type AccountPlan string

const (
	AccountPlanFree    AccountPlan = "free"
	AccountPlanStarter AccountPlan = "starter"
	AccountPlanPro     AccountPlan = "pro"
)

// OperationKind tells the quota gate whether a request consumes quota.
type OperationKind string

const (
	OperationCreatePayment OperationKind = "payment.create"
	OperationReadPayment   OperationKind = "payment.read"
)

func (k OperationKind) ConsumesQuota() bool {
	return k == OperationCreatePayment
}
