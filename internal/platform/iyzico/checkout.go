package iyzico

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paymint/paymint/internal/platform/provider"
	"github.com/paymint/paymint/pkg/types"
)

const (
	localeTR          = "tr"
	paymentGroup      = "PRODUCT"
	itemTypeVirtual   = "VIRTUAL"
	paymentSuccess    = "SUCCESS"
	fallbackFirstName = "Misafir"
	fallbackSurname   = "Kullanıcı"
)

// Buyer fields Iyzico requires but the service does not collect.
var placeholderBuyer = Buyer{
	GsmNumber:           "+905300000000",
	IdentityNumber:      "11111111111",
	LastLoginDate:       "2015-10-05 12:43:35",
	RegistrationAddress: "Nidakule Göztepe, Merdivenköy Mah. Bora Sok. No:1",
	City:                "Istanbul",
	Country:             "Turkey",
	ZipCode:             "34732",
}

type Adapter struct {
	client *Client
}

func New(client *Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) Name() types.PaymentProvider { return types.PaymentProviderIyzico }

// Initiate opens a checkout form. The form markup is kept as ProviderRef and
// rendered by the service's own checkout page.
func (a *Adapter) Initiate(ctx context.Context, req *provider.InitiateRequest) (*provider.InitiateResult, error) {
	base := strings.TrimRight(req.BaseURL, "/")
	price := req.Amount.StringFixed(2)
	first, last := SplitName(req.Customer.Name)

	buyer := placeholderBuyer
	buyer.ID = req.PaymentID
	buyer.Name = first
	buyer.Surname = last
	buyer.Email = req.Customer.Email
	buyer.IP = req.ClientIP

	addr := Address{
		ContactName: req.Customer.Name,
		City:        placeholderBuyer.City,
		Country:     placeholderBuyer.Country,
		Address:     "Test Adresi",
		ZipCode:     placeholderBuyer.ZipCode,
	}

	resp, err := a.client.InitializeCheckoutForm(ctx, &InitializeRequest{
		Locale:              localeTR,
		ConversationID:      req.PaymentID,
		Price:               price,
		PaidPrice:           price,
		Currency:            string(req.Currency),
		BasketID:            req.PaymentID,
		PaymentGroup:        paymentGroup,
		CallbackURL:         base + "/api/payments/iyzico/callback",
		EnabledInstallments: []int{1, 2, 3, 6, 9},
		Buyer:               buyer,
		ShippingAddress:     addr,
		BillingAddress:      addr,
		BasketItems: []BasketItem{{
			ID:        "BI101",
			Name:      req.Description,
			Category1: "Dijital Ürün",
			ItemType:  itemTypeVirtual,
			Price:     price,
		}},
	})
	if err != nil {
		return nil, err
	}
	if resp.CheckoutFormContent == "" {
		return nil, errors.New("iyzico: empty checkout form content")
	}
	return &provider.InitiateResult{
		RedirectTarget: CheckoutPageURL(base, req.PaymentID),
		ProviderRef:    resp.CheckoutFormContent,
	}, nil
}

func (a *Adapter) Reconcile(ctx context.Context, cb *provider.Callback) (*provider.ReconcileResult, error) {
	if cb == nil || cb.Token == "" {
		return nil, errors.New("missing checkout token")
	}
	resp, err := a.client.RetrieveCheckoutForm(ctx, &RetrieveRequest{Locale: localeTR, Token: cb.Token})
	if err != nil {
		return nil, err
	}
	if resp.BasketID == "" {
		return nil, fmt.Errorf("iyzico: checkout %s carries no basket id", cb.Token)
	}
	outcome := types.OutcomeFailure
	if resp.PaymentStatus == paymentSuccess {
		outcome = types.OutcomeSuccess
	}
	return &provider.ReconcileResult{Outcome: outcome, PaymentID: resp.BasketID}, nil
}

func CheckoutPageURL(baseURL, paymentID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/payments/" + paymentID + "/checkout"
}

// SplitName splits a full name into first name and surname, with fallbacks
// for either part when missing.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	first, last := fallbackFirstName, fallbackSurname
	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}
