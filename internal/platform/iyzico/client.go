// Package iyzico talks to the Iyzico checkout form API and adapts it to the
// provider contract.
package iyzico

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	pathInitialize = "/payment/iyzipos/checkoutform/initialize/auth/ecom"
	pathRetrieve   = "/payment/iyzipos/checkoutform/auth/ecom/detail"

	statusSuccess = "success"
)

// Client is a minimal IYZWSv2 signed JSON client.
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey, secretKey, baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Response fields common to every Iyzico reply.
type baseResponse struct {
	Status         string `json:"status"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
	Locale         string `json:"locale"`
	SystemTime     int64  `json:"systemTime"`
	ConversationID string `json:"conversationId"`
}

func (r baseResponse) err() error {
	if r.Status == statusSuccess {
		return nil
	}
	msg := r.ErrorMessage
	if msg == "" {
		msg = "unknown error"
	}
	if r.ErrorCode != "" {
		return fmt.Errorf("iyzico: %s (code %s)", msg, r.ErrorCode)
	}
	return fmt.Errorf("iyzico: %s", msg)
}

type Buyer struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	GsmNumber           string `json:"gsmNumber,omitempty"`
	Email               string `json:"email"`
	IdentityNumber      string `json:"identityNumber"`
	LastLoginDate       string `json:"lastLoginDate,omitempty"`
	RegistrationAddress string `json:"registrationAddress"`
	IP                  string `json:"ip"`
	City                string `json:"city"`
	Country             string `json:"country"`
	ZipCode             string `json:"zipCode,omitempty"`
}

type Address struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	ZipCode     string `json:"zipCode,omitempty"`
}

type BasketItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category1 string `json:"category1"`
	ItemType  string `json:"itemType"`
	Price     string `json:"price"`
}

type InitializeRequest struct {
	Locale              string       `json:"locale"`
	ConversationID      string       `json:"conversationId"`
	Price               string       `json:"price"`
	PaidPrice           string       `json:"paidPrice"`
	Currency            string       `json:"currency"`
	BasketID            string       `json:"basketId"`
	PaymentGroup        string       `json:"paymentGroup"`
	CallbackURL         string       `json:"callbackUrl"`
	EnabledInstallments []int        `json:"enabledInstallments"`
	Buyer               Buyer        `json:"buyer"`
	ShippingAddress     Address      `json:"shippingAddress"`
	BillingAddress      Address      `json:"billingAddress"`
	BasketItems         []BasketItem `json:"basketItems"`
}

type InitializeResponse struct {
	baseResponse
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	PaymentPageURL      string `json:"paymentPageUrl"`
	TokenExpireTime     int64  `json:"tokenExpireTime"`
}

type RetrieveRequest struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId,omitempty"`
	Token          string `json:"token"`
}

type RetrieveResponse struct {
	baseResponse
	Token         string      `json:"token"`
	PaymentStatus string      `json:"paymentStatus"`
	PaymentID     string      `json:"paymentId"`
	BasketID      string      `json:"basketId"`
	Price         json.Number `json:"price"`
	PaidPrice     json.Number `json:"paidPrice"`
	Currency      string      `json:"currency"`
}

func (c *Client) InitializeCheckoutForm(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	var out InitializeResponse
	if err := c.post(ctx, pathInitialize, req, &out); err != nil {
		return nil, err
	}
	if err := out.err(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RetrieveCheckoutForm(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error) {
	var out RetrieveResponse
	if err := c.post(ctx, pathRetrieve, req, &out); err != nil {
		return nil, err
	}
	// declined payments come back as failures that still name the basket
	if err := out.err(); err != nil && out.BasketID == "" {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	randomKey := c.randomKey()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-iyzi-rnd", randomKey)
	req.Header.Set("Authorization", Authorization(c.apiKey, c.secretKey, randomKey, path, body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("iyzico request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("iyzico %s: status %d: decode response: %w", path, resp.StatusCode, err)
	}
	return nil
}

func (c *Client) randomKey() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		n = big.NewInt(0)
	}
	return strconv.FormatInt(c.now().UnixMilli(), 10) + n.String()
}

// Authorization builds the IYZWSv2 header value for a request body sent to uriPath.
func Authorization(apiKey, secretKey, randomKey, uriPath string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(randomKey))
	mac.Write([]byte(uriPath))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	params := "apiKey:" + apiKey + "&randomKey:" + randomKey + "&signature:" + signature
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(params))
}
