package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SignatureHeader = "X-Paymint-Signature"
	signatureIssuer = "paymint"
	signatureTTL    = 5 * time.Minute
)

// SignatureClaims binds a token to one delivery body through its digest.
type SignatureClaims struct {
	BodySHA256 string `json:"body_sha256"`
	PaymentID  string `json:"payment_id"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
}

// NewSigner returns nil for an empty secret; a nil Signer signs nothing.
func NewSigner(secret string) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(deliveryID, paymentID string, body []byte, now time.Time) (string, error) {
	if s == nil {
		return "", nil
	}
	claims := SignatureClaims{
		BodySHA256: digest(body),
		PaymentID:  paymentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signatureIssuer,
			ID:        deliveryID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(signatureTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign webhook: %w", err)
	}
	return token, nil
}

// Verify checks a signature header against the received body, as a merchant would.
func Verify(secret, token string, body []byte) (*SignatureClaims, error) {
	var claims SignatureClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(signatureIssuer))
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}
	if claims.BodySHA256 != digest(body) {
		return nil, errors.New("webhook body digest mismatch")
	}
	return &claims, nil
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
