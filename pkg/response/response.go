package response

import (
	"errors"
	"net/http"

	"github.com/paymint/paymint/pkg/apperr"
)

type APIResponseCode int

const (
	APIResponseCodeOK                APIResponseCode = 0
	APIResponseCodeBadRequest        APIResponseCode = 40000
	APIResponseCodeUnauthorized      APIResponseCode = 40100
	APIResponseCodeQuotaExceeded     APIResponseCode = 40200
	APIResponseCodeSecurityViolation APIResponseCode = 40300
	APIResponseCodeNotFound          APIResponseCode = 40400
	APIResponseCodeConflict          APIResponseCode = 40900
	APIResponseCodeError             APIResponseCode = 50000
	APIResponseCodeProviderError     APIResponseCode = 50200
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:                "ok",
	APIResponseCodeBadRequest:        "validation error",
	APIResponseCodeUnauthorized:      "unauthorized",
	APIResponseCodeQuotaExceeded:     "quota exceeded",
	APIResponseCodeSecurityViolation: "security violation",
	APIResponseCodeNotFound:          "not found",
	APIResponseCodeConflict:          "conflict",
	APIResponseCodeError:             "internal error",
	APIResponseCodeProviderError:     "provider error",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

var kinds = []struct {
	err    error
	code   APIResponseCode
	status int
}{
	{apperr.ErrValidation, APIResponseCodeBadRequest, http.StatusBadRequest},
	{apperr.ErrUnauthorized, APIResponseCodeUnauthorized, http.StatusUnauthorized},
	{apperr.ErrQuotaExceeded, APIResponseCodeQuotaExceeded, http.StatusPaymentRequired},
	{apperr.ErrSecurityViolation, APIResponseCodeSecurityViolation, http.StatusForbidden},
	{apperr.ErrNotFound, APIResponseCodeNotFound, http.StatusNotFound},
	{apperr.ErrConflict, APIResponseCodeConflict, http.StatusConflict},
	{apperr.ErrProvider, APIResponseCodeProviderError, http.StatusBadGateway},
}

// FromError maps an error onto an HTTP status and an error envelope carrying
// the error text. Unknown errors become 500 with a generic message.
func FromError(err error) (int, *APIResponse[any]) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status, ErrorT[any](k.code, err.Error())
		}
	}
	return http.StatusInternalServerError, ErrorT[any](APIResponseCodeError, nil)
}
