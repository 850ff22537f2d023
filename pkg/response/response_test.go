package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paymint/paymint/pkg/apperr"
)

func TestFromError_MapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   APIResponseCode
	}{
		{apperr.Validation("bad amount"), http.StatusBadRequest, APIResponseCodeBadRequest},
		{apperr.Unauthorized("missing key"), http.StatusUnauthorized, APIResponseCodeUnauthorized},
		{apperr.QuotaExceeded("limit"), http.StatusPaymentRequired, APIResponseCodeQuotaExceeded},
		{apperr.SecurityViolation("casino"), http.StatusForbidden, APIResponseCodeSecurityViolation},
		{fmt.Errorf("lookup: %w", apperr.NotFound("pay_1")), http.StatusNotFound, APIResponseCodeNotFound},
		{apperr.Conflict("email"), http.StatusConflict, APIResponseCodeConflict},
		{apperr.Provider(errors.New("boom"), "stripe"), http.StatusBadGateway, APIResponseCodeProviderError},
		{errors.New("db down"), http.StatusInternalServerError, APIResponseCodeError},
	}
	for _, tc := range cases {
		status, body := FromError(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.code, body.Code)
	}
}

func TestFromError_HidesInternalDetail(t *testing.T) {
	_, body := FromError(errors.New("pq: password authentication failed"))
	require.Nil(t, body.Data)
	require.Equal(t, "internal error", body.Message)
}
