package payment

import (
	"net/url"

	"github.com/paymint/paymint/pkg/types"
)

const defaultReturnURL = "/demo"

// RedirectURL appends status=success|failed to the caller's return url, or
// to the default page, keeping any query already present.
func (s *Service) RedirectURL(returnURL *string, status types.PaymentStatus) string {
	target := s.cfg.DefaultReturnURL
	if target == "" {
		target = defaultReturnURL
	}
	if returnURL != nil && *returnURL != "" {
		target = *returnURL
	}
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: defaultReturnURL}
	}
	q := u.Query()
	q.Set("status", status.RedirectStatus())
	u.RawQuery = q.Encode()
	return u.String()
}

// FailureURL is where the browser lands when a callback cannot be resolved.
func (s *Service) FailureURL() string {
	return s.RedirectURL(nil, types.PaymentStatusFailed)
}
