package tool

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratePaymentID returns a time-ordered opaque payment handle, e.g. pay_0192...
func GeneratePaymentID() string {
	return "pay_" + compact(uuid.Must(uuid.NewV7()))
}

// GenerateAPIKey returns a random secret api key, e.g. pm_live_3f2a...
func GenerateAPIKey() string {
	return "pm_live_" + compact(uuid.New())
}

func compact(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
