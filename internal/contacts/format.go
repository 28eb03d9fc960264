package contacts

import (
	"fmt"
	"strings"

	"github.com/maxghenis/imessage-mcp/internal/chatdb"
)

// FormatEndpoint renders an endpoint for display when no contact name is
// known: the local part of an email, a grouped North American number, or
// the endpoint unchanged.
func FormatEndpoint(endpoint string) string {
	if endpoint == "" {
		return "Unknown"
	}
	if local, _, ok := strings.Cut(endpoint, "@"); ok {
		return local
	}
	digits := chatdb.Digits(endpoint)
	if national := chatdb.NationalNumber(digits); national != "" {
		digits = national
	}
	if len(digits) == 10 {
		return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
	}
	return endpoint
}
