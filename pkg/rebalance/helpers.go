package rebalance

import (
	"strings"
	"time"
)

// timeNow is swapped in tests that need a fixed analysis timestamp.
var timeNow = time.Now

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normalizeMarket(market string) string {
	return strings.ToUpper(strings.TrimSpace(market))
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// isValidCurrency accepts ISO-4217-shaped codes (three ASCII letters).
func isValidCurrency(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
