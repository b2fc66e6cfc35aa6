// Package common holds small utilities used across the project:
// points pluralization and formatting, shop time zone handling.
package common

import (
	"fmt"
	"time"
)

// PluralizePoints returns "point" or "points" for n.
//
// Examples:
//
//	PluralizePoints(1)   → "point"
//	PluralizePoints(-1)  → "point"
//	PluralizePoints(0)   → "points"
//	PluralizePoints(25)  → "points"
func PluralizePoints(n int64) string {
	if n == 1 || n == -1 {
		return "point"
	}
	return "points"
}

// FormatPoints formats a balance for display.
// Example: FormatPoints(1250) → "1,250 points"
func FormatPoints(n int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(n), PluralizePoints(n))
}

// FormatPointsDelta formats a ledger movement with an explicit sign.
//
//	FormatPointsDelta(100)  → "+100 points"
//	FormatPointsDelta(-50)  → "-50 points"
func FormatPointsDelta(n int64) string {
	if n >= 0 {
		return "+" + FormatPoints(n)
	}
	return FormatPoints(n)
}

// FormatNumber adds thousands separators.
// Example: FormatNumber(2350) → "2,350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatNumber(n/1000), n%1000)
}

// ShopLocation loads the shop time zone, falling back to UTC when the
// tz database does not know the name.
func ShopLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
