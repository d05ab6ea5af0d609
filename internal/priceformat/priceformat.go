// Package priceformat renders the float32 prices carried on the wire as
// exact decimal strings for display in manifests and admin API
// responses. Internal book and record keys stay float32/bit-pattern
// based; this package only ever runs at the presentation boundary.
package priceformat

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Format renders price as a decimal string built from strconv's
// shortest form that round-trips to the same float32, so the decimal
// carries no binary-float noise digits.
func Format(price float32) string {
	s := strconv.FormatFloat(float64(price), 'f', -1, 32)
	d, err := decimal.NewFromString(s)
	if err != nil {
		// price came from a valid float32; NewFromString on its own
		// FormatFloat output cannot fail.
		return s
	}
	return d.String()
}
