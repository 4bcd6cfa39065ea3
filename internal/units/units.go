// Package units converts user supplied quantities into quintals, the canonical
// mass unit used for every price and quantity computation.
package units

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourorg/mandi-compare/internal/model"
)

// Supported unit tags.
const (
	Quintal = "quintal"
	Ton     = "ton"
	Kg      = "kg"
)

var quintalsPer = map[string]decimal.Decimal{
	Quintal: decimal.NewFromInt(1),
	Ton:     decimal.NewFromInt(10),
	Kg:      decimal.New(1, -2),
}

// Supported returns the unit tags accepted by Normalize.
func Supported() []string {
	return []string{Quintal, Ton, Kg}
}

// Normalize parses quantity and converts it from unit into quintals.
// The quantity must be a positive decimal number whose quintal value is
// representable as a finite, non-zero float64, and the unit one of quintal,
// ton or kg; anything else fails with model.ErrInvalidInput.
func Normalize(quantity, unit string) (float64, error) {
	factor, ok := quintalsPer[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported unit %q", model.ErrInvalidInput, unit)
	}

	q, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q is not a number", model.ErrInvalidInput, quantity)
	}
	if !q.IsPositive() {
		return 0, fmt.Errorf("%w: quantity must be positive, got %s", model.ErrInvalidInput, q.String())
	}

	quintals, _ := q.Mul(factor).Float64()
	if math.IsInf(quintals, 0) || math.IsNaN(quintals) || quintals <= 0 {
		return 0, fmt.Errorf("%w: quantity %s is out of range", model.ErrInvalidInput, q.String())
	}
	return quintals, nil
}
