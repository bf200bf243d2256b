// Package money represents amounts as integer euro cents so aggregation in
// reports never accumulates float error.
package money

import (
	"fmt"
	"math"
)

// Cents is an amount in euro cents.
type Cents int64

// FromEuros converts a euro amount to cents, rounding half away from zero.
func FromEuros(euros float64) Cents {
	return Cents(math.Round(euros * 100))
}

// Euros returns the amount as a float euro value.
func (c Cents) Euros() float64 {
	return float64(c) / 100
}

// String formats the amount in the French convention, e.g. "1234.56 EUR"
// becomes "1 234,56 €".
func (c Cents) String() string {
	neg := c < 0
	if neg {
		c = -c
	}
	euros := int64(c) / 100
	cents := int64(c) % 100

	digits := fmt.Sprintf("%d", euros)
	var grouped []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ' ')
		}
		grouped = append(grouped, d)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s,%02d €", sign, grouped, cents)
}
