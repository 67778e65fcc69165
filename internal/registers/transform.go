// internal/registers/transform.go
package registers

import "math"

// Decode converts a raw register word into a physical value.
// Pure: no IO, no mutation of d.
//
// Rounding is half-to-even on the scaled value, so 0.125 rounded to two
// digits is 0.12 and 2.5 rounded to zero digits is 2.
func Decode(d Def, raw uint16) float64 {
	var v float64
	if d.Signed {
		v = float64(int16(raw))
	} else {
		v = float64(raw)
	}

	if d.Multiplier != nil {
		v *= *d.Multiplier
	}

	if d.RoundDigits != nil {
		v = roundHalfEven(v, *d.RoundDigits)
	}

	return v
}

func roundHalfEven(v float64, digits int) float64 {
	if digits <= 0 {
		return math.RoundToEven(v)
	}
	p := math.Pow10(digits)
	r := math.RoundToEven(v*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return v
	}
	return r
}
