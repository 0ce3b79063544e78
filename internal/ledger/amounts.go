package ledger

import (
	"math/big"
	"strings"
)

// FormatUnits renders a smallest-unit integer value as a fixed-point
// decimal string with the requested number of fractional digits.
// 200000000 with decimals=6, places=6 → "200.000000".
func FormatUnits(v *big.Int, decimals, places int) string {
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, denom, new(big.Int))

	if places <= 0 {
		return whole.String()
	}

	digits := frac.String()
	if len(digits) < decimals {
		digits = strings.Repeat("0", decimals-len(digits)) + digits
	}
	if places <= decimals {
		digits = digits[:places]
	} else {
		digits += strings.Repeat("0", places-decimals)
	}
	return whole.String() + "." + digits
}

// isFixedPointAmount reports whether s parses as a non-negative fixed-point
// decimal ("200", "200.000000"). Signs, exponents, and empty parts are
// rejected.
func isFixedPointAmount(s string) bool {
	if s == "" {
		return false
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && frac == "") {
		return false
	}
	for _, r := range whole {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
