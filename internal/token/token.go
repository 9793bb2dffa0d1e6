// Package token provides shared parsing and formatting for GAV credit
// amounts.
//
// Amounts use 6 decimal places and are handled as big.Int in the
// smallest unit (1 GAV = 1,000,000 units). All amounts cross API
// boundaries as decimal strings ("12.500000") so no precision is lost
// in JSON.
package token

import (
	"math/big"
	"strings"
)

const Decimals = 6

// Parse converts a decimal string (e.g. "1.50") to its smallest-unit
// big.Int representation (1500000). Returns (nil, false) on invalid input.
//
// Rules:
//   - Empty string returns (0, true)
//   - Negative amounts are rejected
//   - Multiple decimal points are rejected
//   - Fractional parts are padded/truncated to 6 decimal places
func Parse(s string) (*big.Int, bool) {
	if s == "" {
		return big.NewInt(0), true
	}

	if strings.HasPrefix(s, "-") {
		return nil, false
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, false
	}
	whole := parts[0]
	frac := ""
	if len(parts) > 1 {
		frac = parts[1]
	}

	for len(frac) < Decimals {
		frac += "0"
	}
	frac = frac[:Decimals]

	combined := whole + frac
	result, ok := new(big.Int).SetString(combined, 10)
	return result, ok
}

// Format converts a smallest-unit big.Int to a decimal string with
// exactly 6 decimal places (e.g. "1.500000").
func Format(amount *big.Int) string {
	if amount == nil {
		return "0.000000"
	}
	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)
	s := abs.String()
	for len(s) < Decimals+1 {
		s = "0" + s
	}
	decimal := len(s) - Decimals
	result := s[:decimal] + "." + s[decimal:]
	if neg {
		result = "-" + result
	}
	return result
}

// IsPositive reports whether s parses to an amount strictly above zero.
func IsPositive(s string) bool {
	v, ok := Parse(s)
	return ok && v.Sign() > 0
}

// GreaterThan reports whether a > b. Invalid input compares as false.
func GreaterThan(a, b string) bool {
	av, ok := Parse(a)
	if !ok {
		return false
	}
	bv, ok := Parse(b)
	if !ok {
		return false
	}
	return av.Cmp(bv) > 0
}

// Add returns a + b formatted back to a decimal string. Invalid operands
// are treated as zero.
func Add(a, b string) string {
	av, ok := Parse(a)
	if !ok {
		av = big.NewInt(0)
	}
	bv, ok := Parse(b)
	if !ok {
		bv = big.NewInt(0)
	}
	return Format(new(big.Int).Add(av, bv))
}

// IsZero reports whether s parses to exactly zero (or is empty/invalid).
func IsZero(s string) bool {
	v, ok := Parse(s)
	return !ok || v.Sign() == 0
}
