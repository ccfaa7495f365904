// Package slug provides the bijective codec used to mint short slugs
// from numeric row identifiers.
package slug

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the fixed ordered character set for auto-generated slugs.
// Ge'ez script keeps minted slugs visually distinct from custom ASCII ones.
const Alphabet = "ሀለሐመሠረሰሸቀበተቸኀነኘአከኸወዐዘዠየደጀገጠጨጰጸፀፈፐ"

// BundlePrefix marks auto-generated bundle slugs.
const BundlePrefix = "b-"

// ErrInvalidRune indicates decode input outside the alphabet.
var ErrInvalidRune = errors.New("rune not in slug alphabet")

var (
	alphabet  = []rune(Alphabet)
	base      = int64(len(alphabet))
	runeValue = func() map[rune]int64 {
		m := make(map[rune]int64, len(alphabet))
		for i, r := range alphabet {
			m[r] = int64(i)
		}
		return m
	}()
)

// Encode maps a non-negative integer to its positional base-B representation
// over the alphabet. Encode(0) is the first alphabet character.
func Encode(n int64) string {
	if n <= 0 {
		return string(alphabet[0])
	}

	var digits []rune
	for n > 0 {
		digits = append(digits, alphabet[n%base])
		n /= base
	}

	// Digits come out least-significant first; reverse for positional order.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	return string(digits)
}

// Decode is the Horner-scheme inverse of Encode.
// Returns ErrInvalidRune if the input contains a character outside the alphabet.
func Decode(s string) (int64, error) {
	var n int64
	for _, r := range s {
		v, ok := runeValue[r]
		if !ok {
			return 0, fmt.Errorf("decode %q: %w", r, ErrInvalidRune)
		}
		n = n*base + v
	}
	return n, nil
}

// IsAuto reports whether the slug looks like a codec-minted one
// (optionally carrying the bundle prefix).
func IsAuto(s string) bool {
	s = strings.TrimPrefix(s, BundlePrefix)
	if s == "" {
		return false
	}
	for _, r := range s {
		if _, ok := runeValue[r]; !ok {
			return false
		}
	}
	return true
}
