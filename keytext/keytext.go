// Package keytext implements the RFC 4648 base32 text encoding used to
// carry OTP shared secrets as human-typable text.
//
// Encoding is strict: the standard alphabet A-Z2-7 in big-endian bit
// order, padded with "=" to a multiple of 8 characters. Decoding is
// relaxed in the ways transcribed setup keys are typically sloppy:
// interior whitespace and dashes are ignored, case does not matter, and
// missing trailing padding is repaired.
package keytext

import (
	"errors"
	"fmt"
	"strings"
)

// alphabet is the standard RFC 4648 base32 alphabet, in value order.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// ErrInvalidBase32 is reported by Decode when its input contains a
// character outside the encoding alphabet.
var ErrInvalidBase32 = errors.New("invalid base32 string")

// Encode encodes data as base32 text with trailing "=" padding.
// An empty input encodes as "".
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(8 * ((len(data) + 4) / 5))

	var acc uint // bit accumulator, most significant bits first
	var nb int   // number of pending bits in acc
	for _, b := range data {
		acc = acc<<8 | uint(b)
		nb += 8
		for nb >= 5 {
			nb -= 5
			sb.WriteByte(alphabet[(acc>>nb)&31])
		}
	}
	if nb > 0 {
		sb.WriteByte(alphabet[(acc<<(5-nb))&31]) // final partial group
	}
	for sb.Len()%8 != 0 {
		sb.WriteByte('=')
	}
	return sb.String()
}

// Decode decodes base32 text into bytes, exactly inverting Encode.
//
// Whitespace and dashes anywhere in s are ignored, lower-case letters
// are accepted, and absent trailing padding is tolerated. Any other
// character outside the alphabet is an error wrapping ErrInvalidBase32.
func Decode(s string) ([]byte, error) {
	clean := strings.TrimRight(normalize(s), "=")
	out := make([]byte, 0, 5*len(clean)/8)

	var acc uint
	var nb int
	for i := 0; i < len(clean); i++ {
		v := strings.IndexByte(alphabet, clean[i])
		if v < 0 {
			return nil, fmt.Errorf("%w: bad character %q at offset %d", ErrInvalidBase32, clean[i], i)
		}
		acc = acc<<5 | uint(v)
		nb += 5
		if nb >= 8 {
			nb -= 8
			out = append(out, byte(acc>>nb))
		}
	}
	// Any bits left over belong to the padding of the final group.
	return out, nil
}

// normalize strips separators and folds case prior to decoding.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ' || r == '\t' || r == '\r' || r == '\n':
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return r
	}, s)
}
