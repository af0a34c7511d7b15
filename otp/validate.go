package otp

import (
	"crypto/subtle"
	"fmt"
	"time"
)

// Validate reports whether candidate matches the code for any counter
// from counter through counter+window inclusive, scanning in ascending
// order. The window only extends forward: counters are required to be
// monotonically non-decreasing, so a code for an already-consumed
// counter is never accepted. A window of 0 accepts only the exact
// counter. A mismatched candidate is not an error; the only error is a
// negative window, which reports ErrInvalidWindow.
func (h HOTP) Validate(candidate string, counter uint64, window int) (bool, error) {
	if window < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}
	for i := 0; i <= window; i++ {
		if timingSafeEqual(candidate, h.Generate(counter+uint64(i))) {
			return true, nil
		}
	}
	return false, nil
}

// Validate reports whether candidate matches the code for any time step
// within window steps on either side of the step containing when,
// scanning in ascending order. Steps that fall before the epoch offset
// cannot match and are skipped. A window of 0 accepts only the exact
// step. A mismatched candidate is not an error; the only error is a
// negative window, which reports ErrInvalidWindow.
func (t TOTP) Validate(candidate string, when time.Time, window int) (bool, error) {
	if window < 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidWindow, window)
	}
	c0 := t.stepsAt(when)
	for i := -int64(window); i <= int64(window); i++ {
		c := c0 + i
		if c < 0 {
			continue // before the epoch offset
		}
		if timingSafeEqual(candidate, t.hotp.Generate(uint64(c))) {
			return true, nil
		}
	}
	return false, nil
}

// timingSafeEqual reports whether a == b, comparing the entire length
// of both strings so that the time to reject a candidate does not
// depend on the position of the first differing character. That
// guarantee is per comparison: a validation sweep may still stop early
// when a candidate matches, which reveals only which window offset
// matched, not anything about the code contents.
func timingSafeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
