// Package otp generates and validates single-use authenticator codes
// using the HOTP and TOTP algorithms specified in RFC 4226 and RFC 6238
// respectively.
//
// The keyed-hash computation underlying both algorithms is not
// performed by this package. It is supplied by the caller as a
// KeyedHash capability; see package macs for an implementation backed
// by the standard library. This keeps the engine itself free of any
// particular cryptography dependency, and makes it possible to
// substitute a platform crypto provider or a fixed test double.
//
// See https://tools.ietf.org/html/rfc4226, https://tools.ietf.org/html/rfc6238
package otp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// An Algorithm selects the hash primitive underlying the keyed-hash
// computation. It is carried as configuration, never inferred from
// digest contents, and it determines the digest length the keyed-hash
// capability is required to return.
type Algorithm int

const (
	SHA1   Algorithm = iota // HMAC-SHA1, 20-byte digests (default)
	SHA256                  // HMAC-SHA256, 32-byte digests
	SHA512                  // HMAC-SHA512, 64-byte digests
)

// String returns the canonical name of a, e.g. "SHA1".
func (a Algorithm) String() string {
	switch a {
	case SHA1:
		return "SHA1"
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Size returns the digest length in bytes a keyed-hash capability must
// return for a, or 0 if a is not a known algorithm.
func (a Algorithm) Size() int {
	switch a {
	case SHA1:
		return 20
	case SHA256:
		return 32
	case SHA512:
		return 64
	}
	return 0
}

// A KeyedHash computes a message authentication code for message under
// key, using the hash primitive selected by alg. Implementations must
// be deterministic, free of side effects, and must return a digest of
// exactly alg.Size() bytes.
type KeyedHash func(alg Algorithm, key, message []byte) []byte

// Errors reported by the validating constructors and by Validate.
var (
	ErrEmptySecret     = errors.New("empty secret")
	ErrInvalidDigits   = errors.New("invalid digit count")
	ErrInvalidTimeStep = errors.New("invalid time step")
	ErrNoKeyedHash     = errors.New("no keyed-hash capability")
	ErrInvalidWindow   = errors.New("invalid window size")
	ErrTimeOutOfRange  = errors.New("time out of range")
)

// A Config carries the settings used to construct an OTP generator.
// The zero value is not usable: Key and MAC must be set. A Config is
// consumed at construction time and may be discarded thereafter.
type Config struct {
	Key []byte    // shared secret between server and client (required)
	MAC KeyedHash // keyed-hash capability (required)

	Algorithm Algorithm     // hash selector (default SHA1)
	Digits    int           // code length, 6 through 8 (default 6)
	TimeStep  time.Duration // TOTP time step (default 30s)
	Start     time.Time     // TOTP epoch offset (default Unix epoch)
}

const defaultDigits = 6

// An HOTP is a counter-based code generator. A usable HOTP is obtained
// from NewHOTP; it is immutable thereafter, and may be shared and used
// concurrently without synchronization.
type HOTP struct {
	key    []byte
	mac    KeyedHash
	alg    Algorithm
	digits int
}

// NewHOTP validates cfg and returns a counter-based code generator.
// The TimeStep and Start fields of cfg are ignored.
func NewHOTP(cfg Config) (HOTP, error) {
	if len(cfg.Key) == 0 {
		return HOTP{}, ErrEmptySecret
	}
	if cfg.MAC == nil {
		return HOTP{}, ErrNoKeyedHash
	}
	if cfg.Algorithm.Size() == 0 {
		return HOTP{}, fmt.Errorf("unknown algorithm %v", cfg.Algorithm)
	}
	digits := cfg.Digits
	if digits == 0 {
		digits = defaultDigits
	}
	if digits < 6 || digits > 8 {
		return HOTP{}, fmt.Errorf("%w: %d is not in 6..8", ErrInvalidDigits, cfg.Digits)
	}
	return HOTP{
		key:    bytes.Clone(cfg.Key),
		mac:    cfg.MAC,
		alg:    cfg.Algorithm,
		digits: digits,
	}, nil
}

// Algorithm reports the hash selector h was constructed with.
func (h HOTP) Algorithm() Algorithm { return h.alg }

// Digits reports the length of the codes h generates.
func (h HOTP) Digits() int { return h.digits }

// Generate returns the code for the specified counter value: the
// decimal rendering of the dynamically-truncated keyed hash of the
// counter, left-padded with zeroes to exactly Digits characters.
//
// Generate is a pure function of the configuration and counter.
// It panics if the keyed-hash capability returns a digest of the wrong
// length for the configured algorithm: truncation of a short digest
// would otherwise read out of range, and a mismatched provider is a
// configuration error, not an input error.
func (h HOTP) Generate(counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	digest := h.mac(h.alg, h.key, msg[:])
	if len(digest) != h.alg.Size() {
		panic(fmt.Sprintf("otp: %v digest is %d bytes, want %d", h.alg, len(digest), h.alg.Size()))
	}
	return formatCode(truncate(digest), h.digits)
}

// truncate extracts the dynamic 31-bit binary code from digest: the low
// nibble of the final byte selects a 4-byte window, which is read as a
// big-endian integer with its top bit cleared (RFC 4226 section 5.3).
func truncate(digest []byte) uint32 {
	offset := digest[len(digest)-1] & 0x0f
	return binary.BigEndian.Uint32(digest[offset:offset+4]) &^ (1 << 31)
}

// formatCode renders code modulo 10^width as decimal text, left-padded
// with zeroes to exactly width characters.
func formatCode(code uint32, width int) string {
	const zeroes = "00000000"

	s := strconv.FormatUint(uint64(code)%pow10(width), 10)
	return zeroes[:width-len(s)] + s
}

// pow10 returns 10^n for small non-negative n.
func pow10(n int) uint64 {
	p := uint64(1)
	for ; n > 0; n-- {
		p *= 10
	}
	return p
}
