// Package macs provides implementations of the keyed-hash capability
// consumed by package otp.
package macs

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/creachadair/twofer/otp"
)

// Standard is an otp.KeyedHash backed by crypto/hmac over the standard
// library hash implementations. It panics for an unknown algorithm
// selector, which a correctly-constructed generator never passes.
func Standard(alg otp.Algorithm, key, message []byte) []byte {
	var newHash func() hash.Hash
	switch alg {
	case otp.SHA1:
		newHash = sha1.New
	case otp.SHA256:
		newHash = sha256.New
	case otp.SHA512:
		newHash = sha512.New
	default:
		panic(fmt.Sprintf("macs: unknown algorithm %v", alg))
	}
	h := hmac.New(newHash, key)
	h.Write(message)
	return h.Sum(nil)
}
