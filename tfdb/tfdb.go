// Package tfdb implements an encrypted database of two-factor
// authentication credentials maintained by the twofer tool.
//
// # Storage format
//
// On disk a database is a single JSON object in this layout:
//
//	{
//	   "format":  "tf1",
//	   "dataKey": "<base64 data key, sealed with the access key>",
//	   "data":    "<base64 database, sealed with the data key>",
//	   "keySalt": "<base64 key-derivation salt>"
//	}
//
// The database payload is zlib-compressed and sealed with the AEAD
// construction over XChaCha20-Poly1305 using a randomly generated data
// key, with the format label bound as extra data. The data key is
// itself sealed (with the same construction) under an access key
// derived from the user's passphrase via HKDF/SHA-256 and the stored
// salt, and kept alongside the data.
package tfdb

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/creachadair/twofer/otpauth"
	"golang.org/x/crypto/hkdf"
)

// A DB is a database of two-factor credentials.
type DB struct {
	// Defaults are fallback values for records that do not define their
	// own values for certain fields.
	Defaults *Defaults `json:"defaults,omitempty"`

	// Settings is an opaque collection of tool-specific settings. Each
	// tool should use its own unique key in this map. The format of the
	// value is the responsibility of the tool that defines it.
	Settings map[string]json.RawMessage `json:"settings,omitempty"`

	// Records are the credentials in the database, keyed by a non-empty
	// label chosen by the user.
	Records map[string]*Record `json:"records,omitempty"`
}

// Defaults are values applied to records that do not define their own.
type Defaults struct {
	// Issuer, if set, is used as the issuer for records without one.
	Issuer string `json:"issuer,omitempty"`

	// Window, if positive, is the default validation window size.
	Window int `json:"window,omitempty"`
}

// A Record describes a single two-factor credential.
type Record struct {
	// Title is a human-readable title for this record.
	Title string `json:"title,omitempty"`

	// Issuer is the organization that issued the credential.
	Issuer string `json:"issuer,omitempty"`

	// Account is the account name the credential belongs to.
	Account string `json:"account,omitempty"`

	// Tags are optional query tags associated with this record.
	Tags []string `json:"tags,omitempty"`

	// Notes are optional human-readable notes.
	Notes string `json:"notes,omitempty"`

	// OTP carries the code-generation settings for the credential.
	OTP *otpauth.URL `json:"otp,omitempty"`

	// NextCounter is the next expected counter value for counter-based
	// (hotp) credentials. It only ever increases; verification advances
	// it past any counter that has produced an accepted code.
	NextCounter uint64 `json:"nextCounter,omitempty"`

	// Archived, if true, indicates the record should not be shown in
	// default listings and search results.
	Archived bool `json:"archived,omitempty"`
}

// ErrNoSettings is reported by UnmarshalSettings if the requested
// settings key is not defined on the database.
var ErrNoSettings = errors.New("settings key not found")

// UnmarshalSettings unmarshals the settings corresponding to key into
// v. If no settings for that key are present, it reports ErrNoSettings
// and does not modify v.
func (db *DB) UnmarshalSettings(key string, v any) error {
	src, ok := db.Settings[key]
	if !ok || len(src) == 0 {
		return fmt.Errorf("unmarshal %q: %w", key, ErrNoSettings)
	}
	return json.Unmarshal(src, v)
}

// MarshalSettings marshals the specified value into the settings map
// under key, replacing any existing value for that key.
func (db *DB) MarshalSettings(key string, v any) error {
	bits, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	if db.Settings == nil {
		db.Settings = make(map[string]json.RawMessage)
	}
	db.Settings[key] = bits
	return nil
}

// saltLen is the length in bytes of a generated key-derivation salt.
const saltLen = 16

// New creates a new store encrypted with an access key derived from
// passphrase. If init != nil, it is used as the initial database for
// the store; otherwise an empty database is created.
func New(passphrase string, init *DB) (*Store, error) {
	salt := make([]byte, saltLen)
	if _, err := crand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return newStore(accessKey(passphrase, salt), salt, init)
}

// Open decodes and decrypts a store from the contents of r, using an
// access key derived from passphrase and the salt recorded in the
// stored form.
func Open(r io.Reader, passphrase string) (*Store, error) {
	return openStore(r, func(salt []byte) []byte { return accessKey(passphrase, salt) })
}

// accessKey derives a cipher key from passphrase and salt via
// HKDF/SHA-256.
func accessKey(passphrase string, salt []byte) []byte {
	key := make([]byte, keyLen)
	h := hkdf.New(sha256.New, []byte(passphrase), salt, []byte("twofer access key"))
	if _, err := io.ReadFull(h, key); err != nil {
		panic(fmt.Sprintf("derive access key: %v", err))
	}
	return key
}
