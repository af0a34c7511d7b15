// Package otpauth constructs and parses otpauth:// URLs, the format
// used to exchange OTP credentials with authenticator applications.
//
// The general form of such a URL is:
//
//	otpauth://TYPE/LABEL?PARAMETERS
//
// where TYPE is "totp" or "hotp" and LABEL is "Issuer:account".
package otpauth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/creachadair/twofer/keytext"
)

// A URL carries the complete settings of a single OTP credential.
// Fields left zero assume the standard defaults when the URL is
// rendered or used to derive codes.
type URL struct {
	Type      string // "totp" (default) or "hotp"
	Issuer    string // issuing organization (optional)
	Account   string // account name, e.g. "user@example.com"
	RawSecret string // base32-encoded shared secret
	Algorithm string // "SHA1" (default), "SHA256", or "SHA512"
	Digits    int    // code length (default 6)
	Period    int    // time step in seconds (totp only; default 30)
	Counter   uint64 // next counter value (hotp only)
}

// FromSecret constructs a time-based URL with the standard defaults for
// the given secret.
func FromSecret(secret []byte, account, issuer string) *URL {
	return &URL{
		Type:      "totp",
		Issuer:    issuer,
		Account:   account,
		RawSecret: keytext.Encode(secret),
	}
}

// Secret decodes and returns the shared secret.
func (u *URL) Secret() ([]byte, error) { return keytext.Decode(u.RawSecret) }

// typeName returns the type label of u, normalized to lower-case.
func (u *URL) typeName() string {
	if u.Type == "" {
		return "totp"
	}
	return strings.ToLower(u.Type)
}

// algorithm returns the algorithm name of u, normalized to upper-case.
func (u *URL) algorithm() string {
	if u.Algorithm == "" {
		return "SHA1"
	}
	return strings.ToUpper(u.Algorithm)
}

// digits returns the code length of u.
func (u *URL) digits() int {
	if u.Digits <= 0 {
		return 6
	}
	return u.Digits
}

// period returns the time step of u in seconds.
func (u *URL) period() int {
	if u.Period <= 0 {
		return 30
	}
	return u.Period
}

// labelString returns the label of u, comprising the issuer and account
// joined by a colon when an issuer is present.
func (u *URL) labelString() string {
	if u.Issuer == "" {
		return u.Account
	}
	return u.Issuer + ":" + u.Account
}

// String renders u in otpauth format for exchange with authenticator
// applications. The query string carries the parameters secret, issuer,
// algorithm, digits, and period, in that order; for counter-based URLs
// a counter parameter replaces period. Unset fields are rendered as
// their default values, and the secret is written without trailing
// padding, as authenticator apps expect. Use MarshalText for a form
// that preserves the value exactly.
func (u *URL) String() string {
	var sb strings.Builder
	sb.WriteString("otpauth://")
	sb.WriteString(u.typeName())
	sb.WriteByte('/')
	sb.WriteString(url.PathEscape(u.labelString()))
	sb.WriteString("?secret=")
	sb.WriteString(strings.TrimRight(u.RawSecret, "="))
	sb.WriteString("&issuer=")
	sb.WriteString(url.QueryEscape(u.Issuer))
	sb.WriteString("&algorithm=")
	sb.WriteString(u.algorithm())
	sb.WriteString("&digits=")
	sb.WriteString(strconv.Itoa(u.digits()))
	if u.typeName() == "hotp" {
		sb.WriteString("&counter=")
		sb.WriteString(strconv.FormatUint(u.Counter, 10))
	} else {
		sb.WriteString("&period=")
		sb.WriteString(strconv.Itoa(u.period()))
	}
	return sb.String()
}

// ParseURL parses s as an otpauth URL. Query parameters may appear in
// any order; parameters not present assume their defaults.
func ParseURL(s string) (*URL, error) {
	p, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if p.Scheme != "otpauth" {
		return nil, fmt.Errorf("invalid scheme %q", p.Scheme)
	}
	typ := strings.ToLower(p.Host)
	if typ != "totp" && typ != "hotp" {
		return nil, fmt.Errorf("unknown OTP type %q", p.Host)
	}

	out := &URL{Type: typ}
	label := strings.TrimPrefix(p.Path, "/")
	if pre, post, ok := strings.Cut(label, ":"); ok {
		out.Issuer, out.Account = pre, strings.TrimPrefix(post, " ")
	} else {
		out.Account = label
	}

	q := p.Query()
	out.RawSecret = q.Get("secret")
	if v := q.Get("issuer"); v != "" {
		if out.Issuer != "" && !strings.EqualFold(v, out.Issuer) {
			return nil, fmt.Errorf("issuer %q does not match label %q", v, out.Issuer)
		}
		out.Issuer = v
	}
	if v := q.Get("algorithm"); v != "" {
		switch a := strings.ToUpper(v); a {
		case "SHA1", "SHA256", "SHA512":
			out.Algorithm = a
		default:
			return nil, fmt.Errorf("unknown algorithm %q", v)
		}
	}
	if v := q.Get("digits"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid digits: %w", err)
		}
		out.Digits = d
	}
	if v := q.Get("period"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid period: %w", err)
		}
		out.Period = d
	}
	if v := q.Get("counter"); v != "" {
		c, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid counter: %w", err)
		}
		out.Counter = c
	}
	return out, nil
}

// MarshalText encodes u as an otpauth URL, satisfying
// [encoding.TextMarshaler]. This allows URL values to be stored as JSON
// strings. Unlike String, only the parameters explicitly set on u are
// emitted and the secret is kept verbatim, so that decoding the result
// with UnmarshalText reproduces u with unset fields still unset. Only
// the type and algorithm names are canonicalized.
func (u *URL) MarshalText() ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("otpauth://")
	sb.WriteString(u.typeName())
	sb.WriteByte('/')
	sb.WriteString(url.PathEscape(u.labelString()))
	sb.WriteString("?secret=")
	sb.WriteString(u.RawSecret)
	if u.Algorithm != "" {
		sb.WriteString("&algorithm=")
		sb.WriteString(u.Algorithm)
	}
	if u.Digits > 0 {
		sb.WriteString("&digits=")
		sb.WriteString(strconv.Itoa(u.Digits))
	}
	if u.Period > 0 {
		sb.WriteString("&period=")
		sb.WriteString(strconv.Itoa(u.Period))
	}
	if u.Counter > 0 {
		sb.WriteString("&counter=")
		sb.WriteString(strconv.FormatUint(u.Counter, 10))
	}
	return []byte(sb.String()), nil
}

// UnmarshalText decodes an otpauth URL as by ParseURL, satisfying
// [encoding.TextUnmarshaler].
func (u *URL) UnmarshalText(data []byte) error {
	p, err := ParseURL(string(data))
	if err != nil {
		return err
	}
	*u = *p
	return nil
}
