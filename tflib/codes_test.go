package tflib_test

import (
	"errors"
	"testing"
	"time"

	"github.com/creachadair/twofer/otpauth"
	"github.com/creachadair/twofer/tfdb"
	"github.com/creachadair/twofer/tflib"
)

// testSecret is the base32 encoding of the RFC 4226 / RFC 6238 shared
// secret "12345678901234567890".
const testSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func totpRecord() *tfdb.Record {
	return &tfdb.Record{
		Issuer:  "Example",
		Account: "alice",
		OTP: &otpauth.URL{
			Type:      "totp",
			RawSecret: testSecret,
			Digits:    8,
		},
	}
}

func hotpRecord() *tfdb.Record {
	return &tfdb.Record{
		Issuer:  "Example",
		Account: "alice",
		OTP: &otpauth.URL{
			Type:      "hotp",
			RawSecret: testSecret,
		},
	}
}

func TestCode(t *testing.T) {
	rec := totpRecord()
	code, err := tflib.Code(rec, time.Unix(59, 0))
	if err != nil {
		t.Fatalf("Code: unexpected error: %v", err)
	}
	if want := "94287082"; code != want {
		t.Errorf("Code: got %q, want %q", code, want)
	}

	rem, err := tflib.TimeRemaining(rec, time.Unix(59, 0))
	if err != nil {
		t.Fatalf("TimeRemaining: unexpected error: %v", err)
	}
	if want := 1 * time.Second; rem != want {
		t.Errorf("TimeRemaining: got %v, want %v", rem, want)
	}
}

func TestCodeErrors(t *testing.T) {
	if _, err := tflib.Code(&tfdb.Record{}, time.Now()); !errors.Is(err, tflib.ErrNoOTP) {
		t.Errorf("Code without OTP settings: got error %v, want %v", err, tflib.ErrNoOTP)
	}
	bad := totpRecord()
	bad.OTP.Algorithm = "MD5"
	if _, err := tflib.Code(bad, time.Now()); err == nil {
		t.Error("Code with unknown algorithm: got nil, want error")
	}
	junk := totpRecord()
	junk.OTP.RawSecret = "not base32!"
	if _, err := tflib.Code(junk, time.Now()); err == nil {
		t.Error("Code with invalid secret: got nil, want error")
	}
}

func TestNextHOTP(t *testing.T) {
	rec := hotpRecord()

	// Codes for counters 0..2, from Appendix D of RFC 4226.
	for i, want := range []string{"755224", "287082", "359152"} {
		code, err := tflib.NextHOTP(rec)
		if err != nil {
			t.Fatalf("NextHOTP: unexpected error: %v", err)
		}
		if code != want {
			t.Errorf("NextHOTP %d: got %q, want %q", i, code, want)
		}
	}
	if rec.NextCounter != 3 {
		t.Errorf("NextCounter: got %d, want 3", rec.NextCounter)
	}
}

func TestVerifyHOTP(t *testing.T) {
	rec := hotpRecord()

	// The code for counter 2 is ahead of the expected counter, but
	// within the window: verification succeeds and advances the counter
	// past the matched value.
	const code2 = "359152"
	if ok, err := tflib.VerifyHOTP(rec, code2, 4); err != nil || !ok {
		t.Fatalf("VerifyHOTP(%q): got (%v, %v), want (true, nil)", code2, ok, err)
	}
	if rec.NextCounter != 3 {
		t.Errorf("NextCounter: got %d, want 3", rec.NextCounter)
	}

	// A second presentation of the same code is a replay and must fail,
	// leaving the counter unchanged.
	if ok, err := tflib.VerifyHOTP(rec, code2, 4); err != nil || ok {
		t.Errorf("VerifyHOTP replay: got (%v, %v), want (false, nil)", ok, err)
	}
	if rec.NextCounter != 3 {
		t.Errorf("NextCounter after replay: got %d, want 3", rec.NextCounter)
	}

	// The code for counter 0 is behind the expected counter and is
	// likewise rejected.
	if ok, err := tflib.VerifyHOTP(rec, "755224", 10); err != nil || ok {
		t.Errorf("VerifyHOTP(stale): got (%v, %v), want (false, nil)", ok, err)
	}

	if _, err := tflib.VerifyHOTP(rec, code2, -1); err == nil {
		t.Error("VerifyHOTP with negative window: got nil, want error")
	}
}

func TestVerifyTOTP(t *testing.T) {
	rec := totpRecord()
	when := time.Unix(1111111111, 0)

	// The code for the previous time step (time 1111111109 falls in it)
	// is accepted with a one-step window but not an exact match.
	const prev = "07081804"
	if ok, err := tflib.VerifyTOTP(rec, prev, when, 1); err != nil || !ok {
		t.Errorf("VerifyTOTP(%q, window 1): got (%v, %v), want (true, nil)", prev, ok, err)
	}
	if ok, err := tflib.VerifyTOTP(rec, prev, when, 0); err != nil || ok {
		t.Errorf("VerifyTOTP(%q, window 0): got (%v, %v), want (false, nil)", prev, ok, err)
	}
	if ok, err := tflib.VerifyTOTP(rec, "14050471", when, 0); err != nil || !ok {
		t.Errorf("VerifyTOTP(exact): got (%v, %v), want (true, nil)", ok, err)
	}
}
