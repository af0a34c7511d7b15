package tflib

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creachadair/twofer/macs"
	"github.com/creachadair/twofer/otp"
	"github.com/creachadair/twofer/tfdb"
)

// ErrNoOTP is reported when a record has no OTP settings.
var ErrNoOTP = errors.New("record has no OTP settings")

// engineConfig converts the OTP settings of rec into an engine
// configuration using the standard keyed-hash capability.
func engineConfig(rec *tfdb.Record) (otp.Config, error) {
	if rec.OTP == nil {
		return otp.Config{}, ErrNoOTP
	}
	key, err := rec.OTP.Secret()
	if err != nil {
		return otp.Config{}, fmt.Errorf("decode secret: %w", err)
	}
	cfg := otp.Config{
		Key:    key,
		MAC:    macs.Standard,
		Digits: rec.OTP.Digits,
	}
	if rec.OTP.Period > 0 {
		cfg.TimeStep = time.Duration(rec.OTP.Period) * time.Second
	}
	switch a := strings.ToUpper(rec.OTP.Algorithm); a {
	case "", "SHA1":
		cfg.Algorithm = otp.SHA1
	case "SHA256":
		cfg.Algorithm = otp.SHA256
	case "SHA512":
		cfg.Algorithm = otp.SHA512
	default:
		return otp.Config{}, fmt.Errorf("unknown algorithm %q", rec.OTP.Algorithm)
	}
	return cfg, nil
}

// totpFor returns a time-based generator for the settings of rec.
func totpFor(rec *tfdb.Record) (otp.TOTP, error) {
	cfg, err := engineConfig(rec)
	if err != nil {
		return otp.TOTP{}, err
	}
	return otp.NewTOTP(cfg)
}

// Code returns the time-based code for rec at the specified time.
func Code(rec *tfdb.Record, at time.Time) (string, error) {
	gen, err := totpFor(rec)
	if err != nil {
		return "", err
	}
	return gen.GenerateAt(at)
}

// TimeRemaining returns how long the code for rec at the specified time
// remains valid.
func TimeRemaining(rec *tfdb.Record, at time.Time) (time.Duration, error) {
	gen, err := totpFor(rec)
	if err != nil {
		return 0, err
	}
	return gen.TimeRemaining(at), nil
}

// NextHOTP generates the code for the next counter value of rec and
// advances the stored counter. The caller is responsible for saving the
// database so the advanced counter persists.
func NextHOTP(rec *tfdb.Record) (string, error) {
	cfg, err := engineConfig(rec)
	if err != nil {
		return "", err
	}
	gen, err := otp.NewHOTP(cfg)
	if err != nil {
		return "", err
	}
	code := gen.Generate(rec.NextCounter)
	rec.NextCounter++
	return code, nil
}

// VerifyTOTP reports whether code matches rec within window time steps
// on either side of the step containing at.
func VerifyTOTP(rec *tfdb.Record, code string, at time.Time, window int) (bool, error) {
	gen, err := totpFor(rec)
	if err != nil {
		return false, err
	}
	return gen.Validate(code, at, window)
}

// VerifyHOTP reports whether code matches rec at or after its next
// expected counter, scanning forward up to window values. On a match
// the stored counter advances past the matched value, so an accepted
// code can never be replayed. The caller is responsible for saving the
// database so the advanced counter persists.
func VerifyHOTP(rec *tfdb.Record, code string, window int) (bool, error) {
	if window < 0 {
		return false, fmt.Errorf("%w: %d", otp.ErrInvalidWindow, window)
	}
	cfg, err := engineConfig(rec)
	if err != nil {
		return false, err
	}
	gen, err := otp.NewHOTP(cfg)
	if err != nil {
		return false, err
	}
	for i := 0; i <= window; i++ {
		c := rec.NextCounter + uint64(i)
		ok, err := gen.Validate(code, c, 0)
		if err != nil {
			return false, err
		}
		if ok {
			rec.NextCounter = c + 1
			return true, nil
		}
	}
	return false, nil
}
