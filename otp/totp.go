package otp

import (
	"fmt"
	"time"

	"github.com/creachadair/twofer/keytext"
	"github.com/creachadair/twofer/otpauth"
)

const defaultTimeStep = 30 * time.Second

// A TOTP is a time-based code generator: the HOTP construction over a
// counter counting whole time steps elapsed since an epoch offset.
// A usable TOTP is obtained from NewTOTP; it is immutable thereafter,
// and may be shared and used concurrently without synchronization.
type TOTP struct {
	hotp  HOTP
	step  time.Duration
	start time.Time
}

// NewTOTP validates cfg and returns a time-based code generator.
func NewTOTP(cfg Config) (TOTP, error) {
	step := cfg.TimeStep
	if step == 0 {
		step = defaultTimeStep
	} else if step < 0 {
		return TOTP{}, fmt.Errorf("%w: %v", ErrInvalidTimeStep, cfg.TimeStep)
	}
	h, err := NewHOTP(cfg)
	if err != nil {
		return TOTP{}, err
	}
	start := cfg.Start
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	return TOTP{hotp: h, step: step, start: start}, nil
}

// HOTP returns the counter-based generator underlying t.
func (t TOTP) HOTP() HOTP { return t.hotp }

// TimeStep reports the time step t was constructed with.
func (t TOTP) TimeStep() time.Duration { return t.step }

// CounterAt returns the time-step counter for the instant when, which
// is the number of whole time steps between the epoch offset and when.
// An instant before the epoch offset would produce a negative counter;
// that is reported as ErrTimeOutOfRange rather than wrapped around.
func (t TOTP) CounterAt(when time.Time) (uint64, error) {
	c := t.stepsAt(when)
	if c < 0 {
		return 0, fmt.Errorf("%w: %v precedes the epoch offset", ErrTimeOutOfRange, when)
	}
	return uint64(c), nil
}

// GenerateAt returns the code for the time step containing when.
func (t TOTP) GenerateAt(when time.Time) (string, error) {
	c, err := t.CounterAt(when)
	if err != nil {
		return "", err
	}
	return t.hotp.Generate(c), nil
}

// Generate returns the code for the current time step.
func (t TOTP) Generate() (string, error) { return t.GenerateAt(time.Now()) }

// TimeRemaining returns how long the code for the time step containing
// when remains valid. The result is always positive and at most one
// full time step; an instant exactly on a step boundary has the whole
// step remaining.
func (t TOTP) TimeRemaining(when time.Time) time.Duration {
	sec, ns := t.offsetFrom(when)

	var elapsed int64 // nanoseconds into the current step
	if t.step%time.Second == 0 {
		elapsed = floorMod(sec, int64(t.step/time.Second))*int64(time.Second) + ns
	} else {
		elapsed = floorMod(sec*int64(time.Second)+ns, int64(t.step))
	}
	return t.step - time.Duration(elapsed)
}

// ProvisioningURI returns the otpauth:// URL describing t for the given
// account name and issuer, as imported by authenticator applications
// (typically rendered as a QR code, which is outside this package).
func (t TOTP) ProvisioningURI(account, issuer string) string {
	return (&otpauth.URL{
		Type:      "totp",
		Issuer:    issuer,
		Account:   account,
		RawSecret: keytext.Encode(t.hotp.key),
		Algorithm: t.hotp.alg.String(),
		Digits:    t.hotp.digits,
		Period:    int(t.step / time.Second),
	}).String()
}

// stepsAt returns the possibly-negative number of whole time steps
// between the epoch offset and when, flooring toward negative infinity.
func (t TOTP) stepsAt(when time.Time) int64 {
	sec, ns := t.offsetFrom(when)
	if t.step%time.Second == 0 {
		// Whole-second steps: the sub-second part of the offset can never
		// carry the quotient across a step boundary.
		return floorDiv(sec, int64(t.step/time.Second))
	}
	// Fractional steps are divided at nanosecond precision. This form is
	// exact for instants within about 292 years of the epoch offset.
	return floorDiv(sec*int64(time.Second)+ns, int64(t.step))
}

// offsetFrom returns the elapsed time from the epoch offset to when as
// whole seconds and a non-negative sub-second remainder in [0, 1e9).
// Computing in seconds rather than time.Duration keeps instants far
// from the offset (beyond the 292-year Duration range) exact.
func (t TOTP) offsetFrom(when time.Time) (sec, ns int64) {
	sec = when.Unix() - t.start.Unix()
	ns = int64(when.Nanosecond() - t.start.Nanosecond())
	if ns < 0 {
		sec--
		ns += int64(time.Second)
	}
	return
}

// floorDiv returns the quotient a/b rounded toward negative infinity.
// It requires b > 0.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// floorMod returns a - b*floorDiv(a, b), which lies in [0, b) for b > 0.
func floorMod(a, b int64) int64 { return a - b*floorDiv(a, b) }
