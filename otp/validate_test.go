package otp_test

import (
	"errors"
	"testing"
	"time"

	"github.com/creachadair/twofer/macs"
	"github.com/creachadair/twofer/otp"
)

func TestHOTPValidate(t *testing.T) {
	h, err := otp.NewHOTP(otp.Config{Key: testKey(20), MAC: macs.Standard})
	if err != nil {
		t.Fatalf("NewHOTP: unexpected error: %v", err)
	}
	code := h.Generate(7)

	tests := []struct {
		name      string
		candidate string
		counter   uint64
		window    int
		want      bool
	}{
		{"ExactMatch", code, 7, 0, true},
		{"InWindow", code, 4, 3, true},
		{"PastWindow", code, 4, 2, false},
		{"BehindCounter", code, 8, 5, false}, // the window never looks backward
		{"ZeroWindowMiss", code, 6, 0, false},
		{"WrongLength", code + "0", 7, 0, false},
		{"Garbage", "banana", 7, 10, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Validate(tc.candidate, tc.counter, tc.window)
			if err != nil {
				t.Fatalf("Validate: unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Validate(%q, %d, %d): got %v, want %v",
					tc.candidate, tc.counter, tc.window, got, tc.want)
			}
		})
	}

	if _, err := h.Validate(code, 7, -1); !errors.Is(err, otp.ErrInvalidWindow) {
		t.Errorf("Validate with negative window: got error %v, want %v", err, otp.ErrInvalidWindow)
	}
}

func TestTOTPValidate(t *testing.T) {
	gen := mustTOTP(t, otp.Config{})

	when := time.Unix(3000, 0) // counter 100
	code := func(c uint64) string { return gen.HOTP().Generate(c) }

	tests := []struct {
		name      string
		candidate string
		window    int
		want      bool
	}{
		{"ExactMatch", code(100), 0, true},
		{"PrevStep", code(99), 1, true},
		{"NextStep", code(101), 1, true},
		{"PrevOutside", code(98), 1, false},
		{"NextOutside", code(102), 1, false},
		{"WideWindow", code(97), 3, true},
		{"Garbage", "000000x", 3, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gen.Validate(tc.candidate, when, tc.window)
			if err != nil {
				t.Fatalf("Validate: unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Validate(%q, %v, %d): got %v, want %v",
					tc.candidate, when, tc.window, got, tc.want)
			}
		})
	}

	if _, err := gen.Validate(code(100), when, -2); !errors.Is(err, otp.ErrInvalidWindow) {
		t.Errorf("Validate with negative window: got error %v, want %v", err, otp.ErrInvalidWindow)
	}
}

func TestTOTPValidateNearEpoch(t *testing.T) {
	gen := mustTOTP(t, otp.Config{})

	// Near the epoch offset the backward half of the window is clipped:
	// steps before the offset are skipped rather than wrapped around.
	when := time.Unix(30, 0) // counter 1
	if ok, err := gen.Validate(gen.HOTP().Generate(0), when, 5); err != nil || !ok {
		t.Errorf("Validate(counter 0): got (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := gen.Validate("999999", when, 5); err != nil || ok {
		t.Errorf("Validate(garbage): got (%v, %v), want (false, nil)", ok, err)
	}
}
