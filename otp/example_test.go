package otp_test

import (
	"fmt"
	"time"

	"github.com/creachadair/twofer/macs"
	"github.com/creachadair/twofer/otp"
)

func Example() {
	cfg := otp.Config{
		Key: []byte("12345678901234567890"),

		// The keyed-hash computation is supplied by the caller. Package
		// macs provides an implementation backed by the standard library;
		// a test may substitute a fixed double instead.
		MAC: macs.Standard,
	}

	h, err := otp.NewHOTP(cfg)
	if err != nil {
		panic(err)
	}
	fmt.Println("HOTP", 0, h.Generate(0))
	fmt.Println("HOTP", 1, h.Generate(1))

	gen, err := otp.NewTOTP(cfg)
	if err != nil {
		panic(err)
	}
	// Generating at a fixed instant keeps the output consistent; use
	// Generate to derive a code for the current time.
	code, err := gen.GenerateAt(time.Unix(59, 0))
	if err != nil {
		panic(err)
	}
	fmt.Println("TOTP", code)
	// Output:
	// HOTP 0 755224
	// HOTP 1 287082
	// TOTP 287082
}
