// Copyright 2025 Certen Protocol
//
// Package keys error kinds. Every kind carries enough context to be
// rendered as a single string on the RPC error field.

package keys

import "fmt"

// InvalidTagError is returned when an envelope carries an unknown
// algorithm tag.
type InvalidTagError struct {
	Tag byte
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("invalid key algorithm tag %d", e.Tag)
}

// InvalidLengthError is returned when key or signature material has the
// wrong size for its algorithm, including truncated envelopes.
type InvalidLengthError struct {
	What string
	Got  int
	Want int // 0 when any non-empty length would do
}

func (e *InvalidLengthError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("invalid %s length: got %d, want %d", e.What, e.Got, e.Want)
	}
	return fmt.Sprintf("invalid %s length: got %d", e.What, e.Got)
}

// Base58Error is returned when base58 text cannot be decoded.
type Base58Error struct {
	Input string
	Err   error
}

func (e *Base58Error) Error() string {
	return fmt.Sprintf("cannot decode base58 string %q: %v", e.Input, e.Err)
}

func (e *Base58Error) Unwrap() error { return e.Err }

// SigningError is returned when the underlying primitive rejects a message.
type SigningError struct {
	Algorithm Algorithm
	Err       error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("%s signing failed: %v", e.Algorithm, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// VerificationError is returned when a signature does not verify against a
// public key, including algorithm tag mismatches.
type VerificationError struct {
	Algorithm    Algorithm
	SignatureB58 string
	PublicKeyB58 string
	Err          error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("signature verification failed (algo %s, signature %s, public key %s): %v",
		e.Algorithm, e.SignatureB58, e.PublicKeyB58, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }
