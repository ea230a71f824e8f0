// Copyright 2025 Certen Protocol
//
// Public keys with the tagged envelope encoding: tag_byte || raw_key_bytes.
// The base58 text form is the base58 of that envelope.

package keys

import (
	"bytes"

	"github.com/mr-tron/base58/base58"
)

// PublicKey is a tagged public key. Equality is by raw bytes.
type PublicKey struct {
	algorithm Algorithm
	raw       []byte
}

// NewPublicKey builds a public key from an algorithm tag and raw key bytes.
func NewPublicKey(algorithm Algorithm, raw []byte) (PublicKey, error) {
	if !algorithm.Valid() {
		return PublicKey{}, &InvalidTagError{Tag: byte(algorithm)}
	}
	if err := checkRawKeySize(algorithm, len(raw)); err != nil {
		return PublicKey{}, err
	}
	return PublicKey{algorithm: algorithm, raw: append([]byte(nil), raw...)}, nil
}

// Algorithm returns the scheme tag of the key
func (pk PublicKey) Algorithm() Algorithm {
	return pk.algorithm
}

// Raw returns a copy of the raw key bytes, without the tag
func (pk PublicKey) Raw() []byte {
	return append([]byte(nil), pk.raw...)
}

// IsZero reports whether the key is the zero value
func (pk PublicKey) IsZero() bool {
	return len(pk.raw) == 0
}

// Encode returns the envelope form: tag_byte || raw_key_bytes
func (pk PublicKey) Encode() []byte {
	out := make([]byte, 1+len(pk.raw))
	out[0] = byte(pk.algorithm)
	copy(out[1:], pk.raw)
	return out
}

// DecodePublicKey parses the envelope form. It never panics on truncated
// input.
func DecodePublicKey(b []byte) (PublicKey, error) {
	if len(b) == 0 {
		return PublicKey{}, &InvalidLengthError{What: "public key", Got: 0}
	}
	algorithm := Algorithm(b[0])
	if !algorithm.Valid() {
		return PublicKey{}, &InvalidTagError{Tag: b[0]}
	}
	raw := b[1:]
	if err := checkRawKeySize(algorithm, len(raw)); err != nil {
		return PublicKey{}, err
	}
	return PublicKey{algorithm: algorithm, raw: append([]byte(nil), raw...)}, nil
}

// Equal compares keys by raw bytes
func (pk PublicKey) Equal(other PublicKey) bool {
	return pk.algorithm == other.algorithm && bytes.Equal(pk.raw, other.raw)
}

// ToBase58 returns the base58 text form of the envelope
func (pk PublicKey) ToBase58() string {
	return base58.Encode(pk.Encode())
}

// PublicKeyFromBase58 parses the base58 text form
func PublicKeyFromBase58(s string) (PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, &Base58Error{Input: s, Err: err}
	}
	return DecodePublicKey(b)
}

// String implements fmt.Stringer with the base58 form
func (pk PublicKey) String() string {
	return pk.ToBase58()
}

// Hashable is the byte-encoded form of a public key, usable as a map key.
// Storage keys relations by this form throughout.
type Hashable string

// Hashable returns the map-key form of the public key
func (pk PublicKey) Hashable() Hashable {
	return Hashable(pk.Encode())
}

// PublicKey recovers the public key from its hashable form
func (h Hashable) PublicKey() (PublicKey, error) {
	return DecodePublicKey([]byte(h))
}

// String returns the base58 form of the wrapped key
func (h Hashable) String() string {
	return base58.Encode([]byte(h))
}

// HashableFromBase58 parses the base58 text form into a map key,
// validating the envelope.
func HashableFromBase58(s string) (Hashable, error) {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		return "", err
	}
	return pk.Hashable(), nil
}

func checkRawKeySize(algorithm Algorithm, got int) error {
	switch algorithm {
	case Ed25519:
		if got != 32 {
			return &InvalidLengthError{What: "Ed25519 public key", Got: got, Want: 32}
		}
	case Secp256k1:
		if got != 33 {
			return &InvalidLengthError{What: "Secp256k1 public key", Got: got, Want: 33}
		}
	case RSA:
		// PKIX DER, variable length; parsed on use
		if got == 0 {
			return &InvalidLengthError{What: "RSA public key", Got: got}
		}
	}
	return nil
}
