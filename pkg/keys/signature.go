// Copyright 2025 Certen Protocol
//
// Signatures share the envelope discipline of public keys:
// tag_byte || raw_sig_bytes.

package keys

import (
	"bytes"

	"github.com/mr-tron/base58/base58"
)

// Signature is a tagged signature. The tag must match the algorithm of the
// public key it is verified against.
type Signature struct {
	algorithm Algorithm
	raw       []byte
}

// NewSignature builds a signature from an algorithm tag and raw bytes.
func NewSignature(algorithm Algorithm, raw []byte) (Signature, error) {
	if !algorithm.Valid() {
		return Signature{}, &InvalidTagError{Tag: byte(algorithm)}
	}
	if len(raw) == 0 {
		return Signature{}, &InvalidLengthError{What: "signature", Got: 0}
	}
	return Signature{algorithm: algorithm, raw: append([]byte(nil), raw...)}, nil
}

// Algorithm returns the scheme tag of the signature
func (s Signature) Algorithm() Algorithm {
	return s.algorithm
}

// Raw returns a copy of the raw signature bytes, without the tag
func (s Signature) Raw() []byte {
	return append([]byte(nil), s.raw...)
}

// Encode returns the envelope form: tag_byte || raw_sig_bytes
func (s Signature) Encode() []byte {
	out := make([]byte, 1+len(s.raw))
	out[0] = byte(s.algorithm)
	copy(out[1:], s.raw)
	return out
}

// DecodeSignature parses the envelope form. It never panics on truncated
// input.
func DecodeSignature(b []byte) (Signature, error) {
	if len(b) == 0 {
		return Signature{}, &InvalidLengthError{What: "signature", Got: 0}
	}
	algorithm := Algorithm(b[0])
	if !algorithm.Valid() {
		return Signature{}, &InvalidTagError{Tag: b[0]}
	}
	if len(b) == 1 {
		return Signature{}, &InvalidLengthError{What: "signature body", Got: 0}
	}
	return Signature{algorithm: algorithm, raw: append([]byte(nil), b[1:]...)}, nil
}

// Equal compares signatures by raw bytes
func (s Signature) Equal(other Signature) bool {
	return s.algorithm == other.algorithm && bytes.Equal(s.raw, other.raw)
}

// ToBase58 returns the base58 text form of the envelope
func (s Signature) ToBase58() string {
	return base58.Encode(s.Encode())
}

// SignatureFromBase58 parses the base58 text form
func SignatureFromBase58(text string) (Signature, error) {
	b, err := base58.Decode(text)
	if err != nil {
		return Signature{}, &Base58Error{Input: text, Err: err}
	}
	return DecodeSignature(b)
}

// String implements fmt.Stringer with the base58 form
func (s Signature) String() string {
	return s.ToBase58()
}
