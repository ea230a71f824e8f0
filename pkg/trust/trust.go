// Copyright 2025 Certen Protocol
//
// Trust - a signed statement "issuer vouches for subject until expiry".
// The signature is over SHA-256(pk_envelope || LE64(expires) || LE64(issued))
// so the whole history is auditable from bytes alone.

package trust

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/certen/trust-graph/pkg/keys"
)

const (
	expirationLen = 8
	issuedLen     = 8
)

// Trust is one element in the chain of trust of a certificate.
// Immutable after creation.
type Trust struct {
	// IssuedFor is the subject this trust is issued for
	IssuedFor keys.PublicKey
	// ExpiresAt is the expiration of the trust, unix seconds
	ExpiresAt uint64
	// IssuedAt is the creation time of the trust, unix seconds
	IssuedAt uint64
	// Signature is by the issuer; self-signed for a root trust
	Signature keys.Signature
}

// Create signs a new trust with the issuer's key pair.
func Create(issuedBy *keys.KeyPair, issuedFor keys.PublicKey, expiresAt, issuedAt uint64) (Trust, error) {
	if expiresAt < issuedAt {
		return Trust{}, &ExpirationError{ExpiresAt: expiresAt, IssuedAt: issuedAt}
	}

	msg := MetadataBytes(issuedFor, expiresAt, issuedAt)
	signature, err := issuedBy.Sign(msg)
	if err != nil {
		return Trust{}, fmt.Errorf("sign trust metadata: %w", err)
	}

	return Trust{
		IssuedFor: issuedFor,
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
		Signature: signature,
	}, nil
}

// Verify checks that the trust is not expired at now and that its signature
// verifies against the issuer's public key.
func Verify(t Trust, issuedBy keys.PublicKey, now uint64) error {
	if t.ExpiresAt < now {
		return &ExpiredError{ExpiresAt: t.ExpiresAt, Now: now}
	}

	msg := MetadataBytes(t.IssuedFor, t.ExpiresAt, t.IssuedAt)
	if err := keys.Verify(issuedBy, msg, t.Signature); err != nil {
		return err
	}
	return nil
}

// MetadataBytes computes the canonical signing hash of a trust:
// SHA-256 over the subject key envelope followed by the little-endian
// expiration and issue timestamps.
func MetadataBytes(issuedFor keys.PublicKey, expiresAt, issuedAt uint64) []byte {
	pkEncoded := issuedFor.Encode()

	metadata := make([]byte, 0, len(pkEncoded)+expirationLen+issuedLen)
	metadata = append(metadata, pkEncoded...)
	metadata = binary.LittleEndian.AppendUint64(metadata, expiresAt)
	metadata = binary.LittleEndian.AppendUint64(metadata, issuedAt)

	digest := sha256.Sum256(metadata)
	return digest[:]
}

// Encode serializes the trust:
// pk_len:u8 || pk || sig_len:u8 || sig || expires:u64le || issued:u64le
// The u8 length prefixes bound key and signature envelopes to 255 bytes;
// RSA material exceeds that and travels in the text form instead.
func (t Trust) Encode() []byte {
	pk := t.IssuedFor.Encode()
	sig := t.Signature.Encode()

	out := make([]byte, 0, 2+len(pk)+len(sig)+expirationLen+issuedLen)
	out = append(out, byte(len(pk)))
	out = append(out, pk...)
	out = append(out, byte(len(sig)))
	out = append(out, sig...)
	out = binary.LittleEndian.AppendUint64(out, t.ExpiresAt)
	out = binary.LittleEndian.AppendUint64(out, t.IssuedAt)
	return out
}

// Decode parses a trust produced by Encode, bounds-checking every field.
func Decode(b []byte) (Trust, error) {
	if len(b) < 1 {
		return Trust{}, &InvalidSizeError{Field: "public_key_len"}
	}
	pkLen := int(b[0])
	offset := 1

	if len(b) < offset+pkLen {
		return Trust{}, &InvalidSizeError{Field: "public_key"}
	}
	pk, err := keys.DecodePublicKey(b[offset : offset+pkLen])
	if err != nil {
		return Trust{}, fmt.Errorf("decode trust public key: %w", err)
	}
	offset += pkLen

	if len(b) < offset+1 {
		return Trust{}, &InvalidSizeError{Field: "signature_len"}
	}
	sigLen := int(b[offset])
	offset++

	if len(b) < offset+sigLen {
		return Trust{}, &InvalidSizeError{Field: "signature"}
	}
	sig, err := keys.DecodeSignature(b[offset : offset+sigLen])
	if err != nil {
		return Trust{}, fmt.Errorf("decode trust signature: %w", err)
	}
	offset += sigLen

	if len(b) < offset+expirationLen {
		return Trust{}, &InvalidSizeError{Field: "expiration"}
	}
	expiresAt := binary.LittleEndian.Uint64(b[offset : offset+expirationLen])
	offset += expirationLen

	if len(b) < offset+issuedLen {
		return Trust{}, &InvalidSizeError{Field: "issued"}
	}
	issuedAt := binary.LittleEndian.Uint64(b[offset : offset+issuedLen])

	return Trust{
		IssuedFor: pk,
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
		Signature: sig,
	}, nil
}

// Equal compares trusts field by field
func (t Trust) Equal(other Trust) bool {
	return t.IssuedFor.Equal(other.IssuedFor) &&
		t.ExpiresAt == other.ExpiresAt &&
		t.IssuedAt == other.IssuedAt &&
		t.Signature.Equal(other.Signature)
}

// String renders the four-line interchange form:
// base58(pk) \n base58(sig) \n expires_secs \n issued_secs
func (t Trust) String() string {
	var sb strings.Builder
	sb.WriteString(t.IssuedFor.ToBase58())
	sb.WriteByte('\n')
	sb.WriteString(t.Signature.ToBase58())
	sb.WriteByte('\n')
	sb.WriteString(strconv.FormatUint(t.ExpiresAt, 10))
	sb.WriteByte('\n')
	sb.WriteString(strconv.FormatUint(t.IssuedAt, 10))
	return sb.String()
}

// FromStrings assembles a trust from its four interchange fields.
func FromStrings(issuedFor, signature, expiresAt, issuedAt string) (Trust, error) {
	pk, err := keys.PublicKeyFromBase58(issuedFor)
	if err != nil {
		return Trust{}, &ParseError{Field: "issued_for", Input: issuedFor, Err: err}
	}

	sig, err := keys.SignatureFromBase58(signature)
	if err != nil {
		return Trust{}, &ParseError{Field: "signature", Input: signature, Err: err}
	}

	expires, err := strconv.ParseUint(expiresAt, 10, 64)
	if err != nil {
		return Trust{}, &ParseError{Field: "expires_at", Input: expiresAt, Err: err}
	}

	issued, err := strconv.ParseUint(issuedAt, 10, 64)
	if err != nil {
		return Trust{}, &ParseError{Field: "issued_at", Input: issuedAt, Err: err}
	}

	return Trust{
		IssuedFor: pk,
		ExpiresAt: expires,
		IssuedAt:  issued,
		Signature: sig,
	}, nil
}
