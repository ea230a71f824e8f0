// Copyright 2025 Certen Protocol
//
// Revocation - a signed statement "issuer revokes subject as of time T".
// Revocations carry no expiration; they stand until superseded by a later
// relation from the same issuer.

package trust

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/certen/trust-graph/pkg/keys"
)

// Revocation cancels any trust from its issuer to its subject.
// Immutable after creation.
type Revocation struct {
	// PK is the revoked subject
	PK keys.PublicKey
	// RevokedAt is when the revocation takes effect, unix seconds
	RevokedAt uint64
	// RevokedBy is the issuer of the revocation
	RevokedBy keys.PublicKey
	// Signature is the issuer's proof over the canonical hash
	Signature keys.Signature
}

// CreateRevocation signs a new revocation with the revoker's key pair.
func CreateRevocation(revoker *keys.KeyPair, toRevoke keys.PublicKey, revokedAt uint64) (Revocation, error) {
	msg := RevocationBytes(toRevoke, revokedAt)
	signature, err := revoker.Sign(msg)
	if err != nil {
		return Revocation{}, fmt.Errorf("sign revocation: %w", err)
	}

	return Revocation{
		PK:        toRevoke,
		RevokedAt: revokedAt,
		RevokedBy: revoker.Public(),
		Signature: signature,
	}, nil
}

// RevocationBytes computes the canonical signing hash of a revocation:
// SHA-256 over the subject key envelope followed by the little-endian
// revocation timestamp.
func RevocationBytes(pk keys.PublicKey, revokedAt uint64) []byte {
	pkEncoded := pk.Encode()

	metadata := make([]byte, 0, len(pkEncoded)+8)
	metadata = append(metadata, pkEncoded...)
	metadata = binary.LittleEndian.AppendUint64(metadata, revokedAt)

	digest := sha256.Sum256(metadata)
	return digest[:]
}

// VerifyRevocation checks the revocation signature against its issuer.
func VerifyRevocation(r Revocation) error {
	msg := RevocationBytes(r.PK, r.RevokedAt)
	if err := keys.Verify(r.RevokedBy, msg, r.Signature); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return nil
}

// Equal compares revocations field by field
func (r Revocation) Equal(other Revocation) bool {
	return r.PK.Equal(other.PK) &&
		r.RevokedAt == other.RevokedAt &&
		r.RevokedBy.Equal(other.RevokedBy) &&
		r.Signature.Equal(other.Signature)
}
