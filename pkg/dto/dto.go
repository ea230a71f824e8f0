// Copyright 2025 Certen Protocol
//
// Wire DTOs for the trust graph API. Public keys travel as base58 of the
// tagged envelope; signatures travel as base58 of the raw bytes plus a
// scheme name, so callers never handle tag bytes directly.

package dto

import (
	"fmt"

	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/trust"

	"github.com/mr-tron/base58/base58"
)

// Trust is the wire form of a trust
type Trust struct {
	// IssuedFor is the subject, base58 of the tagged key envelope
	IssuedFor string `json:"issued_for"`
	// ExpiresAt is the expiration of the trust, unix seconds
	ExpiresAt uint64 `json:"expires_at"`
	// Signature is base58 of the raw signature bytes
	Signature string `json:"signature"`
	// SigType is the scheme name of the signature
	SigType string `json:"sig_type"`
	// IssuedAt is the creation time of the trust, unix seconds
	IssuedAt uint64 `json:"issued_at"`
}

// Certificate is the wire form of a certificate
type Certificate struct {
	Chain []Trust `json:"chain"`
}

// Revocation is the wire form of a revocation
type Revocation struct {
	// RevokedPeer is the subject, base58 of the tagged key envelope
	RevokedPeer string `json:"revoked_peer"`
	// RevokedAt is when the revocation takes effect, unix seconds
	RevokedAt uint64 `json:"revoked_at"`
	// RevokedBy is the issuer, base58 of the tagged key envelope
	RevokedBy string `json:"revoked_by"`
	// Signature is base58 of the raw signature bytes
	Signature string `json:"signature"`
	// SigType is the scheme name of the signature
	SigType string `json:"sig_type"`
}

// FromTrust converts a core trust to its wire form
func FromTrust(t trust.Trust) Trust {
	return Trust{
		IssuedFor: t.IssuedFor.ToBase58(),
		ExpiresAt: t.ExpiresAt,
		Signature: base58.Encode(t.Signature.Raw()),
		SigType:   t.Signature.Algorithm().String(),
		IssuedAt:  t.IssuedAt,
	}
}

// ToTrust converts the wire form back to a core trust
func (t Trust) ToTrust() (trust.Trust, error) {
	issuedFor, err := keys.PublicKeyFromBase58(t.IssuedFor)
	if err != nil {
		return trust.Trust{}, fmt.Errorf("decode issued_for: %w", err)
	}

	sig, err := decodeSignature(t.Signature, t.SigType)
	if err != nil {
		return trust.Trust{}, err
	}

	return trust.Trust{
		IssuedFor: issuedFor,
		ExpiresAt: t.ExpiresAt,
		IssuedAt:  t.IssuedAt,
		Signature: sig,
	}, nil
}

// FromCertificate converts a core certificate to its wire form
func FromCertificate(c trust.Certificate) Certificate {
	chain := make([]Trust, len(c.Chain))
	for i, t := range c.Chain {
		chain[i] = FromTrust(t)
	}
	return Certificate{Chain: chain}
}

// FromCertificates converts a batch of core certificates
func FromCertificates(certs []trust.Certificate) []Certificate {
	out := make([]Certificate, len(certs))
	for i, c := range certs {
		out[i] = FromCertificate(c)
	}
	return out
}

// ToCertificate converts the wire form back to a core certificate
func (c Certificate) ToCertificate() (trust.Certificate, error) {
	chain := make([]trust.Trust, len(c.Chain))
	for i, t := range c.Chain {
		coreTrust, err := t.ToTrust()
		if err != nil {
			return trust.Certificate{}, fmt.Errorf("decode trust %d in certificate: %w", i, err)
		}
		chain[i] = coreTrust
	}
	return trust.NewUnverified(chain), nil
}

// FromRevocation converts a core revocation to its wire form
func FromRevocation(r trust.Revocation) Revocation {
	return Revocation{
		RevokedPeer: r.PK.ToBase58(),
		RevokedAt:   r.RevokedAt,
		RevokedBy:   r.RevokedBy.ToBase58(),
		Signature:   base58.Encode(r.Signature.Raw()),
		SigType:     r.Signature.Algorithm().String(),
	}
}

// FromRevocations converts a batch of core revocations
func FromRevocations(revocations []trust.Revocation) []Revocation {
	out := make([]Revocation, len(revocations))
	for i, r := range revocations {
		out[i] = FromRevocation(r)
	}
	return out
}

// ToRevocation converts the wire form back to a core revocation
func (r Revocation) ToRevocation() (trust.Revocation, error) {
	pk, err := keys.PublicKeyFromBase58(r.RevokedPeer)
	if err != nil {
		return trust.Revocation{}, fmt.Errorf("decode revoked_peer: %w", err)
	}
	revokedBy, err := keys.PublicKeyFromBase58(r.RevokedBy)
	if err != nil {
		return trust.Revocation{}, fmt.Errorf("decode revoked_by: %w", err)
	}

	sig, err := decodeSignature(r.Signature, r.SigType)
	if err != nil {
		return trust.Revocation{}, err
	}

	return trust.Revocation{
		PK:        pk,
		RevokedAt: r.RevokedAt,
		RevokedBy: revokedBy,
		Signature: sig,
	}, nil
}

func decodeSignature(text, sigType string) (keys.Signature, error) {
	algorithm, ok := keys.AlgorithmFromName(sigType)
	if !ok {
		return keys.Signature{}, fmt.Errorf("unknown signature type %q", sigType)
	}
	raw, err := base58.Decode(text)
	if err != nil {
		return keys.Signature{}, fmt.Errorf("decode signature: %w", err)
	}
	sig, err := keys.NewSignature(algorithm, raw)
	if err != nil {
		return keys.Signature{}, fmt.Errorf("build signature: %w", err)
	}
	return sig, nil
}
