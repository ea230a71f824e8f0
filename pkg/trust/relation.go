// Copyright 2025 Certen Protocol
//
// TrustRelation - the tagged variant stored in the graph, uniquely keyed
// by (issued_for, issued_by)

package trust

import "github.com/certen/trust-graph/pkg/keys"

// RelationKind discriminates the two relation variants. The integer values
// are the relation_type column on disk.
type RelationKind int

const (
	// KindAuth is a trust authorization edge
	KindAuth RelationKind = 0

	// KindRevocation is a revocation edge
	KindRevocation RelationKind = 1
)

// Auth is a trust together with the issuer that signed it.
type Auth struct {
	// Trust is the proof of this authorization
	Trust Trust
	// IssuedBy is the issuer of the authorization
	IssuedBy keys.PublicKey
}

// Equal compares auths field by field
func (a Auth) Equal(other Auth) bool {
	return a.Trust.Equal(other.Trust) && a.IssuedBy.Equal(other.IssuedBy)
}

// Relation is either an Auth or a Revocation. Both expose the fields the
// storage layer keys and orders by.
type Relation interface {
	Kind() RelationKind
	// Subject is the public key the relation is issued for
	Subject() keys.PublicKey
	// Issuer is the public key that signed the relation
	Issuer() keys.PublicKey
	// Timestamp is when the relation was created; the update policy keeps
	// the newest relation per (subject, issuer) pair
	Timestamp() uint64
	// Expiration is the expiry of an Auth, zero for a Revocation
	Expiration() uint64
	// Proof is the issuer's signature
	Proof() keys.Signature
}

// Kind implements Relation
func (a Auth) Kind() RelationKind { return KindAuth }

// Subject implements Relation
func (a Auth) Subject() keys.PublicKey { return a.Trust.IssuedFor }

// Issuer implements Relation
func (a Auth) Issuer() keys.PublicKey { return a.IssuedBy }

// Timestamp implements Relation
func (a Auth) Timestamp() uint64 { return a.Trust.IssuedAt }

// Expiration implements Relation
func (a Auth) Expiration() uint64 { return a.Trust.ExpiresAt }

// Proof implements Relation
func (a Auth) Proof() keys.Signature { return a.Trust.Signature }

// Kind implements Relation
func (r Revocation) Kind() RelationKind { return KindRevocation }

// Subject implements Relation
func (r Revocation) Subject() keys.PublicKey { return r.PK }

// Issuer implements Relation
func (r Revocation) Issuer() keys.PublicKey { return r.RevokedBy }

// Timestamp implements Relation
func (r Revocation) Timestamp() uint64 { return r.RevokedAt }

// Expiration implements Relation; revocations never expire
func (r Revocation) Expiration() uint64 { return 0 }

// Proof implements Relation
func (r Revocation) Proof() keys.Signature { return r.Signature }
