// Copyright 2025 Certen Protocol
//
// Storage contract backing the trust graph. Relations are uniquely keyed
// by (subject, issuer); the update policy keeps the newest relation per key.

package graph

import (
	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/trust"
)

// WeightFactor is the exponent stored per root; the derived weight is
// 2^(MaxWeightFactor - factor), so a smaller factor means a larger weight.
type WeightFactor = uint32

// MaxWeightFactor caps root weight factors. A factor derived past the cap
// (root factor + chain length - 1) yields weight 0, which is what bounds
// the useful chain length from a root.
const MaxWeightFactor WeightFactor = 16

// WeightFromFactor converts a weight factor to a weight.
func WeightFromFactor(factor WeightFactor) uint32 {
	if factor > MaxWeightFactor {
		return 0
	}
	return 1 << (MaxWeightFactor - factor)
}

// Storage is the persistence contract used by the trust graph. All methods
// may fail with an implementation-defined error, which the graph wraps in
// StorageError and propagates. Implementations must be re-entrant-safe
// under the graph's single owning lock; they need no locking of their own.
type Storage interface {
	// GetRelation returns the one relation keyed by (subject, issuer),
	// or nil when there is none.
	GetRelation(subject, issuer keys.Hashable) (trust.Relation, error)

	// GetAuthorizations returns every Auth issued for subject.
	GetAuthorizations(subject keys.Hashable) ([]trust.Auth, error)

	// GetRevocations returns every Revocation whose subject is subject.
	GetRevocations(subject keys.Hashable) ([]trust.Revocation, error)

	// Insert unconditionally writes the relation under its
	// (subject, issuer) key, replacing any previous one.
	Insert(rel trust.Relation) error

	// GetRootWeightFactor returns the factor of a registered root;
	// ok is false when pk is not a root.
	GetRootWeightFactor(pk keys.Hashable) (factor WeightFactor, ok bool, err error)

	// SetRootWeightFactor registers or updates a root.
	SetRootWeightFactor(pk keys.Hashable, factor WeightFactor) error

	// RootKeys lists every registered root.
	RootKeys() ([]keys.Hashable, error)

	// Revoke stores a revocation under the update policy.
	Revoke(rev trust.Revocation) error

	// UpdateAuth stores an authorization under the update policy.
	UpdateAuth(auth trust.Auth, now uint64) error

	// RemoveExpired deletes every Auth with expires_at <= now.
	// Revocations are never removed.
	RemoveExpired(now uint64) error
}

// UpdateRelation applies the single update policy every Storage
// implementation delegates to: the new relation overwrites the existing
// (subject, issuer) relation iff its timestamp is strictly later,
// regardless of relation kind. The older relation is discarded.
func UpdateRelation(s Storage, rel trust.Relation) error {
	existing, err := s.GetRelation(rel.Subject().Hashable(), rel.Issuer().Hashable())
	if err != nil {
		return err
	}
	if existing != nil && existing.Timestamp() >= rel.Timestamp() {
		return nil
	}
	return s.Insert(rel)
}
