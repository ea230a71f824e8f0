// Copyright 2025 Certen Protocol
//
// In-memory Storage implementation. Used by tests and by ephemeral
// deployments that do not need durability.

package graph

import (
	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/trust"
)

// InMemoryStorage keeps relations and roots in maps, keyed by the
// byte-encoded public key. Safe for use under the graph's lock only.
type InMemoryStorage struct {
	// relations maps subject -> issuer -> relation
	relations map[keys.Hashable]map[keys.Hashable]trust.Relation
	roots     map[keys.Hashable]WeightFactor
}

// NewInMemoryStorage creates an empty in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		relations: make(map[keys.Hashable]map[keys.Hashable]trust.Relation),
		roots:     make(map[keys.Hashable]WeightFactor),
	}
}

// GetRelation implements Storage
func (s *InMemoryStorage) GetRelation(subject, issuer keys.Hashable) (trust.Relation, error) {
	byIssuer, ok := s.relations[subject]
	if !ok {
		return nil, nil
	}
	rel, ok := byIssuer[issuer]
	if !ok {
		return nil, nil
	}
	return rel, nil
}

// GetAuthorizations implements Storage
func (s *InMemoryStorage) GetAuthorizations(subject keys.Hashable) ([]trust.Auth, error) {
	var auths []trust.Auth
	for _, rel := range s.relations[subject] {
		if auth, ok := rel.(trust.Auth); ok {
			auths = append(auths, auth)
		}
	}
	return auths, nil
}

// GetRevocations implements Storage
func (s *InMemoryStorage) GetRevocations(subject keys.Hashable) ([]trust.Revocation, error) {
	var revocations []trust.Revocation
	for _, rel := range s.relations[subject] {
		if rev, ok := rel.(trust.Revocation); ok {
			revocations = append(revocations, rev)
		}
	}
	return revocations, nil
}

// Insert implements Storage
func (s *InMemoryStorage) Insert(rel trust.Relation) error {
	subject := rel.Subject().Hashable()
	byIssuer, ok := s.relations[subject]
	if !ok {
		byIssuer = make(map[keys.Hashable]trust.Relation)
		s.relations[subject] = byIssuer
	}
	byIssuer[rel.Issuer().Hashable()] = rel
	return nil
}

// GetRootWeightFactor implements Storage
func (s *InMemoryStorage) GetRootWeightFactor(pk keys.Hashable) (WeightFactor, bool, error) {
	factor, ok := s.roots[pk]
	return factor, ok, nil
}

// SetRootWeightFactor implements Storage
func (s *InMemoryStorage) SetRootWeightFactor(pk keys.Hashable, factor WeightFactor) error {
	s.roots[pk] = factor
	return nil
}

// RootKeys implements Storage
func (s *InMemoryStorage) RootKeys() ([]keys.Hashable, error) {
	roots := make([]keys.Hashable, 0, len(s.roots))
	for pk := range s.roots {
		roots = append(roots, pk)
	}
	return roots, nil
}

// Revoke implements Storage
func (s *InMemoryStorage) Revoke(rev trust.Revocation) error {
	return UpdateRelation(s, rev)
}

// UpdateAuth implements Storage
func (s *InMemoryStorage) UpdateAuth(auth trust.Auth, _ uint64) error {
	return UpdateRelation(s, auth)
}

// RemoveExpired implements Storage
func (s *InMemoryStorage) RemoveExpired(now uint64) error {
	for subject, byIssuer := range s.relations {
		for issuer, rel := range byIssuer {
			if rel.Kind() == trust.KindAuth && rel.Expiration() <= now {
				delete(byIssuer, issuer)
			}
		}
		if len(byIssuer) == 0 {
			delete(s.relations, subject)
		}
	}
	return nil
}
