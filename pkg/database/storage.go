// Copyright 2025 Certen Protocol
//
// SQLStorage - the PostgreSQL implementation of the trust graph storage
// contract. Relations are keyed by (issued_for, issued_by); public keys
// are stored as base58 of the tagged envelope, signatures as the raw
// envelope bytes.

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/certen/trust-graph/pkg/graph"
	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/trust"
)

const (
	authType   = 0
	revokeType = 1
)

// SQLStorage implements graph.Storage over a database client.
type SQLStorage struct {
	db  *sql.DB
	ctx context.Context
}

// StorageOption is a functional option for configuring the storage
type StorageOption func(*SQLStorage)

// WithContext sets the context used for all storage queries
func WithContext(ctx context.Context) StorageOption {
	return func(s *SQLStorage) {
		s.ctx = ctx
	}
}

// NewSQLStorage creates a storage over the given client. The caller is
// expected to have run migrations already.
func NewSQLStorage(client *Client, opts ...StorageOption) *SQLStorage {
	s := &SQLStorage{
		db:  client.DB(),
		ctx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const relationColumns = "relation_type, issued_for, issued_by, issued_at, expires_at, signature"

// scanRelation converts one trust_relations row into a Relation
func scanRelation(scan func(dest ...any) error) (trust.Relation, error) {
	var (
		relationType        int
		issuedFor, issuedBy string
		issuedAt, expiresAt int64
		signature           []byte
	)
	if err := scan(&relationType, &issuedFor, &issuedBy, &issuedAt, &expiresAt, &signature); err != nil {
		return nil, err
	}

	forPK, err := keys.PublicKeyFromBase58(issuedFor)
	if err != nil {
		return nil, fmt.Errorf("corrupt issued_for column: %w", err)
	}
	byPK, err := keys.PublicKeyFromBase58(issuedBy)
	if err != nil {
		return nil, fmt.Errorf("corrupt issued_by column: %w", err)
	}
	sig, err := keys.DecodeSignature(signature)
	if err != nil {
		return nil, fmt.Errorf("corrupt signature column: %w", err)
	}

	if relationType == authType {
		return trust.Auth{
			Trust: trust.Trust{
				IssuedFor: forPK,
				ExpiresAt: uint64(expiresAt),
				IssuedAt:  uint64(issuedAt),
				Signature: sig,
			},
			IssuedBy: byPK,
		}, nil
	}
	return trust.Revocation{
		PK:        forPK,
		RevokedAt: uint64(issuedAt),
		RevokedBy: byPK,
		Signature: sig,
	}, nil
}

// GetRelation implements graph.Storage
func (s *SQLStorage) GetRelation(subject, issuer keys.Hashable) (trust.Relation, error) {
	row := s.db.QueryRowContext(s.ctx,
		"SELECT "+relationColumns+" FROM trust_relations WHERE issued_for = $1 AND issued_by = $2",
		subject.String(), issuer.String())

	rel, err := scanRelation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// GetAuthorizations implements graph.Storage
func (s *SQLStorage) GetAuthorizations(subject keys.Hashable) ([]trust.Auth, error) {
	rows, err := s.db.QueryContext(s.ctx,
		"SELECT "+relationColumns+" FROM trust_relations WHERE issued_for = $1 AND relation_type = $2",
		subject.String(), authType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auths []trust.Auth
	for rows.Next() {
		rel, err := scanRelation(rows.Scan)
		if err != nil {
			return nil, err
		}
		if auth, ok := rel.(trust.Auth); ok {
			auths = append(auths, auth)
		}
	}
	return auths, rows.Err()
}

// GetRevocations implements graph.Storage
func (s *SQLStorage) GetRevocations(subject keys.Hashable) ([]trust.Revocation, error) {
	rows, err := s.db.QueryContext(s.ctx,
		"SELECT "+relationColumns+" FROM trust_relations WHERE issued_for = $1 AND relation_type = $2",
		subject.String(), revokeType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revocations []trust.Revocation
	for rows.Next() {
		rel, err := scanRelation(rows.Scan)
		if err != nil {
			return nil, err
		}
		if rev, ok := rel.(trust.Revocation); ok {
			revocations = append(revocations, rev)
		}
	}
	return revocations, rows.Err()
}

// Insert implements graph.Storage
func (s *SQLStorage) Insert(rel trust.Relation) error {
	relationType := authType
	if rel.Kind() == trust.KindRevocation {
		relationType = revokeType
	}

	_, err := s.db.ExecContext(s.ctx,
		`INSERT INTO trust_relations (relation_type, issued_for, issued_by, issued_at, expires_at, signature)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (issued_for, issued_by) DO UPDATE SET
		   relation_type = EXCLUDED.relation_type,
		   issued_at = EXCLUDED.issued_at,
		   expires_at = EXCLUDED.expires_at,
		   signature = EXCLUDED.signature`,
		relationType,
		rel.Subject().ToBase58(),
		rel.Issuer().ToBase58(),
		int64(rel.Timestamp()),
		int64(rel.Expiration()),
		rel.Proof().Encode())
	return err
}

// GetRootWeightFactor implements graph.Storage
func (s *SQLStorage) GetRootWeightFactor(pk keys.Hashable) (graph.WeightFactor, bool, error) {
	var factor int64
	err := s.db.QueryRowContext(s.ctx,
		"SELECT weight_factor FROM roots WHERE public_key = $1", pk.String()).Scan(&factor)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if factor < 0 {
		return 0, false, fmt.Errorf("negative weight factor %d for root %s", factor, pk)
	}
	return graph.WeightFactor(factor), true, nil
}

// SetRootWeightFactor implements graph.Storage
func (s *SQLStorage) SetRootWeightFactor(pk keys.Hashable, factor graph.WeightFactor) error {
	_, err := s.db.ExecContext(s.ctx,
		`INSERT INTO roots (public_key, weight_factor) VALUES ($1, $2)
		 ON CONFLICT (public_key) DO UPDATE SET weight_factor = EXCLUDED.weight_factor`,
		pk.String(), int64(factor))
	return err
}

// RootKeys implements graph.Storage
func (s *SQLStorage) RootKeys() ([]keys.Hashable, error) {
	rows, err := s.db.QueryContext(s.ctx, "SELECT public_key FROM roots")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roots []keys.Hashable
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, err
		}
		h, err := keys.HashableFromBase58(encoded)
		if err != nil {
			return nil, fmt.Errorf("corrupt root public_key column: %w", err)
		}
		roots = append(roots, h)
	}
	return roots, rows.Err()
}

// Revoke implements graph.Storage
func (s *SQLStorage) Revoke(rev trust.Revocation) error {
	return graph.UpdateRelation(s, rev)
}

// UpdateAuth implements graph.Storage
func (s *SQLStorage) UpdateAuth(auth trust.Auth, _ uint64) error {
	return graph.UpdateRelation(s, auth)
}

// RemoveExpired implements graph.Storage. Expirations above the BIGINT
// range (such as the maximum expiry of a root self-trust) are stored as
// negative values and are never swept.
func (s *SQLStorage) RemoveExpired(now uint64) error {
	_, err := s.db.ExecContext(s.ctx,
		"DELETE FROM trust_relations WHERE expires_at >= 0 AND expires_at <= $1 AND relation_type = $2",
		int64(now), authType)
	return err
}
