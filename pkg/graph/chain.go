// Copyright 2025 Certen Protocol
//
// Chain - one BFS path through the graph, with the revoker set collected
// along it

package graph

import (
	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/trust"
)

// chain is a path of auths ordered subject -> root, together with every
// issuer that revoked a vertex on the path. A chain may only be extended
// through issuers that are neither already on the path nor in the revoker
// set.
type chain struct {
	auths     []trust.Auth
	revokedBy map[keys.Hashable]struct{}
}

func newChain(auth trust.Auth, revocations []trust.Revocation) *chain {
	c := &chain{
		auths:     []trust.Auth{auth},
		revokedBy: make(map[keys.Hashable]struct{}),
	}
	c.addRevocations(revocations)
	return c
}

func (c *chain) addRevocations(revocations []trust.Revocation) {
	for _, r := range revocations {
		c.revokedBy[r.RevokedBy.Hashable()] = struct{}{}
	}
}

// canBeExtendedBy is true iff pk has not revoked any vertex on the path
// and no auth on the path was issued for pk. The second condition prevents
// the BFS from revisiting a vertex, which guarantees termination even in
// cyclic graphs.
func (c *chain) canBeExtendedBy(pk keys.PublicKey) bool {
	if _, revoked := c.revokedBy[pk.Hashable()]; revoked {
		return false
	}
	for _, a := range c.auths {
		if a.Trust.IssuedFor.Equal(pk) {
			return false
		}
	}
	return true
}

// extended clones the chain, appends auth and folds in the revocations of
// the new vertex.
func (c *chain) extended(auth trust.Auth, revocations []trust.Revocation) *chain {
	auths := make([]trust.Auth, len(c.auths), len(c.auths)+1)
	copy(auths, c.auths)
	auths = append(auths, auth)

	revokedBy := make(map[keys.Hashable]struct{}, len(c.revokedBy)+len(revocations))
	for k := range c.revokedBy {
		revokedBy[k] = struct{}{}
	}

	next := &chain{auths: auths, revokedBy: revokedBy}
	next.addRevocations(revocations)
	return next
}

// last returns the final auth on the path
func (c *chain) last() trust.Auth {
	return c.auths[len(c.auths)-1]
}
