// Copyright 2025 Certen Protocol
//
// TrustGraph - the weighted trust graph core. Adds and verifies trusts and
// revocations, enumerates certificate chains, computes weights and
// garbage-collects expired relations. Exactly one instance exists per
// storage backend; a single lock serializes every public operation, and
// the current time is always supplied by the caller.

package graph

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/trust"
)

// TrustGraph owns a Storage and mediates all mutations.
type TrustGraph struct {
	mu      sync.Mutex
	storage Storage
	logger  *log.Logger
}

// Option is a functional option for configuring the graph
type Option func(*TrustGraph)

// WithLogger sets a custom logger for the graph
func WithLogger(logger *log.Logger) Option {
	return func(g *TrustGraph) {
		g.logger = logger
	}
}

// New creates a trust graph over the given storage.
func New(storage Storage, opts ...Option) *TrustGraph {
	g := &TrustGraph{
		storage: storage,
		logger:  log.New(log.Writer(), "[TrustGraph] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetRootWeightFactor registers pk as a root with the given weight factor.
// Idempotent; factors above the cap are clamped.
func (g *TrustGraph) SetRootWeightFactor(pk keys.PublicKey, factor WeightFactor) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if factor > MaxWeightFactor {
		factor = MaxWeightFactor
	}
	return wrapStorage(g.storage.SetRootWeightFactor(pk.Hashable(), factor))
}

// AddTrust verifies the trust against its issuer at now and stores it.
// The returned weight is the subject's weight contributed through this
// trust: the issuer's full weight for a self-signed trust, half of it
// otherwise, and 0 when the issuer itself has no weight. A zero-weight
// trust is still persisted so that it counts if the issuer gains weight
// later.
func (g *TrustGraph) AddTrust(t trust.Trust, issuedBy keys.PublicKey, now uint64) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addTrust(t, issuedBy, now)
}

func (g *TrustGraph) addTrust(t trust.Trust, issuedBy keys.PublicKey, now uint64) (uint32, error) {
	if err := trust.Verify(t, issuedBy, now); err != nil {
		return 0, err
	}

	issuerWeight, err := g.weight(issuedBy, now)
	if err != nil {
		return 0, err
	}

	auth := trust.Auth{Trust: t, IssuedBy: issuedBy}
	if err := g.storage.UpdateAuth(auth, now); err != nil {
		return 0, wrapStorage(err)
	}

	if issuerWeight == 0 {
		return 0, nil
	}
	if t.IssuedFor.Equal(issuedBy) {
		// a self-signed trust carries the issuer's weight undiminished
		return issuerWeight, nil
	}
	return issuerWeight / 2, nil
}

// Add adds a whole certificate chain to the graph, verifying each trust
// in order from the root.
func (g *TrustGraph) Add(cert trust.Certificate, now uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(cert.Chain) == 0 {
		return ErrEmptyChain
	}

	issuedBy := cert.Chain[0].IssuedFor
	for _, t := range cert.Chain {
		if _, err := g.addTrust(t, issuedBy, now); err != nil {
			return err
		}
		issuedBy = t.IssuedFor
	}
	return nil
}

// Revoke verifies the revocation signature and stores it. A revocation of
// a subject the graph has never seen is stored as well; it takes effect if
// trusts for that subject appear later.
func (g *TrustGraph) Revoke(rev trust.Revocation) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := trust.VerifyRevocation(rev); err != nil {
		return err
	}
	return wrapStorage(g.storage.Revoke(rev))
}

// Weight returns the maximum weight of trust for pk at now: the larger of
// the weight from pk's own root factor and the weight of the best
// certificate chain ending at pk.
func (g *TrustGraph) Weight(pk keys.PublicKey, now uint64) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.weight(pk, now)
}

// WeightFrom is Weight restricted to certificates whose chain passes
// through issuer.
func (g *TrustGraph) WeightFrom(pk, issuer keys.PublicKey, now uint64) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	certs, err := g.allCerts(pk, now)
	if err != nil {
		return 0, err
	}
	filtered := certs[:0]
	for _, c := range certs {
		if c.Contains(issuer) {
			filtered = append(filtered, c)
		}
	}

	// only trust transported through the issuer counts here; the
	// subject's own root factor does not
	factor, found, err := g.certificatesWeightFactor(filtered)
	if err != nil || !found {
		return 0, err
	}
	return WeightFromFactor(factor), nil
}

func (g *TrustGraph) weight(pk keys.PublicKey, now uint64) (uint32, error) {
	certs, err := g.allCerts(pk, now)
	if err != nil {
		return 0, err
	}
	return g.combinedWeight(pk, certs)
}

func (g *TrustGraph) combinedWeight(pk keys.PublicKey, certs []trust.Certificate) (uint32, error) {
	var own uint32
	factor, ok, err := g.storage.GetRootWeightFactor(pk.Hashable())
	if err != nil {
		return 0, wrapStorage(err)
	}
	if ok {
		own = WeightFromFactor(factor)
	}

	chainFactor, found, err := g.certificatesWeightFactor(certs)
	if err != nil {
		return 0, err
	}
	var viaChains uint32
	if found {
		viaChains = WeightFromFactor(chainFactor)
	}

	if own > viaChains {
		return own, nil
	}
	return viaChains, nil
}

// CertificatesWeightFactor computes the best (smallest) weight factor
// reachable through the given certificates: per certificate the factor is
// the root's factor plus the chain length minus one, and the result is the
// minimum across all certificates. found is false for an empty iterator.
func (g *TrustGraph) CertificatesWeightFactor(certs []trust.Certificate) (WeightFactor, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.certificatesWeightFactor(certs)
}

func (g *TrustGraph) certificatesWeightFactor(certs []trust.Certificate) (WeightFactor, bool, error) {
	if len(certs) == 0 {
		return 0, false, nil
	}

	best := WeightFactor(^uint32(0))
	for _, cert := range certs {
		if len(cert.Chain) == 0 {
			return 0, false, ErrEmptyChain
		}

		rootFactor, ok, err := g.storage.GetRootWeightFactor(cert.Chain[0].IssuedFor.Hashable())
		if err != nil {
			return 0, false, wrapStorage(err)
		}
		if !ok {
			return 0, false, ErrNoRoot
		}

		factor := rootFactor + uint32(len(cert.Chain)) - 1
		if factor < best {
			best = factor
		}
	}

	return best, true, nil
}

// AllCertificates enumerates every certificate whose last trust is issued
// for subject and whose head converges to a registered root. Expired
// relations are swept under the same logical time before the search.
func (g *TrustGraph) AllCertificates(subject keys.PublicKey, now uint64) ([]trust.Certificate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allCerts(subject, now)
}

// AllCertificatesFrom is AllCertificates restricted to chains containing
// issuer.
func (g *TrustGraph) AllCertificatesFrom(subject, issuer keys.PublicKey, now uint64) ([]trust.Certificate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	certs, err := g.allCerts(subject, now)
	if err != nil {
		return nil, err
	}
	filtered := certs[:0]
	for _, c := range certs {
		if c.Contains(issuer) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (g *TrustGraph) allCerts(subject keys.PublicKey, now uint64) ([]trust.Certificate, error) {
	// garbage-collect under the same logical time as the query, so the
	// enumeration only ever sees live relations
	if err := g.storage.RemoveExpired(now); err != nil {
		return nil, wrapStorage(err)
	}

	rootKeys, err := g.storage.RootKeys()
	if err != nil {
		return nil, wrapStorage(err)
	}
	roots := make(map[keys.Hashable]struct{}, len(rootKeys))
	for _, r := range rootKeys {
		roots[r] = struct{}{}
	}

	paths, err := g.bfSearchPaths(subject.Hashable(), roots)
	if err != nil {
		return nil, err
	}

	certs := make([]trust.Certificate, 0, len(paths))
	for _, auths := range paths {
		if len(auths) < 2 {
			// a single-trust certificate proves nothing
			continue
		}
		chain := make([]trust.Trust, len(auths))
		for i, a := range auths {
			chain[len(auths)-1-i] = a.Trust
		}
		certs = append(certs, trust.NewUnverified(chain))
	}
	return certs, nil
}

// bfSearchPaths runs the breadth-first search for all paths from subject
// that terminate in a self-signed trust of a registered root. Paths
// passing through a revoked edge are excluded: each chain accumulates the
// revokers of every vertex it visits and refuses extension through them.
func (g *TrustGraph) bfSearchPaths(subject keys.Hashable, roots map[keys.Hashable]struct{}) ([][]trust.Auth, error) {
	subjectRevocations, err := g.storage.GetRevocations(subject)
	if err != nil {
		return nil, wrapStorage(err)
	}

	subjectAuths, err := g.authorizationsSorted(subject)
	if err != nil {
		return nil, err
	}

	queue := make([]*chain, 0, len(subjectAuths))
	for _, auth := range subjectAuths {
		queue = append(queue, newChain(auth, subjectRevocations))
	}

	var terminated [][]trust.Auth
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		last := cur.last()
		issuerKey := last.IssuedBy.Hashable()

		nextAuths, err := g.authorizationsSorted(issuerKey)
		if err != nil {
			return nil, err
		}
		for _, auth := range nextAuths {
			if !cur.canBeExtendedBy(auth.IssuedBy) {
				continue
			}
			revocations, err := g.storage.GetRevocations(auth.IssuedBy.Hashable())
			if err != nil {
				return nil, wrapStorage(err)
			}
			queue = append(queue, cur.extended(auth, revocations))
		}

		// a terminated chain ends with a self-signed trust of a root and
		// holds more than one auth
		selfSigned := last.Trust.IssuedFor.Equal(last.IssuedBy)
		_, convergesToRoot := roots[issuerKey]
		if selfSigned && convergesToRoot && len(cur.auths) > 1 {
			terminated = append(terminated, cur.auths)
		}
	}

	return terminated, nil
}

// authorizationsSorted returns the auths issued for pk in deterministic
// issuer order, so enumeration results are stable across runs.
func (g *TrustGraph) authorizationsSorted(pk keys.Hashable) ([]trust.Auth, error) {
	auths, err := g.storage.GetAuthorizations(pk)
	if err != nil {
		return nil, wrapStorage(err)
	}
	sort.Slice(auths, func(i, j int) bool {
		return auths[i].IssuedBy.Hashable() < auths[j].IssuedBy.Hashable()
	})
	return auths, nil
}

// Revocations lists every stored revocation of subject.
func (g *TrustGraph) Revocations(subject keys.PublicKey) ([]trust.Revocation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	revocations, err := g.storage.GetRevocations(subject.Hashable())
	if err != nil {
		return nil, wrapStorage(err)
	}
	return revocations, nil
}

// VerifyCertificate checks cert against the registered root set at now.
func (g *TrustGraph) VerifyCertificate(cert trust.Certificate, now uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rootKeys, err := g.storage.RootKeys()
	if err != nil {
		return wrapStorage(err)
	}
	roots := make([]keys.PublicKey, 0, len(rootKeys))
	for _, h := range rootKeys {
		pk, err := h.PublicKey()
		if err != nil {
			return fmt.Errorf("corrupt root key in storage: %w", err)
		}
		roots = append(roots, pk)
	}
	return trust.VerifyCertificate(cert, roots, now)
}
