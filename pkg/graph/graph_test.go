// Copyright 2025 Certen Protocol
//
// Trust Graph Tests
// Covers weight computation, chain enumeration, revocations, expiration
// sweep and relation supersession over the in-memory storage.

package graph

import (
	"errors"
	"testing"

	"github.com/certen/trust-graph/pkg/keys"
	"github.com/certen/trust-graph/pkg/trust"
)

const oneMinute = 60

func mustKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()
	kp, err := keys.Generate(keys.Ed25519)
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	return kp
}

func mustTrust(t *testing.T, issuer *keys.KeyPair, subject keys.PublicKey, expiresAt, issuedAt uint64) trust.Trust {
	t.Helper()
	tr, err := trust.Create(issuer, subject, expiresAt, issuedAt)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}
	return tr
}

func mustRevocation(t *testing.T, revoker *keys.KeyPair, subject keys.PublicKey, revokedAt uint64) trust.Revocation {
	t.Helper()
	rev, err := trust.CreateRevocation(revoker, subject, revokedAt)
	if err != nil {
		t.Fatalf("failed to create revocation: %v", err)
	}
	return rev
}

// generateChainCert builds a certificate over freshly generated key pairs
// with the given chain length (self-signed root trust included).
func generateChainCert(t *testing.T, length int, expiresAt, issuedAt, curTime uint64) ([]*keys.KeyPair, trust.Certificate) {
	t.Helper()
	if length < 2 {
		t.Fatalf("chain length %d too short", length)
	}

	rootKP := mustKeyPair(t)
	secondKP := mustKeyPair(t)
	cert, err := trust.IssueRoot(rootKP, secondKP.Public(), expiresAt, issuedAt)
	if err != nil {
		t.Fatalf("failed to issue root certificate: %v", err)
	}

	keyPairs := []*keys.KeyPair{rootKP, secondKP}
	for i := 2; i < length; i++ {
		kp := mustKeyPair(t)
		cert, err = trust.Issue(keyPairs[i-1], kp.Public(), cert, expiresAt, issuedAt, curTime)
		if err != nil {
			t.Fatalf("failed to extend certificate: %v", err)
		}
		keyPairs = append(keyPairs, kp)
	}
	return keyPairs, cert
}

func newGraph() *TrustGraph {
	return New(NewInMemoryStorage())
}

func TestRootTrustFullWeight(t *testing.T) {
	// S1: a self-signed root trust contributes the root's full weight
	g := newGraph()
	rootKP := mustKeyPair(t)

	if err := g.SetRootWeightFactor(rootKP.Public(), 4); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}

	selfTrust := mustTrust(t, rootKP, rootKP.Public(), 9999, 0)
	weight, err := g.AddTrust(selfTrust, rootKP.Public(), 100)
	if err != nil {
		t.Fatalf("failed to add trust: %v", err)
	}
	if weight != 4096 {
		t.Errorf("self-signed root trust weight: got %d, want 4096", weight)
	}

	w, err := g.Weight(rootKP.Public(), 100)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w != 4096 {
		t.Errorf("root weight: got %d, want 4096", w)
	}
}

func TestAddCertificateAndChainWeights(t *testing.T) {
	curTime := uint64(100)
	keyPairs, cert := generateChainCert(t, 10, curTime+oneMinute, curTime, curTime)

	g := newGraph()
	if err := g.SetRootWeightFactor(keyPairs[0].Public(), 1); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	if err := g.Add(cert, curTime); err != nil {
		t.Fatalf("failed to add certificate: %v", err)
	}

	rootWeight := WeightFromFactor(1)

	w0, err := g.Weight(keyPairs[0].Public(), curTime)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w0 != rootWeight {
		t.Errorf("weight of root: got %d, want %d", w0, rootWeight)
	}

	w1, err := g.Weight(keyPairs[1].Public(), curTime)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w1 != rootWeight/2 {
		t.Errorf("weight of first subject: got %d, want %d", w1, rootWeight/2)
	}

	w9, err := g.Weight(keyPairs[9].Public(), curTime)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w9 != rootWeight/(1<<9) {
		t.Errorf("weight of chain tail: got %d, want %d", w9, rootWeight/(1<<9))
	}
}

func TestChainMonotonicity(t *testing.T) {
	// property 3: a non-revoked chain of length k rooted with factor f
	// gives the tail at least 2^(16 - (f + k - 1))
	curTime := uint64(100)
	keyPairs, cert := generateChainCert(t, 5, curTime+oneMinute, curTime, curTime)

	g := newGraph()
	factor := WeightFactor(2)
	if err := g.SetRootWeightFactor(keyPairs[0].Public(), factor); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	if err := g.Add(cert, curTime); err != nil {
		t.Fatalf("failed to add certificate: %v", err)
	}

	tail := keyPairs[len(keyPairs)-1].Public()
	w, err := g.Weight(tail, curTime)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	min := WeightFromFactor(factor + uint32(len(cert.Chain)) - 1)
	if w < min {
		t.Errorf("tail weight %d below chain bound %d", w, min)
	}
}

func TestEmptyCertificateRejected(t *testing.T) {
	g := newGraph()
	if err := g.Add(trust.Certificate{}, 100); !errors.Is(err, ErrEmptyChain) {
		t.Errorf("expected ErrEmptyChain, got %v", err)
	}
}

func TestZeroWeightIssuerStillStored(t *testing.T) {
	// a trust from a weightless issuer contributes nothing now but counts
	// once the issuer gains weight
	curTime := uint64(100)
	g := newGraph()

	issuerKP := mustKeyPair(t)
	subjectKP := mustKeyPair(t)

	tr := mustTrust(t, issuerKP, subjectKP.Public(), curTime+oneMinute, curTime)
	weight, err := g.AddTrust(tr, issuerKP.Public(), curTime)
	if err != nil {
		t.Fatalf("failed to add trust: %v", err)
	}
	if weight != 0 {
		t.Errorf("weight from weightless issuer: got %d, want 0", weight)
	}

	// the issuer becomes a root afterwards; the stored trust now carries
	// weight without being re-added
	if err := g.SetRootWeightFactor(issuerKP.Public(), 0); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	selfTrust := mustTrust(t, issuerKP, issuerKP.Public(), curTime+oneMinute, curTime)
	if _, err := g.AddTrust(selfTrust, issuerKP.Public(), curTime); err != nil {
		t.Fatalf("failed to add self trust: %v", err)
	}

	w, err := g.Weight(subjectKP.Public(), curTime)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w != WeightFromFactor(0)/2 {
		t.Errorf("subject weight after issuer became root: got %d, want %d", w, WeightFromFactor(0)/2)
	}
}

func TestDirectRevocationCancelsTrust(t *testing.T) {
	// S3 / property 5
	curTime := uint64(100)
	g := newGraph()

	rootKP := mustKeyPair(t)
	subjectKP := mustKeyPair(t)

	if err := g.SetRootWeightFactor(rootKP.Public(), 2); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	selfTrust := mustTrust(t, rootKP, rootKP.Public(), curTime+oneMinute, curTime)
	if _, err := g.AddTrust(selfTrust, rootKP.Public(), curTime); err != nil {
		t.Fatalf("failed to add self trust: %v", err)
	}
	tr := mustTrust(t, rootKP, subjectKP.Public(), curTime+oneMinute, curTime)
	if _, err := g.AddTrust(tr, rootKP.Public(), curTime); err != nil {
		t.Fatalf("failed to add trust: %v", err)
	}

	w, err := g.Weight(subjectKP.Public(), curTime)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w == 0 {
		t.Fatal("subject weight is 0 before revocation")
	}

	rev := mustRevocation(t, rootKP, subjectKP.Public(), curTime+1)
	if err := g.Revoke(rev); err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}

	w, err = g.Weight(subjectKP.Public(), curTime+1)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w != 0 {
		t.Errorf("subject weight after revocation: got %d, want 0", w)
	}

	certs, err := g.AllCertificates(subjectKP.Public(), curTime+1)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(certs) != 0 {
		t.Errorf("certificates after revocation: got %d, want 0", len(certs))
	}
}

func TestIndirectRevocationAndRecovery(t *testing.T) {
	// S4 / property 6: [1] revokes [4] on the chain 0->1->2->3->4; a new
	// path 0->2->4 restores a nonzero weight
	curTime := uint64(100)
	keyPairs, cert := generateChainCert(t, 5, curTime+oneMinute, curTime, curTime)

	g := newGraph()
	if err := g.SetRootWeightFactor(keyPairs[0].Public(), 2); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	if err := g.Add(cert, curTime); err != nil {
		t.Fatalf("failed to add certificate: %v", err)
	}

	revoked := keyPairs[4].Public()
	rev := mustRevocation(t, keyPairs[1], revoked, curTime+1)
	if err := g.Revoke(rev); err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}

	w, err := g.Weight(revoked, curTime+1)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w != 0 {
		t.Fatalf("weight after indirect revocation: got %d, want 0", w)
	}

	// a fresh path around the revoker restores trust
	bypass1 := mustTrust(t, keyPairs[0], keyPairs[2].Public(), curTime+oneMinute, curTime+2)
	if _, err := g.AddTrust(bypass1, keyPairs[0].Public(), curTime+2); err != nil {
		t.Fatalf("failed to add bypass trust: %v", err)
	}
	bypass2 := mustTrust(t, keyPairs[2], revoked, curTime+oneMinute, curTime+2)
	if _, err := g.AddTrust(bypass2, keyPairs[2].Public(), curTime+2); err != nil {
		t.Fatalf("failed to add bypass trust: %v", err)
	}

	w, err = g.Weight(revoked, curTime+2)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w == 0 {
		t.Error("weight not restored by the bypass path")
	}
}

func TestExpirationSweep(t *testing.T) {
	// S2 / property 7: expired auths are deleted by the sweep and stay
	// deleted even for queries about earlier times
	g := newGraph()
	rootKP := mustKeyPair(t)
	subjectKP := mustKeyPair(t)

	if err := g.SetRootWeightFactor(rootKP.Public(), 10); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	selfTrust := mustTrust(t, rootKP, rootKP.Public(), 10099, 100)
	if _, err := g.AddTrust(selfTrust, rootKP.Public(), 100); err != nil {
		t.Fatalf("failed to add self trust: %v", err)
	}
	tr := mustTrust(t, rootKP, subjectKP.Public(), 110099, 100)
	if _, err := g.AddTrust(tr, rootKP.Public(), 100); err != nil {
		t.Fatalf("failed to add trust: %v", err)
	}

	w, err := g.Weight(subjectKP.Public(), 100)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w != WeightFromFactor(10)/2 {
		t.Errorf("subject weight: got %d, want %d", w, WeightFromFactor(10)/2)
	}

	// past the root self-trust expiry no chain terminates
	certs, err := g.AllCertificates(subjectKP.Public(), 10100)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(certs) != 0 {
		t.Errorf("certificates after expiry: got %d, want 0", len(certs))
	}

	// the sweep is permanent; asking about an earlier time changes nothing
	certs, err = g.AllCertificates(subjectKP.Public(), 100)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(certs) != 0 {
		t.Errorf("certificates after permanent sweep: got %d, want 0", len(certs))
	}
}

func TestSupersessionByNewerTimestamp(t *testing.T) {
	// S5 / property 8: the newer trust for the same (issuer, subject)
	// replaces the older one
	t0 := uint64(100)
	g := newGraph()
	rootKP := mustKeyPair(t)
	subjectKP := mustKeyPair(t)

	if err := g.SetRootWeightFactor(rootKP.Public(), 2); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	selfTrust := mustTrust(t, rootKP, rootKP.Public(), t0+100000, t0)
	if _, err := g.AddTrust(selfTrust, rootKP.Public(), t0); err != nil {
		t.Fatalf("failed to add self trust: %v", err)
	}

	short := mustTrust(t, rootKP, subjectKP.Public(), t0+10, t0)
	if _, err := g.AddTrust(short, rootKP.Public(), t0); err != nil {
		t.Fatalf("failed to add trust: %v", err)
	}

	long := mustTrust(t, rootKP, subjectKP.Public(), t0+10000, t0+1)
	if _, err := g.AddTrust(long, rootKP.Public(), t0+1); err != nil {
		t.Fatalf("failed to add replacement trust: %v", err)
	}

	w, err := g.Weight(subjectKP.Public(), t0+11)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w == 0 {
		t.Error("superseding trust did not survive the original expiry")
	}
}

func TestOlderRelationDoesNotSupersede(t *testing.T) {
	t0 := uint64(100)
	g := newGraph()
	rootKP := mustKeyPair(t)
	subjectKP := mustKeyPair(t)

	if err := g.SetRootWeightFactor(rootKP.Public(), 2); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	selfTrust := mustTrust(t, rootKP, rootKP.Public(), t0+100000, t0)
	if _, err := g.AddTrust(selfTrust, rootKP.Public(), t0); err != nil {
		t.Fatalf("failed to add self trust: %v", err)
	}

	// revocation at t0+5 beats the trust issued at t0 ...
	tr := mustTrust(t, rootKP, subjectKP.Public(), t0+10000, t0)
	if _, err := g.AddTrust(tr, rootKP.Public(), t0); err != nil {
		t.Fatalf("failed to add trust: %v", err)
	}
	rev := mustRevocation(t, rootKP, subjectKP.Public(), t0+5)
	if err := g.Revoke(rev); err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}

	// ... and an older trust cannot displace the revocation
	stale := mustTrust(t, rootKP, subjectKP.Public(), t0+20000, t0+2)
	if _, err := g.AddTrust(stale, rootKP.Public(), t0+6); err != nil {
		t.Fatalf("failed to add stale trust: %v", err)
	}

	w, err := g.Weight(subjectKP.Public(), t0+6)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w != 0 {
		t.Errorf("stale trust displaced a newer revocation: weight %d", w)
	}
}

func TestCyclesTerminate(t *testing.T) {
	// mutual trusts form a cycle; enumeration must still terminate and
	// find the chain to the root
	curTime := uint64(100)
	g := newGraph()

	rootKP := mustKeyPair(t)
	aKP := mustKeyPair(t)
	bKP := mustKeyPair(t)

	if err := g.SetRootWeightFactor(rootKP.Public(), 1); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	for _, edge := range []struct {
		issuer  *keys.KeyPair
		subject keys.PublicKey
	}{
		{rootKP, rootKP.Public()},
		{rootKP, aKP.Public()},
		{aKP, bKP.Public()},
		{bKP, aKP.Public()}, // cycle a <-> b
	} {
		tr := mustTrust(t, edge.issuer, edge.subject, curTime+oneMinute, curTime)
		if _, err := g.AddTrust(tr, edge.issuer.Public(), curTime); err != nil {
			t.Fatalf("failed to add trust: %v", err)
		}
	}

	w, err := g.Weight(bKP.Public(), curTime)
	if err != nil {
		t.Fatalf("failed to compute weight: %v", err)
	}
	if w != WeightFromFactor(1)/4 {
		t.Errorf("weight through cycle: got %d, want %d", w, WeightFromFactor(1)/4)
	}
}

func TestTwoRootChain(t *testing.T) {
	// S6 / property 9: with both ends registered as roots and self-signed,
	// the tail yields exactly two certificates, lengths 6 and 7
	curTime := uint64(100)
	keyPairs, cert := generateChainCert(t, 6, curTime+oneMinute, curTime, curTime)

	g := newGraph()
	head := keyPairs[0]
	tail := keyPairs[5]
	if err := g.SetRootWeightFactor(head.Public(), 1); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	if err := g.SetRootWeightFactor(tail.Public(), 1); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}

	if err := g.Add(cert, curTime); err != nil {
		t.Fatalf("failed to add certificate: %v", err)
	}
	tailSelf := mustTrust(t, tail, tail.Public(), curTime+oneMinute, curTime)
	if _, err := g.AddTrust(tailSelf, tail.Public(), curTime); err != nil {
		t.Fatalf("failed to add tail self trust: %v", err)
	}

	certs, err := g.AllCertificates(tail.Public(), curTime)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("certificate count: got %d, want 2", len(certs))
	}

	lengths := map[int]bool{}
	for _, c := range certs {
		lengths[len(c.Chain)] = true
	}
	if !lengths[6] || !lengths[7] {
		t.Errorf("certificate lengths: got %v, want {6, 7}", lengths)
	}
}

func TestGetOneCert(t *testing.T) {
	curTime := uint64(100)
	keyPairs, cert := generateChainCert(t, 5, curTime+oneMinute, curTime, curTime)

	g := newGraph()
	if err := g.SetRootWeightFactor(keyPairs[0].Public(), 1); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	if err := g.Add(cert, curTime); err != nil {
		t.Fatalf("failed to add certificate: %v", err)
	}

	certs, err := g.AllCertificates(keyPairs[len(keyPairs)-1].Public(), curTime)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(certs) != 1 {
		t.Fatalf("certificate count: got %d, want 1", len(certs))
	}
	if !certs[0].Equal(cert) {
		t.Error("enumerated certificate differs from the one added")
	}
}

func TestAllCertificatesFrom(t *testing.T) {
	curTime := uint64(100)
	keyPairs, cert := generateChainCert(t, 5, curTime+oneMinute, curTime, curTime)

	g := newGraph()
	if err := g.SetRootWeightFactor(keyPairs[0].Public(), 1); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	if err := g.Add(cert, curTime); err != nil {
		t.Fatalf("failed to add certificate: %v", err)
	}

	tail := keyPairs[len(keyPairs)-1].Public()

	via, err := g.AllCertificatesFrom(tail, keyPairs[2].Public(), curTime)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(via) != 1 {
		t.Errorf("certificates via chain member: got %d, want 1", len(via))
	}

	stranger := mustKeyPair(t)
	none, err := g.AllCertificatesFrom(tail, stranger.Public(), curTime)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("certificates via stranger: got %d, want 0", len(none))
	}
}

func TestCertificatesWeightFactorNoRoot(t *testing.T) {
	curTime := uint64(100)
	_, cert := generateChainCert(t, 3, curTime+oneMinute, curTime, curTime)

	g := newGraph()
	if _, _, err := g.CertificatesWeightFactor([]trust.Certificate{cert}); !errors.Is(err, ErrNoRoot) {
		t.Errorf("expected ErrNoRoot, got %v", err)
	}

	_, found, err := g.CertificatesWeightFactor(nil)
	if err != nil {
		t.Fatalf("unexpected error for empty input: %v", err)
	}
	if found {
		t.Error("empty certificate list produced a weight factor")
	}
}

func TestRevocationsExported(t *testing.T) {
	g := newGraph()
	revoker := mustKeyPair(t)
	subject := mustKeyPair(t)

	rev := mustRevocation(t, revoker, subject.Public(), 100)
	if err := g.Revoke(rev); err != nil {
		t.Fatalf("failed to revoke unknown subject: %v", err)
	}

	revocations, err := g.Revocations(subject.Public())
	if err != nil {
		t.Fatalf("failed to list revocations: %v", err)
	}
	if len(revocations) != 1 || !revocations[0].Equal(rev) {
		t.Errorf("exported revocations mismatch: %v", revocations)
	}
}

func TestMultiplePathsEnumerated(t *testing.T) {
	// a diamond root->a->c, root->b->c yields one certificate per path
	curTime := uint64(100)
	g := newGraph()

	rootKP := mustKeyPair(t)
	aKP := mustKeyPair(t)
	bKP := mustKeyPair(t)
	cKP := mustKeyPair(t)

	if err := g.SetRootWeightFactor(rootKP.Public(), 0); err != nil {
		t.Fatalf("failed to set root: %v", err)
	}
	for _, edge := range []struct {
		issuer  *keys.KeyPair
		subject keys.PublicKey
	}{
		{rootKP, rootKP.Public()},
		{rootKP, aKP.Public()},
		{rootKP, bKP.Public()},
		{aKP, cKP.Public()},
		{bKP, cKP.Public()},
	} {
		tr := mustTrust(t, edge.issuer, edge.subject, curTime+oneMinute, curTime)
		if _, err := g.AddTrust(tr, edge.issuer.Public(), curTime); err != nil {
			t.Fatalf("failed to add trust: %v", err)
		}
	}

	certs, err := g.AllCertificates(cKP.Public(), curTime)
	if err != nil {
		t.Fatalf("failed to enumerate certificates: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("certificate count: got %d, want 2", len(certs))
	}
	for _, c := range certs {
		if len(c.Chain) != 3 {
			t.Errorf("chain length: got %d, want 3", len(c.Chain))
		}
		if !c.Chain[2].IssuedFor.Equal(cKP.Public()) {
			t.Error("chain does not end at the queried subject")
		}
	}

	// both paths share the same length, so the factor is root + 2
	factor, found, err := g.CertificatesWeightFactor(certs)
	if err != nil || !found {
		t.Fatalf("failed to compute weight factor: found=%v err=%v", found, err)
	}
	if factor != 2 {
		t.Errorf("weight factor: got %d, want 2", factor)
	}
}
