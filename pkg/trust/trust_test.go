// Copyright 2025 Certen Protocol
//
// Trust and Revocation Tests

package trust

import (
	"errors"
	"testing"

	"github.com/certen/trust-graph/pkg/keys"
)

func mustKeyPair(t *testing.T) *keys.KeyPair {
	t.Helper()
	kp, err := keys.Generate(keys.Ed25519)
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	return kp
}

func TestCreateAndVerify(t *testing.T) {
	truster := mustKeyPair(t)
	trusted := mustKeyPair(t)

	tr, err := Create(truster, trusted.Public(), 1000, 10)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}

	if err := Verify(tr, truster.Public(), 100); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	truster := mustKeyPair(t)
	trusted := mustKeyPair(t)

	tr, err := Create(truster, trusted.Public(), 1000, 10)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}

	err = Verify(tr, truster.Public(), 1001)
	var expired *ExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("expected ExpiredError, got %v", err)
	}
	if expired.ExpiresAt != 1000 || expired.Now != 1001 {
		t.Errorf("expired error fields: got (%d, %d), want (1000, 1001)", expired.ExpiresAt, expired.Now)
	}

	// verification exactly at the expiry instant still passes
	if err := Verify(tr, truster.Public(), 1000); err != nil {
		t.Errorf("verify at expiry failed: %v", err)
	}
}

func TestVerifyTamperedField(t *testing.T) {
	truster := mustKeyPair(t)
	trusted := mustKeyPair(t)

	tr, err := Create(truster, trusted.Public(), 1000, 10)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}

	corrupted := tr
	corrupted.IssuedAt = 11
	if err := Verify(corrupted, truster.Public(), 100); err == nil {
		t.Error("trust with tampered issued_at verified")
	}

	corrupted = tr
	corrupted.ExpiresAt = 2000
	if err := Verify(corrupted, truster.Public(), 100); err == nil {
		t.Error("trust with tampered expires_at verified")
	}

	other := mustKeyPair(t)
	corrupted = tr
	corrupted.IssuedFor = other.Public()
	if err := Verify(corrupted, truster.Public(), 100); err == nil {
		t.Error("trust with tampered subject verified")
	}
}

func TestCreateRejectsInvertedTimes(t *testing.T) {
	truster := mustKeyPair(t)
	trusted := mustKeyPair(t)

	_, err := Create(truster, trusted.Public(), 10, 1000)
	var expErr *ExpirationError
	if !errors.As(err, &expErr) {
		t.Fatalf("expected ExpirationError, got %v", err)
	}
}

func TestTrustEncodeDecode(t *testing.T) {
	truster := mustKeyPair(t)
	trusted := mustKeyPair(t)

	tr, err := Create(truster, trusted.Public(), 1000, 10)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}

	decoded, err := Decode(tr.Encode())
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !decoded.Equal(tr) {
		t.Error("decoded trust differs from original")
	}
}

func TestTrustDecodeTruncated(t *testing.T) {
	truster := mustKeyPair(t)
	trusted := mustKeyPair(t)

	tr, err := Create(truster, trusted.Public(), 1000, 10)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}
	encoded := tr.Encode()

	// every proper prefix must fail without panicking
	for cut := 0; cut < len(encoded); cut++ {
		if _, err := Decode(encoded[:cut]); err == nil {
			t.Errorf("decoding %d-byte prefix succeeded", cut)
		}
	}
}

func TestTrustStringRoundTrip(t *testing.T) {
	truster := mustKeyPair(t)
	trusted := mustKeyPair(t)

	tr, err := Create(truster, trusted.Public(), 1000, 10)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}

	lines := splitTrustLines(t, tr.String())
	decoded, err := FromStrings(lines[0], lines[1], lines[2], lines[3])
	if err != nil {
		t.Fatalf("failed to decode string form: %v", err)
	}
	if !decoded.Equal(tr) {
		t.Error("string round trip changed the trust")
	}
}

func splitTrustLines(t *testing.T, s string) []string {
	t.Helper()
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	if len(lines) != 4 {
		t.Fatalf("trust string form has %d lines, want 4", len(lines))
	}
	return lines
}

func TestRevocationCreateAndVerify(t *testing.T) {
	revoker := mustKeyPair(t)
	toRevoke := mustKeyPair(t)

	rev, err := CreateRevocation(revoker, toRevoke.Public(), 100)
	if err != nil {
		t.Fatalf("failed to create revocation: %v", err)
	}

	if err := VerifyRevocation(rev); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestRevocationVerifyTampered(t *testing.T) {
	revoker := mustKeyPair(t)
	toRevoke := mustKeyPair(t)

	rev, err := CreateRevocation(revoker, toRevoke.Public(), 100)
	if err != nil {
		t.Fatalf("failed to create revocation: %v", err)
	}

	corrupted := rev
	corrupted.RevokedAt = 95
	err = VerifyRevocation(corrupted)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestRelationAccessors(t *testing.T) {
	issuer := mustKeyPair(t)
	subject := mustKeyPair(t)

	tr, err := Create(issuer, subject.Public(), 1000, 10)
	if err != nil {
		t.Fatalf("failed to create trust: %v", err)
	}
	auth := Auth{Trust: tr, IssuedBy: issuer.Public()}

	if auth.Kind() != KindAuth {
		t.Error("auth kind mismatch")
	}
	if !auth.Subject().Equal(subject.Public()) || !auth.Issuer().Equal(issuer.Public()) {
		t.Error("auth subject/issuer mismatch")
	}
	if auth.Timestamp() != 10 || auth.Expiration() != 1000 {
		t.Error("auth timestamp/expiration mismatch")
	}

	rev, err := CreateRevocation(issuer, subject.Public(), 200)
	if err != nil {
		t.Fatalf("failed to create revocation: %v", err)
	}
	if rev.Kind() != KindRevocation {
		t.Error("revocation kind mismatch")
	}
	if !rev.Subject().Equal(subject.Public()) || !rev.Issuer().Equal(issuer.Public()) {
		t.Error("revocation subject/issuer mismatch")
	}
	if rev.Timestamp() != 200 || rev.Expiration() != 0 {
		t.Error("revocation timestamp/expiration mismatch")
	}
}
