// Copyright 2025 Certen Protocol
//
// Certificate - an ordered chain of trusts starting with a self-signed
// root trust

package trust

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/certen/trust-graph/pkg/keys"

	"github.com/mr-tron/base58/base58"
)

// Serialization format tag of a certificate
var certFormat = []byte{0, 0}

// Serialization format version of a certificate
var certVersion = []byte{0, 0, 0, 0}

// rootExpiration is the expiry of the self-signed head trust; a root
// vouching for itself does not age out.
const rootExpiration = math.MaxUint64

// Certificate is a chain of trusts. chain[0] is self-signed by the root;
// every later trust is signed by the subject of its predecessor.
type Certificate struct {
	Chain []Trust
}

// NewUnverified wraps a chain without checking signatures. Used by the
// graph when materializing BFS paths whose auths were verified on insert.
func NewUnverified(chain []Trust) Certificate {
	return Certificate{Chain: chain}
}

// IssueRoot creates a 2-trust certificate: a self-signed root trust with
// maximum duration followed by the subject trust.
func IssueRoot(rootKP *keys.KeyPair, forPK keys.PublicKey, expiresAt, issuedAt uint64) (Certificate, error) {
	rootTrust, err := Create(rootKP, rootKP.Public(), rootExpiration, issuedAt)
	if err != nil {
		return Certificate{}, fmt.Errorf("issue root trust: %w", err)
	}

	subjectTrust, err := Create(rootKP, forPK, expiresAt, issuedAt)
	if err != nil {
		return Certificate{}, fmt.Errorf("issue subject trust: %w", err)
	}

	return Certificate{Chain: []Trust{rootTrust, subjectTrust}}, nil
}

// Issue extends a certificate with a new trust. The issuer must already
// hold a trust in the chain; the chain is truncated right after the latest
// such trust before the new one is appended.
func Issue(issuedBy *keys.KeyPair, forPK keys.PublicKey, extend Certificate, expiresAt, issuedAt, now uint64) (Certificate, error) {
	if expiresAt < issuedAt {
		return Certificate{}, &ExpirationError{ExpiresAt: expiresAt, IssuedAt: issuedAt}
	}

	if len(extend.Chain) == 0 {
		return Certificate{}, ErrEmptyChain
	}

	// the extended certificate must verify against its own root
	if err := VerifyCertificate(extend, []keys.PublicKey{extend.Chain[0].IssuedFor}, now); err != nil {
		return Certificate{}, err
	}

	issuerPK := issuedBy.Public()
	issuerIdx := -1
	for i, t := range extend.Chain {
		if t.IssuedFor.Equal(issuerPK) {
			issuerIdx = i
		}
	}
	if issuerIdx == -1 {
		return Certificate{}, ErrIssuerNotInChain
	}

	newTrust, err := Create(issuedBy, forPK, expiresAt, issuedAt)
	if err != nil {
		return Certificate{}, err
	}

	chain := make([]Trust, 0, issuerIdx+2)
	chain = append(chain, extend.Chain[:issuerIdx+1]...)
	chain = append(chain, newTrust)

	return Certificate{Chain: chain}, nil
}

// VerifyCertificate checks the whole chain against a trusted root set at
// the given time. The head must be self-signed by a trusted root; every
// later trust must verify against the subject of its predecessor.
func VerifyCertificate(cert Certificate, trustedRoots []keys.PublicKey, now uint64) error {
	chain := cert.Chain
	if len(chain) == 0 {
		return ErrEmptyChain
	}
	if len(chain) < 2 {
		return ErrCertificateLength
	}

	root := chain[0]
	if err := Verify(root, root.IssuedFor, now); err != nil {
		return &MalformedRootError{Err: err}
	}

	trusted := false
	for _, r := range trustedRoots {
		if r.Equal(root.IssuedFor) {
			trusted = true
			break
		}
	}
	if !trusted {
		return ErrNoTrustedRoot
	}

	for i := len(chain) - 1; i >= 1; i-- {
		if err := Verify(chain[i], chain[i-1].IssuedFor, now); err != nil {
			return &ChainVerificationError{Index: i, Err: err}
		}
	}

	return nil
}

// Equal compares certificates chain by chain
func (c Certificate) Equal(other Certificate) bool {
	if len(c.Chain) != len(other.Chain) {
		return false
	}
	for i := range c.Chain {
		if !c.Chain[i].Equal(other.Chain[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether any trust in the chain is issued for pk
func (c Certificate) Contains(pk keys.PublicKey) bool {
	for _, t := range c.Chain {
		if t.IssuedFor.Equal(pk) {
			return true
		}
	}
	return false
}

// Encode serializes the certificate:
// format[2] || version[4] || n:u8 || (len:u8 || trust_bytes){n}
func (c Certificate) Encode() ([]byte, error) {
	if len(c.Chain) < 2 {
		return nil, ErrCertificateLength
	}
	if len(c.Chain) > math.MaxUint8 {
		return nil, &IncorrectFormatError{Reason: fmt.Sprintf("chain of %d trusts exceeds framing limit", len(c.Chain))}
	}

	out := make([]byte, 0, len(certFormat)+len(certVersion)+1+len(c.Chain)*128)
	out = append(out, certFormat...)
	out = append(out, certVersion...)
	out = append(out, byte(len(c.Chain)))

	for i, t := range c.Chain {
		tb := t.Encode()
		if len(tb) > math.MaxUint8 {
			return nil, &IncorrectFormatError{Reason: fmt.Sprintf("trust %d is %d bytes, exceeds framing limit", i, len(tb))}
		}
		out = append(out, byte(len(tb)))
		out = append(out, tb...)
	}

	return out, nil
}

// DecodeCertificate parses the binary framing produced by Encode.
func DecodeCertificate(b []byte) (Certificate, error) {
	headerLen := len(certFormat) + len(certVersion) + 1
	if len(b) < headerLen {
		return Certificate{}, &IncorrectFormatError{Reason: "input shorter than header"}
	}

	// format and version are reserved for future evolution
	offset := len(certFormat) + len(certVersion)
	n := int(b[offset])
	offset++

	if n < 2 {
		return Certificate{}, ErrCertificateLength
	}

	chain := make([]Trust, 0, n)
	for i := 0; i < n; i++ {
		if len(b) < offset+1 {
			return Certificate{}, &IncorrectFormatError{Reason: fmt.Sprintf("truncated before trust %d length", i)}
		}
		tLen := int(b[offset])
		offset++

		if len(b) < offset+tLen {
			return Certificate{}, &IncorrectFormatError{Reason: fmt.Sprintf("truncated inside trust %d", i)}
		}
		t, err := Decode(b[offset : offset+tLen])
		if err != nil {
			return Certificate{}, fmt.Errorf("decode trust %d in certificate: %w", i, err)
		}
		chain = append(chain, t)
		offset += tLen
	}

	return Certificate{Chain: chain}, nil
}

// String renders the interchange text form: two base58 header lines
// followed by four lines per trust.
func (c Certificate) String() string {
	var sb strings.Builder
	sb.WriteString(base58.Encode(certFormat))
	sb.WriteByte('\n')
	sb.WriteString(base58.Encode(certVersion))
	sb.WriteByte('\n')
	for _, t := range c.Chain {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseCertificate parses the interchange text form.
func ParseCertificate(s string) (Certificate, error) {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) < 2 {
		return Certificate{}, &IncorrectFormatError{Reason: "missing format and version header"}
	}

	// header lines are reserved for future evolution
	body := lines[2:]
	if len(body)%4 != 0 {
		return Certificate{}, &IncorrectFormatError{Reason: strconv.Itoa(len(body)) + " body lines is not a multiple of 4"}
	}

	n := len(body) / 4
	chain := make([]Trust, 0, n)
	for i := 0; i < n; i++ {
		t, err := FromStrings(body[i*4], body[i*4+1], body[i*4+2], body[i*4+3])
		if err != nil {
			return Certificate{}, fmt.Errorf("decode trust %d in certificate: %w", i, err)
		}
		chain = append(chain, t)
	}

	return NewUnverified(chain), nil
}
