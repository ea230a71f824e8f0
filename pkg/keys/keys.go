// Copyright 2025 Certen Protocol
//
// Key Material for the Trust Graph
// Tagged multi-algorithm key pairs: Ed25519 (primary), RSA, Secp256k1

package keys

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Algorithm identifies the cryptographic scheme of a key or signature.
// The byte values are stable on disk and on the wire.
type Algorithm byte

const (
	// Ed25519 is the primary scheme used across the network
	Ed25519 Algorithm = 0

	// RSA is supported for interop with legacy identities (2048-bit, PKCS#1 v1.5)
	RSA Algorithm = 1

	// Secp256k1 is supported for chain-derived identities (compressed keys)
	Secp256k1 Algorithm = 2
)

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	switch a {
	case Ed25519:
		return "Ed25519"
	case RSA:
		return "RSA"
	case Secp256k1:
		return "Secp256k1"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(a))
	}
}

// AlgorithmFromName maps the wire name of a scheme back to its tag
func AlgorithmFromName(name string) (Algorithm, bool) {
	switch name {
	case "Ed25519":
		return Ed25519, true
	case "RSA":
		return RSA, true
	case "Secp256k1":
		return Secp256k1, true
	default:
		return 0, false
	}
}

// Valid checks if the algorithm is a known tag value
func (a Algorithm) Valid() bool {
	switch a {
	case Ed25519, RSA, Secp256k1:
		return true
	default:
		return false
	}
}

const (
	rsaKeyBits = 2048

	sha256Hash = crypto.SHA256
)

// KeyPair owns a secret key and its derived public key.
type KeyPair struct {
	algorithm Algorithm

	ed25519Key ed25519.PrivateKey
	rsaKey     *rsa.PrivateKey
	secpKey    []byte // 32-byte scalar, go-ethereum representation
}

// Generate creates a new key pair for the given algorithm.
func Generate(algorithm Algorithm) (*KeyPair, error) {
	switch algorithm {
	case Ed25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, &SigningError{Algorithm: algorithm, Err: err}
		}
		return &KeyPair{algorithm: Ed25519, ed25519Key: priv}, nil

	case RSA:
		priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, &SigningError{Algorithm: algorithm, Err: err}
		}
		return &KeyPair{algorithm: RSA, rsaKey: priv}, nil

	case Secp256k1:
		priv, err := ethcrypto.GenerateKey()
		if err != nil {
			return nil, &SigningError{Algorithm: algorithm, Err: err}
		}
		return &KeyPair{algorithm: Secp256k1, secpKey: ethcrypto.FromECDSA(priv)}, nil

	default:
		return nil, &InvalidTagError{Tag: byte(algorithm)}
	}
}

// Algorithm returns the scheme of this key pair
func (kp *KeyPair) Algorithm() Algorithm {
	return kp.algorithm
}

// Public derives the public key of this key pair.
func (kp *KeyPair) Public() PublicKey {
	switch kp.algorithm {
	case Ed25519:
		pub := kp.ed25519Key.Public().(ed25519.PublicKey)
		return PublicKey{algorithm: Ed25519, raw: append([]byte(nil), pub...)}
	case RSA:
		der, err := x509.MarshalPKIXPublicKey(&kp.rsaKey.PublicKey)
		if err != nil {
			// marshalling a well-formed in-memory RSA key cannot fail
			panic(fmt.Sprintf("keys: marshal RSA public key: %v", err))
		}
		return PublicKey{algorithm: RSA, raw: der}
	case Secp256k1:
		priv, err := ethcrypto.ToECDSA(kp.secpKey)
		if err != nil {
			panic(fmt.Sprintf("keys: corrupt secp256k1 scalar: %v", err))
		}
		return PublicKey{algorithm: Secp256k1, raw: ethcrypto.CompressPubkey(&priv.PublicKey)}
	default:
		panic(fmt.Sprintf("keys: key pair with unknown algorithm %d", kp.algorithm))
	}
}

// Sign signs msg with the secret key. The caller passes the canonical
// metadata hash, not the raw statement.
func (kp *KeyPair) Sign(msg []byte) (Signature, error) {
	switch kp.algorithm {
	case Ed25519:
		sig := ed25519.Sign(kp.ed25519Key, msg)
		return Signature{algorithm: Ed25519, raw: sig}, nil

	case RSA:
		digest := sha256.Sum256(msg)
		sig, err := rsa.SignPKCS1v15(rand.Reader, kp.rsaKey, sha256Hash, digest[:])
		if err != nil {
			return Signature{}, &SigningError{Algorithm: RSA, Err: err}
		}
		return Signature{algorithm: RSA, raw: sig}, nil

	case Secp256k1:
		if len(msg) != sha256.Size {
			return Signature{}, &SigningError{
				Algorithm: Secp256k1,
				Err:       fmt.Errorf("secp256k1 signs 32-byte digests, got %d bytes", len(msg)),
			}
		}
		sig, err := signSecp256k1(kp.secpKey, msg)
		if err != nil {
			return Signature{}, &SigningError{Algorithm: Secp256k1, Err: err}
		}
		return Signature{algorithm: Secp256k1, raw: sig}, nil

	default:
		return Signature{}, &SigningError{
			Algorithm: kp.algorithm,
			Err:       fmt.Errorf("unknown algorithm %d", kp.algorithm),
		}
	}
}

// Verify checks sig over msg against pk. The signature tag must match the
// algorithm of the public key.
func Verify(pk PublicKey, msg []byte, sig Signature) error {
	if pk.algorithm != sig.algorithm {
		return &VerificationError{
			Algorithm:    pk.algorithm,
			SignatureB58: sig.ToBase58(),
			PublicKeyB58: pk.ToBase58(),
			Err: fmt.Errorf("signature algorithm %s does not match key algorithm %s",
				sig.algorithm, pk.algorithm),
		}
	}

	fail := func(err error) error {
		return &VerificationError{
			Algorithm:    pk.algorithm,
			SignatureB58: sig.ToBase58(),
			PublicKeyB58: pk.ToBase58(),
			Err:          err,
		}
	}

	switch pk.algorithm {
	case Ed25519:
		if len(pk.raw) != ed25519.PublicKeySize {
			return fail(fmt.Errorf("invalid Ed25519 public key size %d", len(pk.raw)))
		}
		if !ed25519.Verify(ed25519.PublicKey(pk.raw), msg, sig.raw) {
			return fail(fmt.Errorf("Ed25519 signature check failed"))
		}
		return nil

	case RSA:
		parsed, err := x509.ParsePKIXPublicKey(pk.raw)
		if err != nil {
			return fail(fmt.Errorf("parse RSA public key: %w", err))
		}
		rsaPub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return fail(fmt.Errorf("public key is not RSA"))
		}
		digest := sha256.Sum256(msg)
		if err := rsa.VerifyPKCS1v15(rsaPub, sha256Hash, digest[:], sig.raw); err != nil {
			return fail(err)
		}
		return nil

	case Secp256k1:
		if len(msg) != sha256.Size {
			return fail(fmt.Errorf("secp256k1 verifies 32-byte digests, got %d bytes", len(msg)))
		}
		if len(sig.raw) != 64 {
			return fail(fmt.Errorf("invalid secp256k1 signature size %d", len(sig.raw)))
		}
		if !ethcrypto.VerifySignature(pk.raw, msg, sig.raw) {
			return fail(fmt.Errorf("secp256k1 signature check failed"))
		}
		return nil

	default:
		return fail(fmt.Errorf("unknown algorithm %d", pk.algorithm))
	}
}

func signSecp256k1(scalar, digest []byte) ([]byte, error) {
	priv, err := ethcrypto.ToECDSA(scalar)
	if err != nil {
		return nil, err
	}
	sig, err := ethcrypto.Sign(digest, priv)
	if err != nil {
		return nil, err
	}
	// drop the recovery id, keep compact R || S
	return sig[:64], nil
}

// Equal reports whether two key pairs hold the same secret material
func (kp *KeyPair) Equal(other *KeyPair) bool {
	if kp.algorithm != other.algorithm {
		return false
	}
	switch kp.algorithm {
	case Ed25519:
		return bytes.Equal(kp.ed25519Key, other.ed25519Key)
	case RSA:
		return kp.rsaKey.Equal(other.rsaKey)
	case Secp256k1:
		return bytes.Equal(kp.secpKey, other.secpKey)
	}
	return false
}
