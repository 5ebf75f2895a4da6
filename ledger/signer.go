package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Signer is the opaque academy credential consumed by registry clients to
// authorize issue/revoke/reactivate transactions. Key storage and decryption
// stay behind this interface; raw key material is never threaded through the
// core.
type Signer interface {
	// Principal is the academy identity the credential authorizes.
	Principal() string
	// PublicKey is the scheme-prefixed encoded public key, e.g.
	// "ed25519:" + base64(pub).
	PublicKey() string
	// Sign returns a base64 signature over a digest of message.
	Sign(message []byte) (string, error)
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Ed25519Signer signs sha256 digests with an Ed25519 key.
type Ed25519Signer struct {
	principal string
	priv      ed25519.PrivateKey
}

// NewEd25519Signer builds a signer from a 32-byte seed.
func NewEd25519Signer(principal string, seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{principal: principal, priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Principal() string { return s.principal }

func (s *Ed25519Signer) PublicKey() string {
	pub := s.priv.Public().(ed25519.PublicKey)
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub)
}

// SigningKey exposes the private key for callers that sign documents
// directly, e.g. verification report rendering.
func (s *Ed25519Signer) SigningKey() ed25519.PrivateKey { return s.priv }

func (s *Ed25519Signer) Sign(message []byte) (string, error) {
	digest := sha256.Sum256(message)
	sig := ed25519.Sign(s.priv, digest[:])
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Dilithium3Signer signs configurable digests with a Dilithium mode3 key.
// hashAlg must be one of: sha256, sha512, sha3-256.
type Dilithium3Signer struct {
	principal string
	hashAlg   string
	pub       *mode3.PublicKey
	priv      *mode3.PrivateKey
}

// NewDilithium3Signer generates a fresh Dilithium3 credential from rand.
func NewDilithium3Signer(principal, hashAlg string, rand io.Reader) (*Dilithium3Signer, error) {
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{principal: principal, hashAlg: hashAlg, pub: pub, priv: priv}, nil
}

func (s *Dilithium3Signer) Principal() string { return s.principal }

func (s *Dilithium3Signer) PublicKey() string {
	raw, _ := s.pub.MarshalBinary()
	return "dilithium3:" + base64.StdEncoding.EncodeToString(raw)
}

func (s *Dilithium3Signer) Sign(message []byte) (string, error) {
	if s.priv == nil {
		return "", fmt.Errorf("missing private key")
	}
	digest, err := digestFor(s.hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature produced by this credential.
func (s *Dilithium3Signer) Verify(message []byte, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	digest, err := digestFor(s.hashAlg, message)
	if err != nil {
		return false
	}
	return mode3.Verify(s.pub, digest, sig)
}
