// Package identity produces verification codes, salts, and the salted one-way
// hash that binds a private student identifier to a certificate.
//
// The raw identifier is never stored, logged, or transmitted by this package;
// it exists only transiently as an input to HashIdentifier. The stored pair
// (identifier hash, salt) plus the one-time verification code is sufficient to
// re-verify an identifier presented later, and nothing less is.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// DefaultCodeLength is the verification code length used at issuance when the
// caller does not override it.
const DefaultCodeLength = 6

// codeAlphabet omits visually confusable characters (0/O, 1/I/l).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// saltBytes is 128 bits of entropy, the minimum for dictionary resistance.
const saltBytes = 16

// GenerateVerificationCode returns a uniformly random code of the given length
// over the unambiguous alphabet, using a cryptographically secure source.
//
// The code is disclosed once to the issuer and is not recoverable from stored
// data alone.
func GenerateVerificationCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("identity: code length must be positive, got %d", length)
	}

	out := make([]byte, length)
	// Rejection sampling keeps the distribution uniform over the 32-character
	// alphabet without modulo bias.
	const max = byte(len(codeAlphabet))
	buf := make([]byte, 1)
	for i := 0; i < length; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("identity: random source: %w", err)
		}
		b := buf[0] & 0x1f
		if b >= max {
			continue
		}
		out[i] = codeAlphabet[b]
		i++
	}
	return string(out), nil
}

// GenerateSalt returns a fresh random salt as fixed-length hex (32 characters,
// 128 bits of entropy).
func GenerateSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("identity: random source: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashIdentifier derives the certificate-bound identifier hash from the raw
// private identifier, the one-time verification code, and the salt.
//
// The same inputs always yield the same hex digest; different salts yield
// unlinkable digests for the same identifier. Each field is length-framed
// before hashing so the concatenation is injective regardless of contents.
//
// Empty inputs are accepted and produce a (weak) digest; enforcing non-empty
// identifiers is the caller's responsibility.
func HashIdentifier(rawIdentifier, verificationCode, salt string) string {
	h := sha256.New()
	writeFramed(h.Write, rawIdentifier)
	writeFramed(h.Write, verificationCode)
	writeFramed(h.Write, salt)
	return hex.EncodeToString(h.Sum(nil))
}

// HashIdentifierWithAlg is HashIdentifier with an explicit hash algorithm.
// alg must be one of: sha256, sha3-256.
func HashIdentifierWithAlg(alg, rawIdentifier, verificationCode, salt string) (string, error) {
	var write func(p []byte) (int, error)
	var sum func() []byte
	switch alg {
	case "sha256":
		h := sha256.New()
		write = h.Write
		sum = func() []byte { return h.Sum(nil) }
	case "sha3-256":
		h := sha3.New256()
		write = h.Write
		sum = func() []byte { return h.Sum(nil) }
	default:
		return "", fmt.Errorf("identity: unsupported hash algorithm: %q", alg)
	}
	writeFramed(write, rawIdentifier)
	writeFramed(write, verificationCode)
	writeFramed(write, salt)
	return hex.EncodeToString(sum()), nil
}

func writeFramed(write func(p []byte) (int, error), field string) {
	// 8-byte big-endian length prefix followed by a unit separator and the
	// field bytes. Hash writers never fail.
	n := uint64(len(field))
	var frame [9]byte
	for i := 0; i < 8; i++ {
		frame[i] = byte(n >> (56 - 8*i))
	}
	frame[8] = 0x1f
	_, _ = write(frame[:])
	_, _ = write([]byte(field))
}
