package identity

import (
	"strings"
	"testing"
)

func TestGenerateVerificationCodeLength(t *testing.T) {
	for _, n := range []int{1, DefaultCodeLength, 12, 32} {
		code, err := GenerateVerificationCode(n)
		if err != nil {
			t.Fatalf("GenerateVerificationCode(%d): %v", n, err)
		}
		if len(code) != n {
			t.Fatalf("code length: got %d want %d", len(code), n)
		}
	}
}

func TestGenerateVerificationCodeAlphabet(t *testing.T) {
	code, err := GenerateVerificationCode(64)
	if err != nil {
		t.Fatalf("GenerateVerificationCode: %v", err)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code contains character outside alphabet: %q", r)
		}
	}
	for _, confusable := range "0O1Il" {
		if strings.ContainsRune(code, confusable) {
			t.Fatalf("code contains confusable character %q", confusable)
		}
	}
}

func TestGenerateVerificationCodeRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := GenerateVerificationCode(n); err == nil {
			t.Fatalf("GenerateVerificationCode(%d): expected error", n)
		}
	}
}

func TestGenerateSaltShape(t *testing.T) {
	s1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if len(s1) != 2*saltBytes {
		t.Fatalf("salt length: got %d want %d", len(s1), 2*saltBytes)
	}
	s2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if s1 == s2 {
		t.Fatalf("two salts collided: %s", s1)
	}
}

func TestHashIdentifierDeterministic(t *testing.T) {
	a := HashIdentifier("12345678A", "K7PQ2M", "00112233445566778899aabbccddeeff")
	b := HashIdentifier("12345678A", "K7PQ2M", "00112233445566778899aabbccddeeff")
	if a != b {
		t.Fatalf("same inputs produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("digest length: got %d want 64", len(a))
	}
}

func TestHashIdentifierUnlinkableAcrossSalts(t *testing.T) {
	a := HashIdentifier("12345678A", "K7PQ2M", "00112233445566778899aabbccddeeff")
	b := HashIdentifier("12345678A", "K7PQ2M", "ffeeddccbbaa99887766554433221100")
	if a == b {
		t.Fatalf("different salts produced linkable digests")
	}
}

func TestHashIdentifierFramingInjective(t *testing.T) {
	// Without length framing these two calls would hash the same byte stream.
	a := HashIdentifier("ab", "c", "salt")
	b := HashIdentifier("a", "bc", "salt")
	if a == b {
		t.Fatalf("field boundary shift produced identical digest")
	}
}

func TestHashIdentifierEmptyInputsAccepted(t *testing.T) {
	if got := HashIdentifier("", "", ""); len(got) != 64 {
		t.Fatalf("empty inputs: got %q", got)
	}
}

func TestHashIdentifierWithAlg(t *testing.T) {
	sha2, err := HashIdentifierWithAlg("sha256", "id", "code", "salt")
	if err != nil {
		t.Fatalf("sha256: %v", err)
	}
	if want := HashIdentifier("id", "code", "salt"); sha2 != want {
		t.Fatalf("sha256 alg diverges from default: %s vs %s", sha2, want)
	}
	sha3, err := HashIdentifierWithAlg("sha3-256", "id", "code", "salt")
	if err != nil {
		t.Fatalf("sha3-256: %v", err)
	}
	if sha3 == sha2 {
		t.Fatalf("sha3-256 matched sha256 output")
	}
	if _, err := HashIdentifierWithAlg("md5", "id", "code", "salt"); err == nil {
		t.Fatalf("expected error for unsupported algorithm")
	}
}
