package metadata

import (
	"testing"
	"time"
)

func sampleCourse() Course {
	return Course{
		Title:       "Blockchain 101",
		Description: "Introduction to public ledgers",
		Modality:    "online",
		Hours:       40,
		Language:    "es",
		Category:    "technology",
		Skills:      []string{"consensus", "cryptography"},
	}
}

func sampleStudent() Student {
	return Student{
		Name:           "Ana Ruiz",
		IdentifierHash: "0b7e...hash",
		IdentifierSalt: "00112233445566778899aabbccddeeff",
		Grade:          "A",
	}
}

func sampleAcademy() Academy {
	return Academy{
		ID:          "acad-7",
		Name:        "Cryptography Academy",
		Department:  "Distributed Systems",
		Instructors: []string{"R. Torres"},
	}
}

var sampleIssuedAt = time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)

func TestComposeNormalizesSkills(t *testing.T) {
	course := sampleCourse()
	course.Skills = []string{"  consensus ", "", "   ", "cryptography"}
	doc := Compose(course, sampleStudent(), sampleAcademy(), sampleIssuedAt)
	got := doc.Achievement.Skills
	if len(got) != 2 || got[0] != "consensus" || got[1] != "cryptography" {
		t.Fatalf("skills not normalized: %#v", got)
	}
}

func TestComposeIsPure(t *testing.T) {
	a := Compose(sampleCourse(), sampleStudent(), sampleAcademy(), sampleIssuedAt)
	b := Compose(sampleCourse(), sampleStudent(), sampleAcademy(), sampleIssuedAt)
	ca, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("Canonicalize(a): %v", err)
	}
	cb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("Canonicalize(b): %v", err)
	}
	if string(ca) != string(cb) {
		t.Fatalf("Compose not pure:\n%s\n%s", ca, cb)
	}
}

func TestAuthorizationIDUniquePerIssuance(t *testing.T) {
	a := AuthorizationID("acad-7", sampleIssuedAt)
	b := AuthorizationID("acad-7", sampleIssuedAt.Add(time.Nanosecond))
	if a == b {
		t.Fatalf("authorization ids collided: %s", a)
	}
	c := AuthorizationID("acad-8", sampleIssuedAt)
	if a == c {
		t.Fatalf("different academies collided: %s", a)
	}
}

func TestCanonicalizeRejectsUnknownVersion(t *testing.T) {
	doc := Compose(sampleCourse(), sampleStudent(), sampleAcademy(), sampleIssuedAt)
	doc.Version = "99"
	if _, err := Canonicalize(doc); !IsKind(err, KindValidation) {
		t.Fatalf("expected KindValidation, got %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	doc := Compose(sampleCourse(), sampleStudent(), sampleAcademy(), sampleIssuedAt)
	canonical, err := Canonicalize(doc)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	tampered := append([]byte(`{"smuggled":true,`), canonical[1:]...)
	if _, err := Parse(tampered); !IsKind(err, KindParse) {
		t.Fatalf("expected KindParse for unknown field, got %v", err)
	}
}

func TestParseRoundTripPreservesDigest(t *testing.T) {
	doc := Compose(sampleCourse(), sampleStudent(), sampleAcademy(), sampleIssuedAt)
	canonical, err := Canonicalize(doc)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	parsed, err := Parse(canonical)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	recanonical, err := Canonicalize(parsed)
	if err != nil {
		t.Fatalf("Canonicalize(parsed): %v", err)
	}
	if DigestHex(canonical) != DigestHex(recanonical) {
		t.Fatalf("round trip changed digest:\n%s\n%s", canonical, recanonical)
	}
}
