// Package metadata composes the canonical certificate content document and
// computes the content digest bound to the ledger record.
//
// The document is a fixed, versioned shape. It never contains the raw private
// identifier of the recipient; only the derived identifier hash and the salt
// needed to recompute it are stored. Once published the document is immutable:
// any edit implies a new digest and therefore a new certificate, because the
// ledger binds exactly one digest per certificate id.
package metadata

import (
	"fmt"
	"strings"
	"time"
)

// Version is the current document schema version. Old documents keep
// verifying under the version they were published with.
const Version = "1"

// Document is the canonical off-chain content bound to a certificate by digest.
type Document struct {
	Version     string          `json:"version"`
	Certificate CertificateInfo `json:"certificate"`
	Recipient   Recipient       `json:"recipient"`
	Issuer      Issuer          `json:"issuer"`
	Achievement Achievement     `json:"achievement"`
}

type CertificateInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Modality    string `json:"modality"`
	Hours       int    `json:"hours"`
	IssueDate   string `json:"issue_date"`
	Language    string `json:"language"`
}

type Recipient struct {
	Name           string `json:"name"`
	IdentifierHash string `json:"identifier_hash"`
	IdentifierSalt string `json:"identifier_salt"`
}

type Issuer struct {
	Name            string   `json:"name"`
	Department      string   `json:"department"`
	Instructors     []string `json:"instructors"`
	AuthorizationID string   `json:"authorization_id"`
}

type Achievement struct {
	Skills   []string `json:"skills"`
	Grade    string   `json:"grade"`
	Category string   `json:"category"`
}

// Course describes the course being certified.
type Course struct {
	Title       string
	Description string
	Modality    string
	Hours       int
	Language    string
	Category    string
	Skills      []string
}

// Student carries the recipient's presentation name and derived identity
// material. The raw identifier must never reach this package.
type Student struct {
	Name           string
	IdentifierHash string
	IdentifierSalt string
	Grade          string
}

// Academy identifies the issuing institution.
type Academy struct {
	ID          string
	Name        string
	Department  string
	Instructors []string
}

// Compose assembles the canonical document. It is pure: the same inputs and
// issuance time always yield the same document. Skills are trimmed and empty
// entries dropped; instructor names are trimmed the same way.
func Compose(course Course, student Student, academy Academy, issuedAt time.Time) Document {
	return Document{
		Version: Version,
		Certificate: CertificateInfo{
			Title:       course.Title,
			Description: course.Description,
			Modality:    course.Modality,
			Hours:       course.Hours,
			IssueDate:   issuedAt.UTC().Format(time.RFC3339),
			Language:    course.Language,
		},
		Recipient: Recipient{
			Name:           student.Name,
			IdentifierHash: student.IdentifierHash,
			IdentifierSalt: student.IdentifierSalt,
		},
		Issuer: Issuer{
			Name:            academy.Name,
			Department:      academy.Department,
			Instructors:     normalizeList(academy.Instructors),
			AuthorizationID: AuthorizationID(academy.ID, issuedAt),
		},
		Achievement: Achievement{
			Skills:   normalizeList(course.Skills),
			Grade:    student.Grade,
			Category: course.Category,
		},
	}
}

// AuthorizationID composes a per-issuance identifier from the academy id and
// the issuance timestamp. Nanosecond precision gives per-issuance uniqueness
// without a central counter.
func AuthorizationID(academyID string, issuedAt time.Time) string {
	return fmt.Sprintf("%s-%d", academyID, issuedAt.UTC().UnixNano())
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
