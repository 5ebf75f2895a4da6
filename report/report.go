// Package report renders verification verdicts as canonical, signable
// evidence documents.
//
// A verdict by itself is ephemeral. The report format exists so a
// verification outcome can be archived, handed to a third party, and
// re-checked later: the document binds the verdict to the ledger record and
// content digest it was derived from, and can carry a verifier signature.
package report

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/verify"
)

const (
	Preamble  = "-----BEGIN ACADCERT VERIFICATION-----"
	Postamble = "-----END ACADCERT VERIFICATION-----"
)

type RenderOptions struct {
	VerifierID string
	VerifiedAt time.Time // informational only; zero means omit

	// Optional report signing. If PrivateKey is set, the CRYPTO section is
	// populated and Signature is computed over the report bytes excluding
	// the Signature: line.
	VerifierKey string
	PrivateKey  ed25519.PrivateKey
}

// Render produces a canonical report document from a verdict. Sections are
// always present and line ordering is deterministic.
func Render(verdict verify.Verdict, opts RenderOptions) []byte {
	verifierID := opts.VerifierID
	if verifierID == "" {
		verifierID = "acadcert-verifier-reference"
	}

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	// META
	sb.WriteString("META\n")
	metaLines := []string{
		"Verifier-ID: " + verifierID,
		"Spec: acadcert-report-1",
		"Version: 1",
	}
	if !opts.VerifiedAt.IsZero() {
		metaLines = append(metaLines, "Verified-At: "+opts.VerifiedAt.UTC().Format(time.RFC3339))
	}
	writeSorted(&sb, metaLines)

	// LEDGER
	sb.WriteString("LEDGER\n")
	ev := verdict.Evidence
	ledgerLines := []string{
		"Chain-ID: " + strconv.FormatUint(ev.ChainID, 10),
		"Current-Height: " + strconv.FormatUint(ev.CurrentHeight, 10),
	}
	if ev.Record != nil {
		rec := ev.Record
		ledgerLines = append(ledgerLines,
			"Academy-ID: "+rec.AcademyID,
			"Student-Wallet: "+rec.StudentWallet,
			"Graduation-Date: "+strconv.FormatInt(rec.GraduationDate, 10),
			"Metadata-URL: "+rec.MetadataURL,
			"Content-Digest: "+rec.ContentDigest,
			"Issued-At-Height: "+strconv.FormatUint(rec.IssuedAtHeight, 10),
		)
		if rec.Grade != "" {
			ledgerLines = append(ledgerLines, "Grade: "+rec.Grade)
		}
		if rec.ExpirationHeight != nil {
			ledgerLines = append(ledgerLines, "Expiration-Height: "+strconv.FormatUint(*rec.ExpirationHeight, 10))
		}
	}
	writeSorted(&sb, ledgerLines)

	// CONTENT
	sb.WriteString("CONTENT\n")
	contentLines := []string{
		"Outcome: " + string(ev.ContentOutcome),
	}
	if ev.RecomputedDigest != "" {
		contentLines = append(contentLines, "Recomputed-Digest: "+ev.RecomputedDigest)
	}
	if ev.ContentError != "" {
		contentLines = append(contentLines, "Fetch-Error: "+sanitizeValue(ev.ContentError))
	}
	writeSorted(&sb, contentLines)

	// VERDICT
	sb.WriteString("VERDICT\n")
	writeSorted(&sb, []string{
		"On-Chain-Exists: " + formatBool(verdict.OnChainExists),
		"Revoked: " + formatBool(verdict.Revoked),
		"Expired: " + formatBool(verdict.Expired),
		"Digest-Matches: " + formatBool(verdict.DigestMatches),
		"Overall-Valid: " + formatBool(verdict.OverallValid),
	})

	// CRYPTO
	sb.WriteString("CRYPTO\n")
	cryptoLines := []string{}
	if opts.VerifierKey != "" {
		cryptoLines = append(cryptoLines,
			"Hash-Alg: sha256",
			"Verifier-Key: "+opts.VerifierKey,
			"Signature-Alg: ed25519",
			"Signature: 0",
		)
	}
	writeSorted(&sb, cryptoLines)

	sb.WriteString(Postamble)
	sb.WriteString("\n")
	out := []byte(sb.String())

	if len(opts.PrivateKey) > 0 && opts.VerifierKey != "" {
		sig, err := signReport(out, opts.PrivateKey)
		if err == nil {
			out = []byte(strings.Replace(string(out), "Signature: 0", "Signature: "+sig, 1))
		}
	}

	return out
}

func writeSorted(sb *strings.Builder, lines []string) {
	sorted := append([]string(nil), lines...)
	sort.Strings(sorted)
	for _, l := range sorted {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// sanitizeValue keeps free-form error text from breaking the line-oriented
// canonical format.
func sanitizeValue(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func signReport(reportBytes []byte, privateKey ed25519.PrivateKey) (string, error) {
	scope, err := signatureScope(reportBytes)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(scope)
	sig := ed25519.Sign(privateKey, digest[:])
	return base64.StdEncoding.EncodeToString(sig), nil
}

func signatureScope(reportBytes []byte) ([]byte, error) {
	lines := strings.Split(string(reportBytes), "\n")
	var out []string
	removed := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removed {
				return nil, errors.New("multiple Signature lines")
			}
			removed = true
			continue
		}
		out = append(out, l)
	}
	if !removed {
		return nil, errors.New("missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}
