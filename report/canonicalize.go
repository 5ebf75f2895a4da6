package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Canonicalize is the mandatory canonicalization choke point for report
// documents.
//
// A report MUST be canonical before CID derivation or signature
// verification. This function enforces byte-level canonical rules by
// rejecting any non-canonical input.
func Canonicalize(input []byte) ([]byte, error) {
	if !utf8.Valid(input) {
		return nil, errors.New("report must be valid UTF-8")
	}
	if bytes.HasPrefix(input, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(input, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	if len(input) == 0 {
		return nil, errors.New("empty report")
	}
	if input[len(input)-1] != '\n' {
		return nil, errors.New("missing trailing newline")
	}
	for _, line := range bytes.Split(input, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}

	if err := validateCanonical(string(input)); err != nil {
		return nil, err
	}

	// Return a copy to prevent caller mutation.
	return append([]byte(nil), input...), nil
}

var sectionOrder = []string{"META", "LEDGER", "CONTENT", "VERDICT", "CRYPTO"}

func validateCanonical(doc string) error {
	lines := strings.Split(doc, "\n")
	// Canonical reports have a trailing newline, so last line is always empty.
	if len(lines) < 3 {
		return errors.New("report too short")
	}
	if lines[0] != Preamble {
		return errors.New("missing report preamble")
	}
	if lines[len(lines)-1] != "" {
		return errors.New("missing trailing newline")
	}
	if lines[len(lines)-2] != Postamble {
		return errors.New("missing report postamble")
	}

	i := 1
	for _, sec := range sectionOrder {
		if i >= len(lines)-2 {
			return fmt.Errorf("missing section %q", sec)
		}
		if lines[i] != sec {
			return fmt.Errorf("sections missing or out of order (expected %q got %q)", sec, lines[i])
		}
		i++
		start := i
		for i < len(lines)-2 && lines[i] != "" {
			i++
		}
		if i >= len(lines)-2 {
			return fmt.Errorf("missing blank line after section %q", sec)
		}
		body := lines[start:i]
		if err := validateSection(sec, body); err != nil {
			return err
		}
		// Consume the required section terminator blank line.
		i++
	}

	if i != len(lines)-2 {
		return errors.New("unexpected content before postamble")
	}
	return nil
}

func validateSection(section string, body []string) error {
	if err := validateSortedStrict(body); err != nil {
		return fmt.Errorf("%s: %w", section, err)
	}
	required := map[string][]string{
		"META":    {"Spec", "Verifier-ID", "Version"},
		"LEDGER":  {"Chain-ID", "Current-Height"},
		"CONTENT": {"Outcome"},
		"VERDICT": {"Digest-Matches", "Expired", "On-Chain-Exists", "Overall-Valid", "Revoked"},
	}

	seen := map[string]bool{}
	for _, l := range body {
		k, _, err := validateKVLine(l)
		if err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
		seen[k] = true
	}
	for _, k := range required[section] {
		if !seen[k] {
			return fmt.Errorf("%s: missing %s", section, k)
		}
	}
	if section == "CRYPTO" && len(body) > 0 {
		// Partially populated CRYPTO is invalid.
		for _, k := range []string{"Hash-Alg", "Signature", "Signature-Alg", "Verifier-Key"} {
			if !seen[k] {
				return fmt.Errorf("CRYPTO: missing %s", k)
			}
		}
	}
	return nil
}

func validateSortedStrict(lines []string) error {
	seen := make(map[string]bool)
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l == "" {
			return errors.New("empty line inside section")
		}
		if seen[l] {
			return errors.New("duplicate line")
		}
		seen[l] = true
		if i > 0 && !(lines[i-1] < lines[i]) {
			return errors.New("lines not sorted lexicographically")
		}
	}
	return nil
}

func validateKVLine(line string) (string, string, error) {
	if !strings.Contains(line, ": ") {
		return "", "", errors.New("invalid key-value formatting")
	}
	k, v, _ := strings.Cut(line, ": ")
	if k == "" {
		return "", "", errors.New("empty key")
	}
	if v == "" {
		return "", "", errors.New("empty value")
	}
	return k, v, nil
}

func sectionLines(doc []byte, section string) ([]string, error) {
	lines := strings.Split(string(doc), "\n")
	for i := 0; i < len(lines); i++ {
		if lines[i] != section {
			continue
		}
		var body []string
		for j := i + 1; j < len(lines) && lines[j] != ""; j++ {
			body = append(body, lines[j])
		}
		return body, nil
	}
	return nil, fmt.Errorf("missing section %q", section)
}

func singleField(doc []byte, section, key string) (string, bool, error) {
	body, err := sectionLines(doc, section)
	if err != nil {
		return "", false, err
	}
	var value string
	var found bool
	for _, l := range body {
		k, v, err := validateKVLine(l)
		if err != nil {
			return "", false, fmt.Errorf("%s: %w", section, err)
		}
		if k != key {
			continue
		}
		if found {
			return "", false, fmt.Errorf("%s: duplicate %s", section, key)
		}
		value = v
		found = true
	}
	return value, found, nil
}
