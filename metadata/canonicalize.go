package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cidutil"
)

// Canonicalize is the single mandatory canonicalization choke point for
// certificate documents.
//
// It serializes the document as canonical JSON: recursively sorted object
// keys, no insignificant whitespace, UTF-8. Re-serializing an unchanged
// document is byte-for-byte identical; digesting depends on this invariant.
//
// All digesting, CID derivation, and publishing MUST pass through
// Canonicalize.
func Canonicalize(doc Document) ([]byte, error) {
	if doc.Version != Version {
		return nil, newError(KindValidation, fmt.Sprintf("unsupported document version %q", doc.Version))
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		// The document shape is fixed and acyclic; this should be unreachable.
		return nil, wrapError(KindCanonical, "marshal document", err)
	}
	return canonicalizeRaw(raw)
}

// Parse decodes published document bytes back into a Document.
//
// Unknown fields are rejected: a field smuggled past the fixed shape would
// otherwise be silently dropped on reparse and escape digest comparison.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return Document{}, wrapError(KindParse, "decode document", err)
	}
	if dec.More() {
		return Document{}, newError(KindParse, "trailing data after document")
	}
	if doc.Version != Version {
		return Document{}, newError(KindValidation, fmt.Sprintf("unsupported document version %q", doc.Version))
	}
	return doc, nil
}

// DigestHex returns the content digest committed to the ledger: the SHA-256
// hex of the canonical bytes.
func DigestHex(canonical []byte) string {
	return cidutil.SHA256Hex(canonical)
}

// CID returns the CIDv1 (raw + sha2-256) of the canonical bytes, used as the
// content-addressed storage key.
func CID(canonical []byte) (string, error) {
	id, err := cidutil.CIDv1RawSHA256CID(canonical)
	if err != nil {
		return "", wrapError(KindCanonical, "derive cid", err)
	}
	return id.String(), nil
}

func canonicalizeRaw(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, wrapError(KindCanonical, "decode for canonicalization", err)
	}
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(t.String())
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return wrapError(KindCanonical, "encode string", err)
		}
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return wrapError(KindCanonical, "encode key", err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return newError(KindCanonical, fmt.Sprintf("unsupported value type %T", v))
	}
	return nil
}
