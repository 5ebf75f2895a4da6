package cidutil

import "testing"

func TestSHA256HexStable(t *testing.T) {
	data := []byte("certificate canonical bytes")
	a := SHA256Hex(data)
	b := SHA256Hex(data)
	if a != b {
		t.Fatalf("SHA256Hex not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("SHA256Hex length: got %d want 64", len(a))
	}
}

func TestSHA256HexSensitive(t *testing.T) {
	a := SHA256Hex([]byte("doc v1"))
	b := SHA256Hex([]byte("doc v2"))
	if a == b {
		t.Fatalf("distinct inputs produced identical digest")
	}
}

func TestCIDMatchesStringForm(t *testing.T) {
	data := []byte("metadata document")
	s := CIDv1RawSHA256(data)
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	if id.String() != s {
		t.Fatalf("string and cid forms disagree: %s vs %s", s, id)
	}
}
