// Package bundle exports and imports published certificate documents as
// deterministic TAR archives.
//
// Bundles move document blocks between stores without a network path
// between them, e.g. seeding a fresh verification mirror from an academy's
// primary store, or archiving the documents behind a batch of issuances.
// Every block is validated against its CID on both export and import, so a
// bundle can pass through untrusted hands.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cidutil"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

// epoch0 normalizes TAR modification times so bundle bytes are reproducible.
var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Certificates is optional, non-authoritative metadata mapping local
	// certificate ids to their document CIDs. It only labels the bundle;
	// the blocks themselves are the payload.
	Certificates map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a deterministic TAR bundle containing the document blocks
// for the given CIDs.
//
// Entry order is lexicographic and TAR headers are normalized, so the same
// set of documents always produces byte-identical bundles. Every exported
// block is re-hashed and validated against its CID.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}

	cidStrings := make([]string, 0, len(uniq))
	for s := range uniq {
		cidStrings = append(cidStrings, s)
	}
	sort.Strings(cidStrings)

	tw := tar.NewWriter(w)

	blocks := make([]indexBlock, 0, len(cidStrings))
	for _, s := range cidStrings {
		id := uniq[s]
		b, err := cas.Get(id)
		if err != nil {
			_ = tw.Close()
			return err
		}
		got, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if !got.Equals(id) {
			_ = tw.Close()
			return storage.ErrCIDMismatch
		}

		if err := writeFile(tw, "blocks/"+id.String(), b); err != nil {
			_ = tw.Close()
			return err
		}
		blocks = append(blocks, indexBlock{CID: id.String(), Size: len(b)})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			CIDCodec:  "raw",
			Multihash: "sha2-256",
			Blocks:    blocks,
		}

		if len(opts.Certificates) > 0 {
			localIDs := make([]string, 0, len(opts.Certificates))
			for localID := range opts.Certificates {
				localIDs = append(localIDs, localID)
			}
			sort.Strings(localIDs)

			certs := make([]indexCertificate, 0, len(localIDs))
			for _, localID := range localIDs {
				if localID == "" {
					_ = tw.Close()
					return fmt.Errorf("bundle: empty certificate id")
				}
				docID := opts.Certificates[localID]
				if !docID.Defined() {
					_ = tw.Close()
					return storage.ErrInvalidCID
				}
				certs = append(certs, indexCertificate{LocalID: localID, CID: docID.String()})
			}
			idx.Certificates = certs
		}

		b, err := marshalCanonicalIndexJSON(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			_ = tw.Close()
			return err
		}
	}

	return tw.Close()
}

// ExportURLs is Export for callers holding the metadata URLs committed to
// the ledger rather than bare CIDs.
func ExportURLs(w io.Writer, cas storage.CAS, metadataURLs []string, opts ExportOptions) error {
	ids := make([]cid.Cid, 0, len(metadataURLs))
	for _, u := range metadataURLs {
		id, _, err := storage.ParseObjectURL(u)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return Export(w, cas, ids, opts)
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to
	// return an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and stores every document block into cas.
//
// Default behavior is fail-closed: unknown entries cause an error.
// Use ImportWithOptions to allow ignoring unknown entries.
func Import(r io.Reader, cas storage.CAS) error {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and stores every document block
// into cas.
//
// Each block's bytes are validated against both the entry-path CID and the
// recomputed CID before being stored.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return fmt.Errorf("bundle: unknown entry: %s", name)
		}

		cidStr := strings.TrimPrefix(name, "blocks/")
		id, derr := cid.Decode(cidStr)
		if derr != nil || !id.Defined() {
			return storage.ErrInvalidCID
		}

		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return rerr
		}
		got, herr := cidutil.CIDv1RawSHA256CID(payload)
		if herr != nil {
			return herr
		}
		if !got.Equals(id) {
			return storage.ErrCIDMismatch
		}

		key := id.String()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("bundle: duplicate block entry: %s", key)
		}
		seen[key] = struct{}{}

		putID, perr := cas.Put(payload)
		if perr != nil {
			return perr
		}
		if !putID.Equals(id) {
			return storage.ErrCIDMismatch
		}
	}
}

type indexJSON struct {
	Version      int                `json:"version"`
	CIDCodec     string             `json:"cidCodec"`
	Multihash    string             `json:"multihash"`
	Blocks       []indexBlock       `json:"blocks"`
	Certificates []indexCertificate `json:"certificates,omitempty"`
}

type indexBlock struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexCertificate struct {
	LocalID string `json:"local_id"`
	CID     string `json:"cid"`
}

func marshalCanonicalIndexJSON(idx indexJSON) ([]byte, error) {
	// Structs and slices only; encoding/json output is deterministic.
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			return ""
		}
		if part == ".." {
			return ""
		}
		out = append(out, part)
	}
	return strings.Join(out, "/")
}
