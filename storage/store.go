package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ipfs/go-cid"
)

// URLScheme is the scheme of content-addressed object URLs produced by
// publishers in this repo: cas://<cid>/<filename>.
const URLScheme = "cas"

// PublishedObject is the result of publishing canonical bytes: the content
// identifier and a resolvable URL suitable for committing to the ledger.
type PublishedObject struct {
	ContentID cid.Cid
	URL       string
}

// Publisher uploads canonical document bytes before any ledger transaction is
// submitted. Implementations are best-effort network calls; a failed publish
// must abort the whole issuance so the ledger never stores a dangling pointer.
type Publisher interface {
	Publish(ctx context.Context, data []byte, filename string) (PublishedObject, error)
}

// Fetcher resolves a previously published URL back to bytes.
//
// Implementations distinguish absence (ErrNotFound) from unreachability
// (ErrUnavailable); the verifier depends on that distinction.
type Fetcher interface {
	Fetch(ctx context.Context, objectURL string) ([]byte, error)
}

// ObjectURL renders the canonical URL for a stored object.
func ObjectURL(id cid.Cid, filename string) string {
	if filename == "" {
		return URLScheme + "://" + id.String()
	}
	return URLScheme + "://" + id.String() + "/" + url.PathEscape(filename)
}

// ParseObjectURL extracts the CID and filename from a cas:// URL.
func ParseObjectURL(objectURL string) (cid.Cid, string, error) {
	u, err := url.Parse(objectURL)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	if u.Scheme != URLScheme || u.Host == "" {
		return cid.Undef, "", fmt.Errorf("%w: %q", ErrBadURL, objectURL)
	}
	id, err := cid.Decode(u.Host)
	if err != nil || !id.Defined() {
		return cid.Undef, "", fmt.Errorf("%w: bad cid in %q", ErrBadURL, objectURL)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name != "" {
		if name, err = url.PathUnescape(name); err != nil {
			return cid.Undef, "", fmt.Errorf("%w: bad filename in %q", ErrBadURL, objectURL)
		}
	}
	return id, name, nil
}

// CASStore adapts any CAS into the Publisher/Fetcher pair consumed by the
// issuance pipeline and the verifier.
type CASStore struct {
	CAS CAS
}

var (
	_ Publisher = CASStore{}
	_ Fetcher   = CASStore{}
)

func (s CASStore) Publish(ctx context.Context, data []byte, filename string) (PublishedObject, error) {
	if err := ctx.Err(); err != nil {
		return PublishedObject{}, err
	}
	id, err := s.CAS.Put(data)
	if err != nil {
		return PublishedObject{}, err
	}
	return PublishedObject{ContentID: id, URL: ObjectURL(id, filename)}, nil
}

func (s CASStore) Fetch(ctx context.Context, objectURL string) ([]byte, error) {
	id, _, err := ParseObjectURL(objectURL)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.CAS.Get(id)
}
