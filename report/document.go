package report

import (
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cidutil"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/verify"
)

// Document is a first-class verification evidence object.
//
// Bytes are canonical report bytes. CID is derived from Bytes, so two
// verifications that observed identical evidence produce the same CID.
type Document struct {
	Bytes []byte
	CID   string
}

// NewDocumentFromBytes canonicalizes report bytes and computes the report CID.
func NewDocumentFromBytes(reportBytes []byte) (*Document, error) {
	canon, err := Canonicalize(reportBytes)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: canon, CID: cidutil.CIDv1RawSHA256(canon)}, nil
}

// RenderDocument renders a verdict and returns a canonical Document
// (bytes + CID).
func RenderDocument(verdict verify.Verdict, opts RenderOptions) (*Document, error) {
	b := Render(verdict, opts)
	return NewDocumentFromBytes(b)
}
