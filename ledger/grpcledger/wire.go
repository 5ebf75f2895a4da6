package grpcledger

import "github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"

// Wire shapes for JSON payloads carried inside protobuf wrapper types.
// Field names are part of the wire contract; changing them breaks
// cross-version client/server pairs.

type issueParamsWire struct {
	StudentWallet    string  `json:"student_wallet"`
	Grade            string  `json:"grade,omitempty"`
	GraduationDate   int64   `json:"graduation_date"`
	ExpirationHeight *uint64 `json:"expiration_height,omitempty"`
	MetadataURL      string  `json:"metadata_url"`
	ContentDigest    string  `json:"content_digest"`
}

type issueReceiptWire struct {
	ChainID uint64 `json:"chain_id"`
	TxID    string `json:"tx_id"`
}

type txReceiptWire struct {
	TxID           string `json:"tx_id"`
	AlreadyInState bool   `json:"already_in_state,omitempty"`
}

type recordWire struct {
	AcademyID        string  `json:"academy_id"`
	StudentWallet    string  `json:"student_wallet"`
	Grade            string  `json:"grade,omitempty"`
	GraduationDate   int64   `json:"graduation_date"`
	ExpirationHeight *uint64 `json:"expiration_height,omitempty"`
	MetadataURL      string  `json:"metadata_url"`
	ContentDigest    string  `json:"content_digest"`
	Revoked          bool    `json:"revoked"`
	IssuedAtHeight   uint64  `json:"issued_at_height"`
}

func paramsToWire(p ledger.IssueParams) issueParamsWire {
	return issueParamsWire{
		StudentWallet:    p.StudentWallet,
		Grade:            p.Grade,
		GraduationDate:   p.GraduationDate,
		ExpirationHeight: p.ExpirationHeight,
		MetadataURL:      p.MetadataURL,
		ContentDigest:    p.ContentDigest,
	}
}

func paramsFromWire(w issueParamsWire) ledger.IssueParams {
	return ledger.IssueParams{
		StudentWallet:    w.StudentWallet,
		Grade:            w.Grade,
		GraduationDate:   w.GraduationDate,
		ExpirationHeight: w.ExpirationHeight,
		MetadataURL:      w.MetadataURL,
		ContentDigest:    w.ContentDigest,
	}
}

func recordToWire(r *ledger.OnChainRecord) recordWire {
	return recordWire{
		AcademyID:        r.AcademyID,
		StudentWallet:    r.StudentWallet,
		Grade:            r.Grade,
		GraduationDate:   r.GraduationDate,
		ExpirationHeight: r.ExpirationHeight,
		MetadataURL:      r.MetadataURL,
		ContentDigest:    r.ContentDigest,
		Revoked:          r.Revoked,
		IssuedAtHeight:   r.IssuedAtHeight,
	}
}

func recordFromWire(w recordWire) *ledger.OnChainRecord {
	return &ledger.OnChainRecord{
		AcademyID:        w.AcademyID,
		StudentWallet:    w.StudentWallet,
		Grade:            w.Grade,
		GraduationDate:   w.GraduationDate,
		ExpirationHeight: w.ExpirationHeight,
		MetadataURL:      w.MetadataURL,
		ContentDigest:    w.ContentDigest,
		Revoked:          w.Revoked,
		IssuedAtHeight:   w.IssuedAtHeight,
	}
}
