package provenance

import (
	"github.com/tessera-studio/provenance-api/internal/domain"
)

// MetadataEvidence records a token-id-shaped literal found inside a metadata
// document. FieldPath is a dotted/bracketed breadcrumb locating the match;
// Value is the raw matched literal before normalization.
type MetadataEvidence struct {
	FieldPath string `json:"fieldPath"`
	Value     string `json:"value"`
}

// SameTransactionEvidence records that a candidate was minted in the same
// transaction as the target. All candidates from one transaction share the
// full minted-id list.
type SameTransactionEvidence struct {
	TxHash         string   `json:"txHash"`
	MintedTokenIDs []string `json:"mintedTokenIds"`
}

// OwnerOverlapEvidence records the intersection of the target's and a
// candidate's owner sets. Only constructed when the intersection is
// non-empty, so OverlapRatio is always in (0, 1].
type OwnerOverlapEvidence struct {
	OverlapCount        int      `json:"overlapCount"`
	OverlapOwners       []string `json:"overlapOwners"`
	OwnerCount          int      `json:"ownerCount"`
	CandidateOwnerCount int      `json:"candidateOwnerCount"`
	OverlapRatio        float64  `json:"overlapRatio"`
}

// ProvenanceEvidence aggregates the signals gathered for one candidate.
// All fields are optional; a candidate is valid with any one present.
type ProvenanceEvidence struct {
	ExplicitMetadataReference []MetadataEvidence       `json:"explicitMetadataReference,omitempty"`
	SameTransaction           *SameTransactionEvidence `json:"sameTransaction,omitempty"`
	OwnerOverlap              *OwnerOverlapEvidence    `json:"ownerOverlap,omitempty"`
}

// ProvenanceCandidate is a scored, confidence-bucketed candidate token.
// Constructed fresh per request and never mutated after scoring.
type ProvenanceCandidate struct {
	TokenID    string             `json:"tokenId"`
	Confidence domain.Confidence  `json:"confidence"`
	Score      float64            `json:"score"`
	Source     string             `json:"source"`
	Evidence   ProvenanceEvidence `json:"evidence"`
}
