package provenance

import (
	"sort"
	"strings"

	"github.com/tessera-studio/provenance-api/internal/domain"
)

// Signal weights. Additive rather than averaged so that multi-signal
// corroboration compounds.
const (
	metadataReferenceWeight = 0.6
	sameTransactionWeight   = 0.3
	ownerOverlapBaseWeight  = 0.1
	ownerOverlapRatioWeight = 0.2
)

// Confidence thresholds, checked high first
const (
	highConfidenceThreshold   = 0.75
	mediumConfidenceThreshold = 0.4
)

// sourceFallback labels a candidate that somehow carries no signal
const sourceFallback = "heuristic"

// BuildProvenanceCandidates merges the three evidence mappings into a scored,
// confidence-bucketed candidate list. The candidate universe is the union of
// all evidence keys minus the target token id. Ordering is descending by
// score, ties broken by ascending token id.
func BuildProvenanceCandidates(
	targetTokenID string,
	metadataReferences map[string][]MetadataEvidence,
	sameTransactionReferences map[string]*SameTransactionEvidence,
	ownerOverlap map[string]*OwnerOverlapEvidence,
) []ProvenanceCandidate {
	target := domain.NormalizeTokenID(targetTokenID)

	universe := make(map[string]bool)
	for id := range metadataReferences {
		universe[id] = true
	}
	for id := range sameTransactionReferences {
		universe[id] = true
	}
	for id := range ownerOverlap {
		universe[id] = true
	}
	delete(universe, target)

	candidates := make([]ProvenanceCandidate, 0, len(universe))
	for id := range universe {
		score := 0.0
		var sources []string
		evidence := ProvenanceEvidence{}

		if refs := metadataReferences[id]; len(refs) > 0 {
			score += metadataReferenceWeight
			sources = append(sources, "metadata")
			evidence.ExplicitMetadataReference = refs
		}
		if sameTx := sameTransactionReferences[id]; sameTx != nil {
			score += sameTransactionWeight
			sources = append(sources, "transaction")
			evidence.SameTransaction = sameTx
		}
		if overlap := ownerOverlap[id]; overlap != nil {
			ratioBonus := overlap.OverlapRatio * ownerOverlapRatioWeight
			if ratioBonus > ownerOverlapRatioWeight {
				ratioBonus = ownerOverlapRatioWeight
			}
			score += ownerOverlapBaseWeight + ratioBonus
			sources = append(sources, "ownership")
			evidence.OwnerOverlap = overlap
		}

		if score > 1.0 {
			score = 1.0
		}
		if score < 0.0 {
			score = 0.0
		}

		source := sourceFallback
		if len(sources) > 0 {
			source = strings.Join(sources, "+")
		}

		candidates = append(candidates, ProvenanceCandidate{
			TokenID:    id,
			Confidence: confidenceForScore(score),
			Score:      score,
			Source:     source,
			Evidence:   evidence,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return domain.CompareTokenIDs(candidates[i].TokenID, candidates[j].TokenID) < 0
	})

	return candidates
}

func confidenceForScore(score float64) domain.Confidence {
	switch {
	case score >= highConfidenceThreshold:
		return domain.ConfidenceHigh
	case score >= mediumConfidenceThreshold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
