package provenance

import (
	"sort"

	"github.com/tessera-studio/provenance-api/internal/domain"
)

// BuildOwnerOverlapEvidence computes the intersection of the target's and a
// candidate's owner sets. Returns nil when either set is empty or the
// intersection is empty; overlap evidence is only ever created for an
// actual overlap.
func BuildOwnerOverlapEvidence(owners []string, candidateOwners []string) *OwnerOverlapEvidence {
	ownerSet := normalizeOwnerSet(owners)
	candidateSet := normalizeOwnerSet(candidateOwners)
	if len(ownerSet) == 0 || len(candidateSet) == 0 {
		return nil
	}

	overlap := make([]string, 0)
	for owner := range ownerSet {
		if candidateSet[owner] {
			overlap = append(overlap, owner)
		}
	}
	if len(overlap) == 0 {
		return nil
	}
	sort.Strings(overlap)

	denominator := len(ownerSet)
	if len(candidateSet) > denominator {
		denominator = len(candidateSet)
	}
	if denominator < 1 {
		denominator = 1
	}

	return &OwnerOverlapEvidence{
		OverlapCount:        len(overlap),
		OverlapOwners:       overlap,
		OwnerCount:          len(ownerSet),
		CandidateOwnerCount: len(candidateSet),
		OverlapRatio:        float64(len(overlap)) / float64(denominator),
	}
}

func normalizeOwnerSet(owners []string) map[string]bool {
	set := make(map[string]bool, len(owners))
	for _, owner := range owners {
		owner = domain.NormalizeAddress(owner)
		if owner != "" {
			set[owner] = true
		}
	}
	return set
}
