package provenance

import (
	"github.com/tessera-studio/provenance-api/internal/domain"
)

// BuildSameTransactionEvidence maps every token minted in the target's mint
// transaction, except the target itself, to one shared evidence record.
// Token ids are normalized and deduplicated; the shared minted-id list keeps
// its original order and includes the target.
func BuildSameTransactionEvidence(txHash string, mintedTokenIDs []string, targetTokenID string) map[string]*SameTransactionEvidence {
	references := make(map[string]*SameTransactionEvidence)
	if txHash == "" || len(mintedTokenIDs) == 0 {
		return references
	}

	target := domain.NormalizeTokenID(targetTokenID)

	seen := make(map[string]bool)
	normalized := make([]string, 0, len(mintedTokenIDs))
	for _, id := range mintedTokenIDs {
		id = domain.NormalizeTokenID(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		normalized = append(normalized, id)
	}

	evidence := &SameTransactionEvidence{
		TxHash:         txHash,
		MintedTokenIDs: normalized,
	}

	for _, id := range normalized {
		if id == target {
			continue
		}
		references[id] = evidence
	}

	return references
}
