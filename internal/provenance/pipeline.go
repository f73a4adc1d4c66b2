package provenance

import (
	"context"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/logger"
	"github.com/tessera-studio/provenance-api/internal/metadata"
	"github.com/tessera-studio/provenance-api/internal/providers/ethereum"
)

// Disclaimer is attached to every report so callers cannot mistake
// heuristic output for ground truth
const Disclaimer = "Provenance is heuristic and may be incomplete or incorrect; treat results as inferred evidence, not certainty."

// DefaultOwnerLookupConcurrency caps the owner-set fan-out per request
const DefaultOwnerLookupConcurrency = 8

// Report is the full provenance inference result for one token
type Report struct {
	TokenID                string                `json:"tokenId"`
	ContractAddress        string                `json:"contractAddress"`
	Network                string                `json:"network"`
	MintTxHash             string                `json:"mintTxHash,omitempty"`
	MetadataReferenceCount int                   `json:"metadataReferenceCount"`
	SameTransactionCount   int                   `json:"sameTransactionCount"`
	OwnerOverlapCount      int                   `json:"ownerOverlapCount"`
	Candidates             []ProvenanceCandidate `json:"candidates"`
	Disclaimer             string                `json:"disclaimer"`
}

// Config holds pipeline tuning knobs
type Config struct {
	// OwnerLookupConcurrency caps parallel owner-set lookups in phase 3
	OwnerLookupConcurrency int
}

// Pipeline runs the three evidence-gathering phases for a token and merges
// the results into a ranked candidate report
//
//go:generate mockgen -source=pipeline.go -destination=../mocks/provenance_pipeline.go -package=mocks -mock_names=Pipeline=MockPipeline
type Pipeline interface {
	BuildReport(ctx context.Context, tokenID string) (*Report, error)
}

type pipeline struct {
	chain           ethereum.ChainClient
	metadata        metadata.Resolver
	contractAddress string
	network         domain.Chain
	concurrency     int
}

// NewPipeline creates a provenance pipeline over the given chain client and
// metadata resolver, scoped to one collection contract
func NewPipeline(chain ethereum.ChainClient, resolver metadata.Resolver, contractAddress string, network domain.Chain, cfg *Config) Pipeline {
	concurrency := DefaultOwnerLookupConcurrency
	if cfg != nil && cfg.OwnerLookupConcurrency > 0 {
		concurrency = cfg.OwnerLookupConcurrency
	}
	return &pipeline{
		chain:           chain,
		metadata:        resolver,
		contractAddress: domain.NormalizeAddress(contractAddress),
		network:         network,
		concurrency:     concurrency,
	}
}

// BuildReport gathers evidence in three phases. Any single phase failing
// degrades that signal to "no evidence" instead of failing the request;
// only an unparseable token id is an error.
func (p *pipeline) BuildReport(ctx context.Context, tokenID string) (*Report, error) {
	tokenID = domain.NormalizeTokenID(tokenID)
	if !domain.IsCanonicalTokenID(tokenID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTokenID, tokenID)
	}

	// Phase 1: metadata references
	metadataReferences := make(map[string][]MetadataEvidence)
	resolved, err := p.metadata.Resolve(ctx, tokenID)
	if err != nil {
		logger.WarnCtx(ctx, "metadata phase degraded",
			zap.String("tokenID", tokenID),
			zap.Error(err))
	} else {
		metadataReferences = ScanMetadataReferences(resolved.Metadata)
	}

	// Phase 2: same-transaction siblings
	sameTransactionReferences := make(map[string]*SameTransactionEvidence)
	mintTxHash := ""
	mintInfo, err := p.chain.MintInfo(ctx, tokenID)
	if err != nil {
		logger.WarnCtx(ctx, "mint lookup degraded",
			zap.String("tokenID", tokenID),
			zap.Error(err))
	} else {
		mintTxHash = mintInfo.TxHash
		mintedIDs, err := p.chain.MintedTokenIDsInTx(ctx, mintInfo.TxHash)
		if err != nil {
			logger.WarnCtx(ctx, "co-mint decode degraded",
				zap.String("tokenID", tokenID),
				zap.String("txHash", mintInfo.TxHash),
				zap.Error(err))
		} else {
			sameTransactionReferences = BuildSameTransactionEvidence(mintInfo.TxHash, mintedIDs, tokenID)
		}
	}

	// Phase 3: owner overlap only corroborates candidates from earlier phases
	ownerOverlap := p.gatherOwnerOverlap(ctx, tokenID, candidateIDs(metadataReferences, sameTransactionReferences, tokenID))

	candidates := BuildProvenanceCandidates(tokenID, metadataReferences, sameTransactionReferences, ownerOverlap)

	return &Report{
		TokenID:                tokenID,
		ContractAddress:        p.contractAddress,
		Network:                string(p.network),
		MintTxHash:             mintTxHash,
		MetadataReferenceCount: len(metadataReferences),
		SameTransactionCount:   len(sameTransactionReferences),
		OwnerOverlapCount:      len(ownerOverlap),
		Candidates:             candidates,
		Disclaimer:             Disclaimer,
	}, nil
}

// candidateIDs returns the sorted union of candidate ids discovered by the
// first two phases, excluding the target
func candidateIDs(
	metadataReferences map[string][]MetadataEvidence,
	sameTransactionReferences map[string]*SameTransactionEvidence,
	targetTokenID string,
) []string {
	universe := make(map[string]bool)
	for id := range metadataReferences {
		universe[id] = true
	}
	for id := range sameTransactionReferences {
		universe[id] = true
	}
	delete(universe, targetTokenID)

	ids := make([]string, 0, len(universe))
	for id := range universe {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return domain.CompareTokenIDs(ids[i], ids[j]) < 0
	})
	return ids
}

type overlapResult struct {
	tokenID  string
	evidence *OwnerOverlapEvidence
}

// gatherOwnerOverlap fans out candidate owner-set lookups through a bounded
// worker pool. A failed lookup drops that candidate's overlap signal only.
func (p *pipeline) gatherOwnerOverlap(ctx context.Context, tokenID string, candidates []string) map[string]*OwnerOverlapEvidence {
	overlap := make(map[string]*OwnerOverlapEvidence)
	if len(candidates) == 0 {
		return overlap
	}

	owners, err := p.chain.OwnersForToken(ctx, tokenID)
	if err != nil {
		logger.WarnCtx(ctx, "owner lookup degraded",
			zap.String("tokenID", tokenID),
			zap.Error(err))
		return overlap
	}
	if len(owners) == 0 {
		return overlap
	}

	pool := pond.NewResultPool[overlapResult](p.concurrency)
	defer pool.StopAndWait()

	tasks := make([]pond.Result[overlapResult], 0, len(candidates))
	for _, candidate := range candidates {
		candidate := candidate
		tasks = append(tasks, pool.SubmitErr(func() (overlapResult, error) {
			candidateOwners, err := p.chain.OwnersForToken(ctx, candidate)
			if err != nil {
				return overlapResult{}, fmt.Errorf("failed to get owners for candidate %s: %w", candidate, err)
			}
			return overlapResult{
				tokenID:  candidate,
				evidence: BuildOwnerOverlapEvidence(owners, candidateOwners),
			}, nil
		}))
	}

	for _, task := range tasks {
		result, err := task.Wait()
		if err != nil {
			logger.WarnCtx(ctx, "candidate owner lookup degraded", zap.Error(err))
			continue
		}
		if result.evidence != nil {
			overlap[result.tokenID] = result.evidence
		}
	}

	return overlap
}
