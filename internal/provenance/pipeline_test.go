package provenance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/metadata"
	"github.com/tessera-studio/provenance-api/internal/mocks"
	"github.com/tessera-studio/provenance-api/internal/providers/ethereum"
	"github.com/tessera-studio/provenance-api/internal/provenance"
)

const testContract = "0x1234567890abcdef1234567890abcdef12345678"

func newTestPipeline(chain *mocks.MockChainClient, resolver *mocks.MockMetadataResolver) provenance.Pipeline {
	return provenance.NewPipeline(chain, resolver, testContract, domain.ChainEthereumMainnet, &provenance.Config{
		OwnerLookupConcurrency: 2,
	})
}

func TestPipeline_BuildReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chain := mocks.NewMockChainClient(ctrl)
	resolver := mocks.NewMockMetadataResolver(ctrl)

	// Metadata embeds an explicit reference to token 99
	resolver.EXPECT().Resolve(gomock.Any(), "7").Return(&metadata.ResolvedMetadata{
		TokenID: "7",
		Metadata: map[string]interface{}{
			"properties": map[string]interface{}{
				"references": []interface{}{
					map[string]interface{}{"value": "99"},
				},
			},
		},
	}, nil)

	// Token 101 was minted in the same transaction
	chain.EXPECT().MintInfo(gomock.Any(), "7").Return(&ethereum.MintInfo{
		TxHash:      "0xabc",
		BlockNumber: 100,
		Minter:      "0x1",
	}, nil)
	chain.EXPECT().MintedTokenIDsInTx(gomock.Any(), "0xabc").Return([]string{"7", "101"}, nil)

	// Owner sets: 99 shares an owner with the target, 101 does not
	chain.EXPECT().OwnersForToken(gomock.Any(), "7").Return([]string{"0x1", "0x2"}, nil)
	chain.EXPECT().OwnersForToken(gomock.Any(), "99").Return([]string{"0x1"}, nil)
	chain.EXPECT().OwnersForToken(gomock.Any(), "101").Return([]string{"0x9"}, nil)

	report, err := newTestPipeline(chain, resolver).BuildReport(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, "7", report.TokenID)
	assert.Equal(t, testContract, report.ContractAddress)
	assert.Equal(t, string(domain.ChainEthereumMainnet), report.Network)
	assert.Equal(t, "0xabc", report.MintTxHash)
	assert.Equal(t, 1, report.MetadataReferenceCount)
	assert.Equal(t, 1, report.SameTransactionCount)
	assert.Equal(t, 1, report.OwnerOverlapCount)
	assert.Equal(t, provenance.Disclaimer, report.Disclaimer)

	require.Len(t, report.Candidates, 2)

	// 99: metadata 0.6 + overlap 0.1 + 0.5*0.2 = 0.8
	first := report.Candidates[0]
	assert.Equal(t, "99", first.TokenID)
	assert.InDelta(t, 0.8, first.Score, 1e-9)
	assert.Equal(t, domain.ConfidenceHigh, first.Confidence)
	assert.Equal(t, "metadata+ownership", first.Source)
	assert.Len(t, first.Evidence.ExplicitMetadataReference, 1)
	assert.Equal(t, "metadata.properties.references[0].value", first.Evidence.ExplicitMetadataReference[0].FieldPath)
	require.NotNil(t, first.Evidence.OwnerOverlap)
	assert.InDelta(t, 0.5, first.Evidence.OwnerOverlap.OverlapRatio, 1e-9)

	// 101: same-transaction only → 0.3, low
	second := report.Candidates[1]
	assert.Equal(t, "101", second.TokenID)
	assert.InDelta(t, 0.3, second.Score, 1e-9)
	assert.Equal(t, domain.ConfidenceLow, second.Confidence)
	assert.Equal(t, "transaction", second.Source)
	require.NotNil(t, second.Evidence.SameTransaction)
	assert.Equal(t, "0xabc", second.Evidence.SameTransaction.TxHash)
}

func TestPipeline_PartialFailuresDegrade(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chain := mocks.NewMockChainClient(ctrl)
	resolver := mocks.NewMockMetadataResolver(ctrl)

	// Metadata resolution fails entirely
	resolver.EXPECT().Resolve(gomock.Any(), "7").Return(nil, domain.ErrMetadataUnreachable)

	// Mint lookup still works
	chain.EXPECT().MintInfo(gomock.Any(), "7").Return(&ethereum.MintInfo{TxHash: "0xabc"}, nil)
	chain.EXPECT().MintedTokenIDsInTx(gomock.Any(), "0xabc").Return([]string{"7", "8"}, nil)

	// Owner lookups fail, dropping only the overlap signal
	chain.EXPECT().OwnersForToken(gomock.Any(), "7").Return(nil, errors.New("rpc down"))

	report, err := newTestPipeline(chain, resolver).BuildReport(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, 0, report.MetadataReferenceCount)
	assert.Equal(t, 1, report.SameTransactionCount)
	assert.Equal(t, 0, report.OwnerOverlapCount)
	require.Len(t, report.Candidates, 1)
	assert.Equal(t, "8", report.Candidates[0].TokenID)
	assert.Equal(t, "transaction", report.Candidates[0].Source)
}

func TestPipeline_NoMintRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chain := mocks.NewMockChainClient(ctrl)
	resolver := mocks.NewMockMetadataResolver(ctrl)

	resolver.EXPECT().Resolve(gomock.Any(), "7").Return(&metadata.ResolvedMetadata{
		TokenID:  "7",
		Metadata: map[string]interface{}{"name": "Untitled"},
	}, nil)
	chain.EXPECT().MintInfo(gomock.Any(), "7").Return(nil, domain.ErrNoMintRecord)

	report, err := newTestPipeline(chain, resolver).BuildReport(context.Background(), "7")
	require.NoError(t, err)

	assert.Empty(t, report.MintTxHash)
	assert.Empty(t, report.Candidates)
}

func TestPipeline_InvalidTokenID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chain := mocks.NewMockChainClient(ctrl)
	resolver := mocks.NewMockMetadataResolver(ctrl)

	_, err := newTestPipeline(chain, resolver).BuildReport(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidTokenID)
}
