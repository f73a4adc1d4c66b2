package provenance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessera-studio/provenance-api/internal/provenance"
)

func TestBuildOwnerOverlapEvidence(t *testing.T) {
	evidence := provenance.BuildOwnerOverlapEvidence(
		[]string{"0xA", "0xB", "0xC"},
		[]string{"0xB", "0xC", "0xD", "0xE"},
	)

	assert.NotNil(t, evidence)
	assert.Equal(t, 2, evidence.OverlapCount)
	assert.Equal(t, []string{"0xb", "0xc"}, evidence.OverlapOwners)
	assert.Equal(t, 3, evidence.OwnerCount)
	assert.Equal(t, 4, evidence.CandidateOwnerCount)
	assert.InDelta(t, 0.5, evidence.OverlapRatio, 1e-9)
}

func TestBuildOwnerOverlapEvidence_CaseInsensitive(t *testing.T) {
	evidence := provenance.BuildOwnerOverlapEvidence(
		[]string{"0xAbCd"},
		[]string{"0xABCD"},
	)

	assert.NotNil(t, evidence)
	assert.Equal(t, 1, evidence.OverlapCount)
	assert.InDelta(t, 1.0, evidence.OverlapRatio, 1e-9)
}

func TestBuildOwnerOverlapEvidence_NoEvidence(t *testing.T) {
	// Empty owner sets yield no evidence, not zero-valued evidence
	assert.Nil(t, provenance.BuildOwnerOverlapEvidence(nil, []string{"0xa"}))
	assert.Nil(t, provenance.BuildOwnerOverlapEvidence([]string{"0xa"}, nil))

	// Disjoint sets yield no evidence either
	assert.Nil(t, provenance.BuildOwnerOverlapEvidence([]string{"0xa"}, []string{"0xb"}))
}

func TestBuildOwnerOverlapEvidence_DuplicatesCollapse(t *testing.T) {
	evidence := provenance.BuildOwnerOverlapEvidence(
		[]string{"0xa", "0xa", "0xb"},
		[]string{"0xa"},
	)

	assert.NotNil(t, evidence)
	assert.Equal(t, 2, evidence.OwnerCount)
	assert.Equal(t, 1, evidence.CandidateOwnerCount)
	assert.InDelta(t, 0.5, evidence.OverlapRatio, 1e-9)
}
