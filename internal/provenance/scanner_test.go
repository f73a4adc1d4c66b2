package provenance_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessera-studio/provenance-api/internal/logger"
	"github.com/tessera-studio/provenance-api/internal/provenance"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func TestScanMetadataReferences_KeywordGating(t *testing.T) {
	// A numeric string under a non-suggestive key is ignored
	refs := provenance.ScanMetadataReferences(map[string]interface{}{
		"foo": "123456789012345678901234567890",
	})
	assert.Empty(t, refs)

	// The same value under a reference-like key is picked up
	refs = provenance.ScanMetadataReferences(map[string]interface{}{
		"provenanceParent": "123456789012345678901234567890",
	})
	assert.Len(t, refs, 1)
	evidence := refs["123456789012345678901234567890"]
	assert.Len(t, evidence, 1)
	assert.Equal(t, "metadata.provenanceParent", evidence[0].FieldPath)
	assert.Equal(t, "123456789012345678901234567890", evidence[0].Value)
}

func TestScanMetadataReferences_AttributesForceScan(t *testing.T) {
	refs := provenance.ScanMetadataReferences(map[string]interface{}{
		"attributes": []interface{}{
			map[string]interface{}{
				"trait_type": "Background",
				"value":      "42",
			},
		},
	})

	evidence := refs["42"]
	assert.Len(t, evidence, 1)
	assert.Equal(t, "metadata.attributes[0].value", evidence[0].FieldPath)
}

func TestScanMetadataReferences_TraitTypeSpecialCase(t *testing.T) {
	// The descriptor names a relationship, so its value is scanned even
	// though the object sits under a non-suggestive key
	refs := provenance.ScanMetadataReferences(map[string]interface{}{
		"extra": map[string]interface{}{
			"trait_type": "Parent Token",
			"value":      "1001",
		},
	})

	evidence := refs["1001"]
	assert.Len(t, evidence, 1)
	assert.Equal(t, "metadata.extra.value", evidence[0].FieldPath)
}

func TestScanMetadataReferences_HexNormalization(t *testing.T) {
	refs := provenance.ScanMetadataReferences(map[string]interface{}{
		"references": "see 0x2a and token 99",
	})

	assert.Contains(t, refs, "42") // 0x2a
	assert.Contains(t, refs, "99")
	assert.Equal(t, "0x2a", refs["42"][0].Value)
	assert.Equal(t, "99", refs["99"][0].Value)
}

func TestScanMetadataReferences_NumericValues(t *testing.T) {
	refs := provenance.ScanMetadataReferences(map[string]interface{}{
		"parentToken": float64(7),
	})

	evidence := refs["7"]
	assert.Len(t, evidence, 1)
	assert.Equal(t, "metadata.parentToken", evidence[0].FieldPath)
}

func TestScanMetadataReferences_MultiplePathsPreserved(t *testing.T) {
	refs := provenance.ScanMetadataReferences(map[string]interface{}{
		"parent": "55",
		"properties": map[string]interface{}{
			"origin": "55",
		},
	})

	assert.Len(t, refs["55"], 2)
}

func TestScanMetadataReferences_DepthLimit(t *testing.T) {
	// Nest a reference-keyed value past the depth limit
	deep := map[string]interface{}{"parent": "77"}
	nested := interface{}(deep)
	for i := 0; i < 10; i++ {
		nested = map[string]interface{}{"provenance": nested}
	}

	refs := provenance.ScanMetadataReferences(nested.(map[string]interface{}))
	assert.Empty(t, refs)
}

func TestScanMetadataReferences_NilMetadata(t *testing.T) {
	refs := provenance.ScanMetadataReferences(nil)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}
