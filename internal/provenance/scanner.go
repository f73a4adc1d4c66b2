package provenance

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tessera-studio/provenance-api/internal/domain"
)

const (
	// maxScanDepth bounds recursion into adversarially deep metadata
	maxScanDepth = 6

	// rootPath anchors evidence field paths at the metadata document
	rootPath = "metadata"
)

var (
	// referenceKeywordRegexp matches key names that suggest a relationship
	// to another token
	referenceKeywordRegexp = regexp.MustCompile(`(?i)token|reference|parent|source|provenance|origin|inspired|composition`)

	// hexTokenRegexp matches 0x-prefixed token-id-shaped literals
	hexTokenRegexp = regexp.MustCompile(`0x[0-9a-fA-F]{1,64}`)

	// decimalTokenRegexp matches bare decimal literals up to uint256 width
	decimalTokenRegexp = regexp.MustCompile(`\b\d{1,78}\b`)
)

// trait descriptor and value key variants probed on attribute-like objects
var (
	traitTypeKeys  = []string{"trait_type", "traitType", "type"}
	traitValueKeys = []string{"value", "tokenId", "token_id", "id"}
)

// ScanMetadataReferences recursively walks a metadata document looking for
// embedded token-id-shaped values under reference-suggestive keys. Returns
// candidate token ids mapped to the evidence entries that produced them; a
// nil document yields an empty map.
//
// The scan is conservative: a subtree is only scanned when its key matches
// the reference keyword set, when an ancestor already activated scanning, or
// when the subtree sits under an attributes/properties container.
func ScanMetadataReferences(metadata map[string]interface{}) map[string][]MetadataEvidence {
	references := make(map[string][]MetadataEvidence)
	if metadata == nil {
		return references
	}

	scanValue(metadata, rootPath, 0, false, references)
	return references
}

func scanValue(value interface{}, path string, depth int, forceScan bool, out map[string][]MetadataEvidence) {
	if depth > maxScanDepth {
		return
	}

	switch v := value.(type) {
	case map[string]interface{}:
		scanObject(v, path, depth, forceScan, out)

	case []interface{}:
		for i, item := range v {
			scanValue(item, fmt.Sprintf("%s[%d]", path, i), depth+1, forceScan, out)
		}

	case string:
		if forceScan {
			recordStringMatches(v, path, out)
		}

	case float64:
		if forceScan {
			recordTokenID(strconv.FormatFloat(v, 'f', -1, 64), path, out)
		}
	}
}

func scanObject(obj map[string]interface{}, path string, depth int, forceScan bool, out map[string][]MetadataEvidence) {
	// Attribute objects whose descriptor names a relationship get their
	// value field scanned regardless of the ambient state
	handled := make(map[string]bool)
	if traitType := firstTraitString(obj, traitTypeKeys); traitType != "" && referenceKeywordRegexp.MatchString(traitType) {
		for _, key := range traitValueKeys {
			if traitValue, ok := obj[key]; ok {
				handled[key] = true
				scanValue(traitValue, path+"."+key, depth+1, true, out)
			}
		}
	}

	for key, child := range obj {
		if handled[key] {
			continue
		}
		childForce := forceScan ||
			referenceKeywordRegexp.MatchString(key) ||
			key == "attributes" || key == "properties"
		scanValue(child, path+"."+key, depth+1, childForce, out)
	}
}

// recordStringMatches extracts every hex and decimal token-id-shaped literal
// from a string, deduplicated per normalized id at this path
func recordStringMatches(s string, path string, out map[string][]MetadataEvidence) {
	seen := make(map[string]bool)

	hexMatches := hexTokenRegexp.FindAllString(s, -1)
	for _, match := range hexMatches {
		id := domain.NormalizeTokenID(match)
		if !seen[id] {
			seen[id] = true
			out[id] = append(out[id], MetadataEvidence{FieldPath: path, Value: match})
		}
	}

	// Mask hex matches so their digit runs are not re-matched as decimals
	masked := hexTokenRegexp.ReplaceAllString(s, " ")
	for _, match := range decimalTokenRegexp.FindAllString(masked, -1) {
		id := domain.NormalizeTokenID(match)
		if !seen[id] {
			seen[id] = true
			out[id] = append(out[id], MetadataEvidence{FieldPath: path, Value: match})
		}
	}
}

func recordTokenID(raw string, path string, out map[string][]MetadataEvidence) {
	id := domain.NormalizeTokenID(raw)
	out[id] = append(out[id], MetadataEvidence{FieldPath: path, Value: raw})
}

func firstTraitString(obj map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			return s
		}
	}
	return ""
}
