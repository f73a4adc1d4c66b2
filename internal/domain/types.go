package domain

import (
	"math/big"
	"strings"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet || chain == ChainEthereumSepolia
}

// Confidence is the bucketed confidence of a provenance candidate
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// NormalizeTokenID converts a decimal or 0x-prefixed hex token id to its
// canonical base-10 string form. Token ids can exceed 64 bits (uint256), so
// parsing goes through math/big. Input that does not parse as a number is
// returned trimmed but otherwise unchanged; callers treat that as an opaque
// identifier.
func NormalizeTokenID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}

	var n *big.Int
	var ok bool
	if len(trimmed) > 2 && (strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X")) {
		n, ok = new(big.Int).SetString(trimmed[2:], 16)
	} else {
		n, ok = new(big.Int).SetString(trimmed, 10)
	}
	if !ok || n.Sign() < 0 {
		return trimmed
	}

	return n.String()
}

// IsCanonicalTokenID reports whether a value is a parseable token id, i.e.
// NormalizeTokenID produced a canonical decimal rather than a passthrough.
func IsCanonicalTokenID(id string) bool {
	if id == "" {
		return false
	}
	n, ok := new(big.Int).SetString(id, 10)
	return ok && n.Sign() >= 0 && n.String() == id
}

// TokenIDEqual reports whether two token ids are equal after normalization
func TokenIDEqual(a, b string) bool {
	return NormalizeTokenID(a) == NormalizeTokenID(b)
}

// NormalizeAddress lower-cases an Ethereum address. Equality on addresses is
// string equality after normalization; no checksum validation is performed.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizeAddresses normalizes a list of addresses, dropping empties
func NormalizeAddresses(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		n := NormalizeAddress(a)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// CompareTokenIDs orders two canonical token ids numerically, falling back
// to lexical order for non-numeric ids. Used as the deterministic tie-break
// when candidate scores are equal.
func CompareTokenIDs(a, b string) int {
	na, aOK := new(big.Int).SetString(a, 10)
	nb, bOK := new(big.Int).SetString(b, 10)
	switch {
	case aOK && bOK:
		return na.Cmp(nb)
	case aOK:
		return -1
	case bOK:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
