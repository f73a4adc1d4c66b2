package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/gateway"
	"github.com/tessera-studio/provenance-api/internal/logger"
	"github.com/tessera-studio/provenance-api/internal/providers/ethereum"
)

// ResolvedMetadata is the full resolution result for a token: the on-chain
// metadata URL, the gateway URL the document was actually fetched from, the
// parsed document, extracted media, validation summary, and a canonical
// content fingerprint.
type ResolvedMetadata struct {
	TokenID     string                 `json:"tokenId"`
	RawURL      string                 `json:"rawUrl"`
	ResolvedURL string                 `json:"resolvedUrl"`
	Metadata    map[string]interface{} `json:"metadata"`
	Media       Media                  `json:"media"`
	Validation  Validation             `json:"validation"`
	Fingerprint string                 `json:"fingerprint"`
}

// Resolver resolves the metadata document of a token from its on-chain URI
//
//go:generate mockgen -source=resolver.go -destination=../mocks/metadata_resolver.go -package=mocks -mock_names=Resolver=MockMetadataResolver
type Resolver interface {
	Resolve(ctx context.Context, tokenID string) (*ResolvedMetadata, error)
}

type resolver struct {
	chain   ethereum.ChainClient
	gateway gateway.Resolver
	fetcher Fetcher
}

// NewResolver creates a metadata resolver backed by the given chain client,
// gateway resolver and fetcher
func NewResolver(chain ethereum.ChainClient, gw gateway.Resolver, fetcher Fetcher) Resolver {
	return &resolver{
		chain:   chain,
		gateway: gw,
		fetcher: fetcher,
	}
}

func (r *resolver) Resolve(ctx context.Context, tokenID string) (*ResolvedMetadata, error) {
	tokenID = domain.NormalizeTokenID(tokenID)

	rawURL, err := r.chain.TokenURI(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read token URI: %w", err)
	}

	rawURL = processMetadataURI(rawURL, tokenID)
	if rawURL == "" {
		return nil, domain.ErrNoMetadataURI
	}

	candidates := r.gateway.Candidates(rawURL)
	if len(candidates) == 0 {
		return nil, domain.ErrNoMetadataURI
	}

	result := r.fetcher.FetchJSONWithFallback(ctx, candidates)
	if result.Data == nil {
		logger.WarnCtx(ctx, "metadata unreachable on all gateways",
			zap.String("tokenID", tokenID),
			zap.String("rawURL", rawURL))
		return nil, domain.ErrMetadataUnreachable
	}

	media := ExtractMedia(result.Data, r.gateway)
	validation := Validate(media)

	fingerprint, err := Fingerprint(result.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint metadata: %w", err)
	}

	return &ResolvedMetadata{
		TokenID:     tokenID,
		RawURL:      rawURL,
		ResolvedURL: result.ResolvedURL,
		Metadata:    result.Data,
		Media:       media,
		Validation:  validation,
		Fingerprint: fingerprint,
	}, nil
}

// Fingerprint returns the hex-encoded SHA-256 of the JCS canonical form of
// a metadata document. Equal documents fingerprint identically regardless of
// key order.
func Fingerprint(meta map[string]interface{}) (string, error) {
	metadataJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	canonical, err := jcs.Transform(metadataJSON)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize metadata: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:]), nil
}

// processMetadataURI substitutes the ERC-721 {id} placeholder and repairs
// the common "http://ipfs/<cid>" malformation seen in older contracts
func processMetadataURI(uri string, tokenID string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ""
	}

	uri = strings.ReplaceAll(uri, "{id}", tokenID)

	for _, prefix := range []string{"http://ipfs/", "https://ipfs/"} {
		if strings.HasPrefix(uri, prefix) {
			return "ipfs://" + strings.TrimPrefix(uri, prefix)
		}
	}

	return uri
}
