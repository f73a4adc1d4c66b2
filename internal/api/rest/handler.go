package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/cache"
	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/metadata"
	"github.com/tessera-studio/provenance-api/internal/ownership"
	"github.com/tessera-studio/provenance-api/internal/provenance"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetProvenance builds the inferred provenance report for a token
	// GET /api/v1/tokens/:token_id/provenance
	GetProvenance(c *gin.Context)

	// GetMetadata resolves and validates the metadata document for a token
	// GET /api/v1/tokens/:token_id/metadata
	GetMetadata(c *gin.Context)

	// VerifyOwnership checks a wallet signature against the token's current owner
	// POST /api/v1/ownership/verify
	VerifyOwnership(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// Config holds handler configuration. Cache TTLs of zero disable caching
// for the corresponding endpoint only when no store is configured.
type Config struct {
	Network         string
	ContractAddress string
	ProvenanceTTL   time.Duration
	MetadataTTL     time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.ProvenanceTTL <= 0 {
		cfg.ProvenanceTTL = 5 * time.Minute
	}
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = 10 * time.Minute
	}
	return cfg
}

// handler implements the Handler interface
type handler struct {
	config   Config
	pipeline provenance.Pipeline
	resolver metadata.Resolver
	verifier ownership.Verifier
	store    cache.Store
}

// NewHandler creates a new REST API handler. The cache store may be nil, in
// which case every request goes straight to the chain and gateways.
func NewHandler(
	pipeline provenance.Pipeline,
	resolver metadata.Resolver,
	verifier ownership.Verifier,
	store cache.Store,
	cfg *Config,
) Handler {
	return &handler{
		config:   cfg.withDefaults(),
		pipeline: pipeline,
		resolver: resolver,
		verifier: verifier,
		store:    store,
	}
}

// cacheKey builds a cache key scoped to the configured network and contract
// so reports for different deployments never collide.
func (h *handler) cacheKey(kind, tokenID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", kind, h.config.Network, domain.NormalizeAddress(h.config.ContractAddress), tokenID)
}

// validTokenParam normalizes and validates the token id path parameter.
func validTokenParam(c *gin.Context) (string, bool) {
	raw := c.Param("token_id")
	if raw == "" {
		respondBadRequest(c, "Token ID is required")
		return "", false
	}

	tokenID := domain.NormalizeTokenID(raw)
	if !domain.IsCanonicalTokenID(tokenID) {
		respondBadRequest(c, "Invalid token ID", fmt.Sprintf("token id %q is not a decimal or 0x-hex integer", raw))
		return "", false
	}

	return tokenID, true
}

// validChainQuery validates the optional chain query parameter against the
// configured network.
func (h *handler) validChainQuery(c *gin.Context) bool {
	raw := c.Query("chain")
	if raw == "" {
		return true
	}

	chain := domain.Chain(raw)
	if !domain.IsValidChain(chain) {
		respondBadRequest(c, "Invalid chain ID", fmt.Sprintf("chain %q is not a supported CAIP-2 chain id", raw))
		return false
	}
	if string(chain) != h.config.Network {
		respondBadRequest(c, "Unsupported chain ID", fmt.Sprintf("this deployment serves %s", h.config.Network))
		return false
	}

	return true
}

// GetProvenance builds the inferred provenance report for a token
func (h *handler) GetProvenance(c *gin.Context) {
	tokenID, ok := validTokenParam(c)
	if !ok {
		return
	}
	if !h.validChainQuery(c) {
		return
	}

	ctx := c.Request.Context()
	report, err := cache.GetJSON(ctx, h.store, h.cacheKey("provenance", tokenID), h.config.ProvenanceTTL,
		func(ctx context.Context) (*provenance.Report, error) {
			return h.pipeline.BuildReport(ctx, tokenID)
		})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTokenID) {
			respondBadRequest(c, "Invalid token ID")
			return
		}
		respondUpstreamError(c, err, "Failed to build provenance report", zap.String("token_id", tokenID))
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetMetadata resolves and validates the metadata document for a token
func (h *handler) GetMetadata(c *gin.Context) {
	tokenID, ok := validTokenParam(c)
	if !ok {
		return
	}
	if !h.validChainQuery(c) {
		return
	}

	ctx := c.Request.Context()
	resolved, err := cache.GetJSON(ctx, h.store, h.cacheKey("metadata", tokenID), h.config.MetadataTTL,
		func(ctx context.Context) (*metadata.ResolvedMetadata, error) {
			return h.resolver.Resolve(ctx, tokenID)
		})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTokenID):
			respondBadRequest(c, "Invalid token ID")
		case errors.Is(err, domain.ErrNoMetadataURI):
			respondNotFound(c, "Token has no metadata URI")
		case errors.Is(err, domain.ErrMetadataUnreachable):
			respondUpstreamError(c, err, "Metadata is unreachable on all gateways", zap.String("token_id", tokenID))
		default:
			respondUpstreamError(c, err, "Failed to resolve metadata", zap.String("token_id", tokenID))
		}
		return
	}

	c.JSON(http.StatusOK, resolved)
}

// VerifyOwnership checks a wallet signature against the token's current owner
func (h *handler) VerifyOwnership(c *gin.Context) {
	var req VerifyOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), ownership.VerifyRequest{
		TokenID:   req.TokenID,
		Message:   req.Message,
		Signature: req.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTokenID):
			respondBadRequest(c, "Invalid token ID")
		case errors.Is(err, domain.ErrInvalidSignature):
			respondBadRequest(c, "Invalid signature", err.Error())
		default:
			respondUpstreamError(c, err, "Failed to verify ownership", zap.String("token_id", req.TokenID))
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "provenance-api",
	})
}
