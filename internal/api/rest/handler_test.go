package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-studio/provenance-api/internal/adapter"
	"github.com/tessera-studio/provenance-api/internal/api/rest"
	"github.com/tessera-studio/provenance-api/internal/cache"
	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/logger"
	"github.com/tessera-studio/provenance-api/internal/metadata"
	"github.com/tessera-studio/provenance-api/internal/mocks"
	"github.com/tessera-studio/provenance-api/internal/ownership"
	"github.com/tessera-studio/provenance-api/internal/provenance"
	"github.com/tessera-studio/provenance-api/internal/ratelimit"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testHandlerMocks struct {
	ctrl     *gomock.Controller
	pipeline *mocks.MockPipeline
	resolver *mocks.MockMetadataResolver
	verifier *mocks.MockVerifier
	limiter  *mocks.MockLimiter
}

func setupHandlerTest(t *testing.T) *testHandlerMocks {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	return &testHandlerMocks{
		ctrl:     ctrl,
		pipeline: mocks.NewMockPipeline(ctrl),
		resolver: mocks.NewMockMetadataResolver(ctrl),
		verifier: mocks.NewMockVerifier(ctrl),
		limiter:  mocks.NewMockLimiter(ctrl),
	}
}

func newTestRouter(tm *testHandlerMocks, store cache.Store) *gin.Engine {
	router := gin.New()
	handler := rest.NewHandler(tm.pipeline, tm.resolver, tm.verifier, store, &rest.Config{
		Network:         "eip155:1",
		ContractAddress: "0xABCDEF0000000000000000000000000000000001",
	})
	rest.SetupRoutes(router, handler, tm.limiter)
	return router
}

func (tm *testHandlerMocks) allowAll() {
	tm.limiter.EXPECT().
		Allow(gomock.Any(), gomock.Any()).
		Return(&ratelimit.Result{Allowed: true, Remaining: 1}, nil).
		AnyTimes()
}

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestGetProvenance_Success(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	report := &provenance.Report{
		TokenID:         "42",
		ContractAddress: "0xabcdef0000000000000000000000000000000001",
		Network:         "eip155:1",
		Candidates: []provenance.ProvenanceCandidate{
			{TokenID: "7", Confidence: domain.ConfidenceHigh, Score: 0.9, Source: "metadata+transaction"},
		},
		Disclaimer: provenance.Disclaimer,
	}
	tm.pipeline.EXPECT().
		BuildReport(gomock.Any(), "42").
		Return(report, nil)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/42/provenance", "")

	require.Equal(t, http.StatusOK, w.Code)

	var got provenance.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "42", got.TokenID)
	assert.Len(t, got.Candidates, 1)
	assert.Equal(t, provenance.Disclaimer, got.Disclaimer)
}

func TestGetProvenance_NormalizesHexTokenID(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	tm.pipeline.EXPECT().
		BuildReport(gomock.Any(), "42").
		Return(&provenance.Report{TokenID: "42", Disclaimer: provenance.Disclaimer}, nil)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/0x2a/provenance", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetProvenance_ChainQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCalls  int
	}{
		{name: "matching chain", query: "?chain=eip155:1", wantStatus: http.StatusOK, wantCalls: 1},
		{name: "unknown chain", query: "?chain=bogus:99", wantStatus: http.StatusBadRequest},
		{name: "valid but unserved chain", query: "?chain=eip155:11155111", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupHandlerTest(t)
			tm.allowAll()

			tm.pipeline.EXPECT().
				BuildReport(gomock.Any(), "42").
				Return(&provenance.Report{TokenID: "42", Disclaimer: provenance.Disclaimer}, nil).
				Times(tt.wantCalls)

			router := newTestRouter(tm, nil)
			w := performRequest(router, http.MethodGet, "/api/v1/tokens/42/provenance"+tt.query, "")

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestGetProvenance_InvalidTokenID(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/not-a-token/provenance", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeErrorCode(t, w))
}

func TestGetProvenance_UpstreamFailure(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	tm.pipeline.EXPECT().
		BuildReport(gomock.Any(), "42").
		Return(nil, assert.AnError)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/42/provenance", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "upstream_error", decodeErrorCode(t, w))
}

func TestGetProvenance_CachedSecondRequest(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	tm.pipeline.EXPECT().
		BuildReport(gomock.Any(), "42").
		Return(&provenance.Report{TokenID: "42", Disclaimer: provenance.Disclaimer}, nil).
		Times(1)

	store := cache.NewMemoryStore(adapter.NewClock())
	router := newTestRouter(tm, store)

	first := performRequest(router, http.MethodGet, "/api/v1/tokens/42/provenance", "")
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(router, http.MethodGet, "/api/v1/tokens/42/provenance", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestGetMetadata_Success(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	resolved := &metadata.ResolvedMetadata{
		TokenID:     "7",
		RawURL:      "ipfs://QmExample/7",
		ResolvedURL: "https://ipfs.io/ipfs/QmExample/7",
		Metadata:    map[string]interface{}{"name": "Geometry #7"},
		Validation:  metadata.Validation{HasMedia: false, Issues: []string{metadata.IssueMissingMedia}},
		Fingerprint: "deadbeef",
	}
	tm.resolver.EXPECT().
		Resolve(gomock.Any(), "7").
		Return(resolved, nil)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/7/metadata", "")

	require.Equal(t, http.StatusOK, w.Code)

	var got metadata.ResolvedMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Geometry #7", got.Metadata["name"])
	assert.Contains(t, got.Validation.Issues, metadata.IssueMissingMedia)
}

func TestGetMetadata_NoMetadataURI(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	tm.resolver.EXPECT().
		Resolve(gomock.Any(), "7").
		Return(nil, domain.ErrNoMetadataURI)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/7/metadata", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeErrorCode(t, w))
}

func TestGetMetadata_Unreachable(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	tm.resolver.EXPECT().
		Resolve(gomock.Any(), "7").
		Return(nil, domain.ErrMetadataUnreachable)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/7/metadata", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "upstream_error", decodeErrorCode(t, w))
}

func TestVerifyOwnership_Success(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	tm.verifier.EXPECT().
		Verify(gomock.Any(), ownership.VerifyRequest{
			TokenID:   "42",
			Message:   "prove it",
			Signature: "0xdeadbeef",
		}).
		Return(&ownership.VerifyResult{
			TokenID:  "42",
			Signer:   "0x1111111111111111111111111111111111111111",
			Owner:    "0x1111111111111111111111111111111111111111",
			Verified: true,
		}, nil)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodPost, "/api/v1/ownership/verify",
		`{"tokenId":"42","message":"prove it","signature":"0xdeadbeef"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var got ownership.VerifyResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Verified)
	assert.Equal(t, got.Signer, got.Owner)
}

func TestVerifyOwnership_InvalidSignature(t *testing.T) {
	tm := setupHandlerTest(t)
	tm.allowAll()

	tm.verifier.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrInvalidSignature)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodPost, "/api/v1/ownership/verify",
		`{"tokenId":"42","message":"prove it","signature":"0x00"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeErrorCode(t, w))
}

func TestVerifyOwnership_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing fields", body: `{"tokenId":"42"}`},
		{name: "invalid json", body: `{"tokenId":`},
		{name: "signature without 0x prefix", body: `{"tokenId":"42","message":"m","signature":"deadbeef"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupHandlerTest(t)
			tm.allowAll()

			router := newTestRouter(tm, nil)
			w := performRequest(router, http.MethodPost, "/api/v1/ownership/verify", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_failed", decodeErrorCode(t, w))
		})
	}
}

func TestRateLimitedRequest(t *testing.T) {
	tm := setupHandlerTest(t)

	tm.limiter.EXPECT().
		Allow(gomock.Any(), gomock.Any()).
		Return(&ratelimit.Result{Allowed: false, RetryAfter: 3 * time.Second}, nil)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/42/provenance", "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeErrorCode(t, w))
}

func TestRateLimiterFailureAllowsRequest(t *testing.T) {
	tm := setupHandlerTest(t)

	tm.limiter.EXPECT().
		Allow(gomock.Any(), gomock.Any()).
		Return(nil, assert.AnError)
	tm.pipeline.EXPECT().
		BuildReport(gomock.Any(), "42").
		Return(&provenance.Report{TokenID: "42", Disclaimer: provenance.Disclaimer}, nil)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/api/v1/tokens/42/provenance", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthCheck(t *testing.T) {
	tm := setupHandlerTest(t)

	router := newTestRouter(tm, nil)
	w := performRequest(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
