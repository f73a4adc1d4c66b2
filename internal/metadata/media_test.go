package metadata_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessera-studio/provenance-api/internal/gateway"
	"github.com/tessera-studio/provenance-api/internal/metadata"
)

func newMediaResolver() gateway.Resolver {
	return gateway.NewResolver(&gateway.Config{
		IPFSGateways:    []string{"https://ipfs.io", "https://cloudflare-ipfs.com"},
		ArweaveGateways: []string{"https://arweave.net"},
	}, func(host string) ([]net.IP, error) {
		return []net.IP{net.ParseIP("93.184.216.34")}, nil
	})
}

func TestExtractMedia(t *testing.T) {
	resolver := newMediaResolver()

	tests := []struct {
		name              string
		meta              map[string]interface{}
		expectedImage     string
		expectedAnimation string
	}{
		{
			name: "ipfs image resolves to primary gateway",
			meta: map[string]interface{}{
				"image": "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			},
			expectedImage: "https://ipfs.io/ipfs/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		},
		{
			name: "image key takes precedence over variants",
			meta: map[string]interface{}{
				"image":     "ipfs://QmPrimary",
				"image_url": "ipfs://QmSecondary",
			},
			expectedImage: "https://ipfs.io/ipfs/QmPrimary",
		},
		{
			name: "snake case variant used when image absent",
			meta: map[string]interface{}{
				"image_url": "ipfs://QmSecondary",
			},
			expectedImage: "https://ipfs.io/ipfs/QmSecondary",
		},
		{
			name: "animation url",
			meta: map[string]interface{}{
				"animation_url": "ar://abc123",
			},
			expectedAnimation: "https://arweave.net/abc123",
		},
		{
			name: "both image and animation",
			meta: map[string]interface{}{
				"image":         "ipfs://QmImage",
				"animation_url": "ipfs://QmAnim",
			},
			expectedImage:     "https://ipfs.io/ipfs/QmImage",
			expectedAnimation: "https://ipfs.io/ipfs/QmAnim",
		},
		{
			name: "non-string image value ignored",
			meta: map[string]interface{}{
				"image":     map[string]interface{}{"uri": "ipfs://QmNested"},
				"image_url": "ipfs://QmFallback",
			},
			expectedImage: "https://ipfs.io/ipfs/QmFallback",
		},
		{
			name:          "no media keys",
			meta:          map[string]interface{}{"name": "Untitled"},
			expectedImage: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := metadata.ExtractMedia(tt.meta, resolver)
			assert.Equal(t, tt.expectedImage, media.Image)
			assert.Equal(t, tt.expectedAnimation, media.Animation)
		})
	}
}

func TestExtractMedia_CandidateFallbackOrder(t *testing.T) {
	resolver := newMediaResolver()

	media := metadata.ExtractMedia(map[string]interface{}{
		"image": "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	}, resolver)

	assert.Equal(t, []string{
		"https://ipfs.io/ipfs/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		"https://cloudflare-ipfs.com/ipfs/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
	}, media.ImageCandidates)
}

func TestValidate(t *testing.T) {
	withMedia := metadata.Validate(metadata.Media{Image: "https://ipfs.io/ipfs/QmImage"})
	assert.True(t, withMedia.HasMedia)
	assert.Empty(t, withMedia.Issues)

	animationOnly := metadata.Validate(metadata.Media{Animation: "https://arweave.net/abc"})
	assert.True(t, animationOnly.HasMedia)
	assert.Empty(t, animationOnly.Issues)

	empty := metadata.Validate(metadata.Media{})
	assert.False(t, empty.HasMedia)
	assert.Equal(t, []string{metadata.IssueMissingMedia}, empty.Issues)
}
