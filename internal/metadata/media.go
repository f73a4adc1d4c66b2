package metadata

import (
	"github.com/tessera-studio/provenance-api/internal/gateway"
)

// Recognized key variants, probed in order; the first non-empty string wins
var (
	imageKeys     = []string{"image", "image_url", "imageUrl", "imageURI", "image_uri"}
	animationKeys = []string{"animation_url", "animationUrl", "animationURI", "animation_uri"}
)

// IssueMissingMedia is recorded when metadata carries neither an image nor
// an animation reference
const IssueMissingMedia = "metadata_missing_media"

// Media holds the resolved media references of a metadata document. Image
// and Animation are the primary (first allowed) gateway URLs; the candidate
// lists preserve full gateway fallback order.
type Media struct {
	Image               string   `json:"image"`
	Animation           string   `json:"animation"`
	ImageCandidates     []string `json:"imageCandidates"`
	AnimationCandidates []string `json:"animationCandidates"`
}

// Validation summarizes structural issues found in a metadata document
type Validation struct {
	HasMedia bool     `json:"hasMedia"`
	Issues   []string `json:"issues"`
}

// ExtractMedia probes the recognized image and animation key variants and
// re-resolves each raw URI through the gateway resolver
func ExtractMedia(meta map[string]interface{}, resolver gateway.Resolver) Media {
	var media Media

	if raw := firstStringValue(meta, imageKeys); raw != "" {
		media.ImageCandidates = resolver.Candidates(raw)
		if len(media.ImageCandidates) > 0 {
			media.Image = media.ImageCandidates[0]
		}
	}

	if raw := firstStringValue(meta, animationKeys); raw != "" {
		media.AnimationCandidates = resolver.Candidates(raw)
		if len(media.AnimationCandidates) > 0 {
			media.Animation = media.AnimationCandidates[0]
		}
	}

	return media
}

// Validate checks a media extraction result for structural issues
func Validate(media Media) Validation {
	v := Validation{
		HasMedia: media.Image != "" || media.Animation != "",
		Issues:   []string{},
	}
	if !v.HasMedia {
		v.Issues = append(v.Issues, IssueMissingMedia)
	}
	return v
}

func firstStringValue(meta map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if s, ok := meta[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
