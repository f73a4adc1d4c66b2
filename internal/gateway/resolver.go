package gateway

import (
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/logger"
)

// Config holds configuration for the gateway resolver
type Config struct {
	// IPFSGateways is the list of IPFS gateway base URLs to try, in priority order
	IPFSGateways []string
	// ArweaveGateways is the list of Arweave gateway base URLs to try, in priority order
	ArweaveGateways []string
	// AdditionalAllowedHosts extends the default host allow-list
	AdditionalAllowedHosts []string
}

// Resolver translates content-addressed URIs into fetchable gateway URLs
// and filters every candidate through the host allow-list and the
// private-range rejection.
//
//go:generate mockgen -source=resolver.go -destination=../mocks/gateway_resolver.go -package=mocks -mock_names=Resolver=MockGatewayResolver
type Resolver interface {
	// Candidates returns the prioritized, allow-listed gateway URLs for a
	// raw URI. Unsupported schemes and malformed URIs yield an empty slice.
	Candidates(rawURI string) []string

	// AllowURL reports whether a URL passes the allow-list and
	// private-range checks. Also applied to post-redirect response URLs by
	// the metadata fetcher.
	AllowURL(rawURL string) bool
}

type resolver struct {
	config   *Config
	allowed  *hostAllowList
	lookupIP LookupIPFunc
}

// NewResolver creates a gateway resolver. A nil lookupIP falls back to the
// default system resolver.
func NewResolver(config *Config, lookupIP LookupIPFunc) Resolver {
	if lookupIP == nil {
		lookupIP = net.LookupIP
	}
	if len(config.IPFSGateways) == 0 {
		config.IPFSGateways = []string{domain.DEFAULT_IPFS_GATEWAY}
	}
	if len(config.ArweaveGateways) == 0 {
		config.ArweaveGateways = []string{domain.DEFAULT_ARWEAVE_GATEWAY}
	}
	return &resolver{
		config:   config,
		allowed:  newHostAllowList(config.IPFSGateways, config.ArweaveGateways, config.AdditionalAllowedHosts),
		lookupIP: lookupIP,
	}
}

func (r *resolver) Candidates(rawURI string) []string {
	uri := strings.TrimSpace(rawURI)
	if uri == "" {
		return nil
	}

	var raw []string
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "ipfs://"):
		raw = r.ipfsCandidates(uri[len("ipfs://"):])
	case strings.HasPrefix(lower, "ar://"):
		raw = r.arweaveCandidates(uri[len("ar://"):])
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		raw = []string{uri}
	default:
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, candidate := range raw {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		if !r.AllowURL(candidate) {
			logger.Debug("dropping disallowed gateway candidate", zap.String("url", candidate))
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// ipfsCandidates maps an IPFS path to one URL per configured gateway.
// A redundant leading /ipfs/ segment (as produced by some marketplaces'
// tokenURIs) is stripped before joining.
func (r *resolver) ipfsCandidates(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if rest, ok := cutCaseInsensitive(path, "ipfs/"); ok {
		path = rest
	}
	if path == "" {
		return nil
	}

	urls := make([]string, 0, len(r.config.IPFSGateways))
	for _, gw := range r.config.IPFSGateways {
		urls = append(urls, strings.TrimSuffix(gw, "/")+"/ipfs/"+path)
	}
	return urls
}

func (r *resolver) arweaveCandidates(txID string) []string {
	txID = strings.TrimPrefix(txID, "/")
	if txID == "" {
		return nil
	}

	urls := make([]string, 0, len(r.config.ArweaveGateways))
	for _, gw := range r.config.ArweaveGateways {
		urls = append(urls, strings.TrimSuffix(gw, "/")+"/"+txID)
	}
	return urls
}

func (r *resolver) AllowURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" || isBlockedHostname(host) {
		return false
	}

	if !r.allowed.contains(host) {
		return false
	}

	// The private-range check is independent of and additional to the
	// allow-list: a misconfigured allow-list entry must not open a path to
	// internal address space.
	if ip := net.ParseIP(host); ip != nil {
		return !IsPrivateOrReservedIP(ip)
	}

	ips, err := r.lookupIP(host)
	if err != nil || len(ips) == 0 {
		return false
	}
	for _, ip := range ips {
		if IsPrivateOrReservedIP(ip) {
			return false
		}
	}
	return true
}

// cutCaseInsensitive is strings.CutPrefix with an ASCII case-insensitive match
func cutCaseInsensitive(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
