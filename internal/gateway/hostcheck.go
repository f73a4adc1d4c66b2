package gateway

import (
	"net"
	"net/url"
	"strings"
)

// LookupIPFunc resolves a hostname to its IP addresses. Injectable so tests
// can exercise the private-range rejection without real DNS.
type LookupIPFunc func(host string) ([]net.IP, error)

// DefaultAllowedHosts is the fixed set of public IPFS/Arweave gateway hosts
// accepted without extra configuration. Subdomains of these hosts are also
// accepted.
var DefaultAllowedHosts = []string{
	"ipfs.io",
	"cloudflare-ipfs.com",
	"dweb.link",
	"gateway.pinata.cloud",
	"nftstorage.link",
	"w3s.link",
	"arweave.net",
	"arweave.dev",
}

// blockedIPv4Ranges covers loopback, RFC1918, link-local, CGNAT, the
// benchmark/test nets and everything at or above multicast. Metadata URIs
// are attacker-influenced, so any candidate resolving here is dropped.
var blockedIPv4Ranges = mustParseCIDRs([]string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/3",
})

var blockedIPv6Ranges = mustParseCIDRs([]string{
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
})

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateOrReservedIP reports whether an IP falls in a private, loopback,
// link-local or otherwise reserved range. IPv4-mapped IPv6 addresses are
// checked against the IPv4 rules.
func IsPrivateOrReservedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}

	if v4 := ip.To4(); v4 != nil {
		for _, n := range blockedIPv4Ranges {
			if n.Contains(v4) {
				return true
			}
		}
		return false
	}

	for _, n := range blockedIPv6Ranges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// isBlockedHostname rejects names that designate the local machine or an
// internal network regardless of what they resolve to.
func isBlockedHostname(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host == "localhost" ||
		strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal")
}

// hostAllowList matches hostnames against a set of allowed hosts, accepting
// exact matches and subdomains.
type hostAllowList struct {
	hosts map[string]struct{}
}

func newHostAllowList(extra ...[]string) *hostAllowList {
	l := &hostAllowList{hosts: make(map[string]struct{})}
	for _, h := range DefaultAllowedHosts {
		l.add(h)
	}
	for _, hosts := range extra {
		for _, h := range hosts {
			l.add(h)
		}
	}
	return l
}

func (l *hostAllowList) add(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	// Allow callers to configure full gateway URLs as well as bare hosts
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	if host != "" {
		l.hosts[host] = struct{}{}
	}
}

func (l *hostAllowList) contains(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if _, ok := l.hosts[host]; ok {
		return true
	}
	for allowed := range l.hosts {
		if strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
