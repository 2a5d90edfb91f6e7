package hackerone

import (
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// RootDomain extracts the registrable root domain from a scope asset.
// e.g. "https://sub.foo.example.co.uk/path" -> "example.co.uk", true.
// Wildcard markers are stripped first, so "*.api.example.com" resolves
// to "example.com" too.
func RootDomain(asset string) (string, bool) {
	asset = strings.TrimSpace(asset)
	asset = strings.TrimPrefix(asset, "*.")
	if asset == "" || strings.Contains(asset, "*") {
		return "", false
	}

	// Bare domains without a scheme confuse url.Parse; prepend one so
	// the host comes out reliably.
	host := asset
	if !strings.Contains(asset, "://") && strings.Contains(asset, ".") {
		asset = "http://" + asset
	}

	if u, err := url.Parse(asset); err == nil && u.Host != "" {
		host = u.Hostname()
	} else {
		host = strings.Split(host, "/")[0]
		host = strings.Split(host, ":")[0]
	}

	if !strings.Contains(host, ".") {
		return "", false
	}

	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return "", false
	}

	return domain, true
}

// ScanTargets reduces the domain list to unique scan-ready root
// domains, preserving first-seen order.
func ScanTargets(domains []DomainItem) []string {
	seen := make(map[string]struct{})
	targets := []string{}
	for _, d := range domains {
		root, ok := RootDomain(d.Asset)
		if !ok {
			continue
		}
		if _, dup := seen[root]; dup {
			continue
		}
		seen[root] = struct{}{}
		targets = append(targets, root)
	}
	return targets
}
