package hackerone

import (
	"context"
	b64 "encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/DeadManOfficial/deadman-dash/pkg/whttp"
)

const (
	defaultGraphQLURL = "https://hackerone.com/graphql"
	resolveTimeout    = 15 * time.Second
)

// ErrProgramNotFound means HackerOne has no team with that handle.
var ErrProgramNotFound = errors.New("program not found")

const teamQuery = `
query GetTeam($handle: String!) {
  team(handle: $handle) {
    _id name handle url
    offers_bounties
    submission_state
    response_efficiency_percentage
    structured_scopes(first: 100, archived: false) {
      total_count
      edges {
        node {
          asset_identifier
          asset_type
          eligible_for_bounty
          eligible_for_submission
          max_severity
        }
      }
    }
  }
}`

// Client talks to the HackerOne GraphQL endpoint. With no credentials
// requests go out unauthenticated and may get the rate-limited
// anonymous treatment upstream.
type Client struct {
	Username string
	Token    string
	BaseURL  string
	HTTP     *retryablehttp.Client
}

func NewClient(username, token string) *Client {
	return &Client{
		Username: username,
		Token:    token,
		BaseURL:  defaultGraphQLURL,
		HTTP:     whttp.GetDefaultClient(),
	}
}

// ScopeItem is one structured scope entry as HackerOne reports it.
type ScopeItem struct {
	AssetIdentifier       string `json:"asset_identifier"`
	AssetType             string `json:"asset_type"`
	EligibleForBounty     bool   `json:"eligible_for_bounty"`
	EligibleForSubmission bool   `json:"eligible_for_submission"`
	MaxSeverity           string `json:"max_severity"`
}

// DomainItem is a submission-eligible URL or WILDCARD scope entry,
// reshaped for the hunt UI.
type DomainItem struct {
	Asset    string `json:"asset"`
	Type     string `json:"type"`
	Bounty   bool   `json:"bounty"`
	Severity string `json:"severity"`
}

// Program is the team summary. TotalScope comes from the server-side
// total_count and can exceed len(Scopes): only the first 100 entries
// are fetched.
type Program struct {
	Name       string  `json:"name"`
	Handle     string  `json:"handle"`
	URL        string  `json:"url"`
	Bounties   bool    `json:"bounties"`
	State      string  `json:"state"`
	Response   float64 `json:"response"`
	TotalScope int     `json:"totalScope"`
}

// ResolveResult bundles a program with its scope table, the filtered
// domain list, and deduplicated scan-ready root domains.
type ResolveResult struct {
	Program Program      `json:"program"`
	Scopes  []ScopeItem  `json:"scopes"`
	Domains []DomainItem `json:"domains"`
	Targets []string     `json:"targets"`
}

// Resolve fetches a program's metadata and in-scope assets in one
// GraphQL query. Returns ErrProgramNotFound when the team is null; any
// other failure is an upstream error with no partial data.
func (c *Client) Resolve(ctx context.Context, handle string) (*ResolveResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query":     teamQuery,
		"variables": map[string]string{"handle": handle},
	})
	if err != nil {
		return nil, err
	}

	headers := []whttp.WHTTPHeader{
		{Name: "Content-Type", Value: "application/json"},
	}
	if c.Username != "" && c.Token != "" {
		// HackerOne's GraphQL endpoint accepts Basic-style credentials
		// inside a Bearer header. Odd but deliberate; do not "fix".
		auth := b64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Token))
		headers = append(headers, whttp.WHTTPHeader{Name: "Authorization", Value: "Bearer " + auth})
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  "POST",
		URL:     c.BaseURL,
		Body:    string(body),
		Timeout: resolveTimeout,
		Headers: headers,
	}, c.HTTP)
	if err != nil {
		return nil, fmt.Errorf("hackerone query failed: %w", err)
	}
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("hackerone query returned status %d", res.StatusCode)
	}

	team := gjson.Get(res.BodyString, "data.team")
	if !team.Exists() || team.Type == gjson.Null {
		return nil, ErrProgramNotFound
	}

	result := &ResolveResult{
		Program: Program{
			Name:       team.Get("name").Str,
			Handle:     team.Get("handle").Str,
			URL:        team.Get("url").Str,
			Bounties:   team.Get("offers_bounties").Bool(),
			State:      team.Get("submission_state").Str,
			Response:   team.Get("response_efficiency_percentage").Float(),
			TotalScope: int(team.Get("structured_scopes.total_count").Int()),
		},
		Scopes:  []ScopeItem{},
		Domains: []DomainItem{},
	}

	team.Get("structured_scopes.edges").ForEach(func(_, edge gjson.Result) bool {
		node := edge.Get("node")
		item := ScopeItem{
			AssetIdentifier:       node.Get("asset_identifier").Str,
			AssetType:             node.Get("asset_type").Str,
			EligibleForBounty:     node.Get("eligible_for_bounty").Bool(),
			EligibleForSubmission: node.Get("eligible_for_submission").Bool(),
			MaxSeverity:           node.Get("max_severity").Str,
		}
		result.Scopes = append(result.Scopes, item)

		if item.EligibleForSubmission && (item.AssetType == "URL" || item.AssetType == "WILDCARD") {
			result.Domains = append(result.Domains, DomainItem{
				Asset:    item.AssetIdentifier,
				Type:     item.AssetType,
				Bounty:   item.EligibleForBounty,
				Severity: item.MaxSeverity,
			})
		}
		return true
	})

	result.Targets = ScanTargets(result.Domains)

	return result, nil
}
