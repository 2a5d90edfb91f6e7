package notion

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/DeadManOfficial/deadman-dash/internal/metrics"
	"github.com/DeadManOfficial/deadman-dash/internal/utils"
	"github.com/DeadManOfficial/deadman-dash/pkg/whttp"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
	queryTimeout   = 10 * time.Second
)

// Databases holds the IDs of the four dashboard databases. An empty ID
// disables that database's queries.
type Databases struct {
	Programs string
	Findings string
	Targets  string
	Projects string
}

// Client queries the Notion workspace databases backing the dashboard.
type Client struct {
	APIKey    string
	Databases Databases
	BaseURL   string
	HTTP      *retryablehttp.Client
}

func NewClient(apiKey string, dbs Databases) *Client {
	return &Client{
		APIKey:    apiKey,
		Databases: dbs,
		BaseURL:   defaultBaseURL,
		HTTP:      whttp.GetDefaultClient(),
	}
}

// Enabled reports whether the Notion integration is configured at all.
func (c *Client) Enabled() bool {
	return c.APIKey != ""
}

type Program struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Platform    string `json:"platform"`
	Bounty      string `json:"bounty"`
	Scope       string `json:"scope"`
	Status      string `json:"status"`
	LastScanned string `json:"lastScanned"`
	Updated     string `json:"updated"`
}

type Finding struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
	Target   string `json:"target"`
	Type     string `json:"type"`
	Created  string `json:"created"`
}

type Target struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Program   string `json:"program"`
	IPs       string `json:"ips"`
	Server    string `json:"server"`
	Status    string `json:"status"`
	Findings  string `json:"findings"`
	LastRecon string `json:"lastRecon"`
	Updated   string `json:"updated"`
}

type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
	URL      string `json:"url"`
	Updated  string `json:"updated"`
}

// RecentProgram is the trimmed listing shape for the bounty browser.
type RecentProgram struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
	Updated  string `json:"updated"`
}

// queryDatabase runs one paginated database query sorted descending by
// the given timestamp and returns the raw result pages.
func (c *Client) queryDatabase(ctx context.Context, dbID, sortTimestamp string, pageSize int) (gjson.Result, error) {
	body := fmt.Sprintf(`{"sorts":[{"timestamp":%q,"direction":"descending"}],"page_size":%d}`, sortTimestamp, pageSize)

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  "POST",
		URL:     c.BaseURL + "/v1/databases/" + dbID + "/query",
		Body:    body,
		Timeout: queryTimeout,
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + c.APIKey},
			{Name: "Notion-Version", Value: apiVersion},
			{Name: "Content-Type", Value: "application/json"},
		},
	}, c.HTTP)
	if err != nil {
		return gjson.Result{}, err
	}
	if res.StatusCode != 200 {
		return gjson.Result{}, fmt.Errorf("notion query returned status %d", res.StatusCode)
	}

	return gjson.Get(res.BodyString, "results"), nil
}

// softFail logs and counts a masked upstream failure. The dashboard
// keeps rendering on an empty list, so this is the only trace that the
// fetch broke rather than the database being empty.
func softFail(database string, err error) {
	utils.Log.Warn("Notion query for ", database, " failed, serving empty list: ", err)
	metrics.UpstreamFailure("notion")
}

// GetPrograms lists bounty programs, most recently edited first. On
// any upstream failure it returns an empty list.
func (c *Client) GetPrograms(ctx context.Context) []Program {
	results, err := c.queryDatabase(ctx, c.Databases.Programs, "last_edited_time", 50)
	if err != nil {
		softFail("programs", err)
		return []Program{}
	}

	programs := []Program{}
	results.ForEach(func(_, page gjson.Result) bool {
		p := page.Get("properties")
		programs = append(programs, Program{
			ID:          page.Get("id").Str,
			Name:        ExtractText(titleProp(p, "Program", "Name")),
			Platform:    ExtractText(prop(p, "Platform")),
			Bounty:      ExtractText(prop(p, "Bounty Range", "Bounty")),
			Scope:       ExtractText(prop(p, "Scope")),
			Status:      ExtractText(prop(p, "Status")),
			LastScanned: ExtractText(prop(p, "Last Scanned")),
			Updated:     page.Get("last_edited_time").Str,
		})
		return true
	})
	return programs
}

// GetFindings lists findings, most recently created first.
func (c *Client) GetFindings(ctx context.Context) []Finding {
	results, err := c.queryDatabase(ctx, c.Databases.Findings, "created_time", 50)
	if err != nil {
		softFail("findings", err)
		return []Finding{}
	}

	findings := []Finding{}
	results.ForEach(func(_, page gjson.Result) bool {
		p := page.Get("properties")
		findings = append(findings, Finding{
			ID:       page.Get("id").Str,
			Title:    ExtractText(titleProp(p, "Name", "Title", "Finding")),
			Severity: ExtractText(prop(p, "Severity")),
			Status:   ExtractText(prop(p, "Status")),
			Target:   ExtractText(prop(p, "Target", "Domain")),
			Type:     ExtractText(prop(p, "Type", "Category")),
			Created:  page.Get("created_time").Str,
		})
		return true
	})
	return findings
}

// GetTargets lists recon targets, most recently edited first.
func (c *Client) GetTargets(ctx context.Context) []Target {
	results, err := c.queryDatabase(ctx, c.Databases.Targets, "last_edited_time", 100)
	if err != nil {
		softFail("targets", err)
		return []Target{}
	}

	targets := []Target{}
	results.ForEach(func(_, page gjson.Result) bool {
		p := page.Get("properties")
		targets = append(targets, Target{
			ID:        page.Get("id").Str,
			Domain:    ExtractText(titleProp(p, "Domain", "Name")),
			Program:   ExtractText(prop(p, "Program")),
			IPs:       ExtractText(prop(p, "Open Ports")),
			Server:    ExtractText(prop(p, "Tech Stack")),
			Status:    ExtractText(prop(p, "Status")),
			Findings:  ExtractText(prop(p, "Subdomains")),
			LastRecon: ExtractText(prop(p, "Last Scan")),
			Updated:   page.Get("last_edited_time").Str,
		})
		return true
	})
	return targets
}

// GetProjects lists side projects, most recently edited first.
func (c *Client) GetProjects(ctx context.Context) []Project {
	results, err := c.queryDatabase(ctx, c.Databases.Projects, "last_edited_time", 50)
	if err != nil {
		softFail("projects", err)
		return []Project{}
	}

	projects := []Project{}
	results.ForEach(func(_, page gjson.Result) bool {
		p := page.Get("properties")
		projects = append(projects, Project{
			ID:       page.Get("id").Str,
			Name:     ExtractText(titleProp(p, "Name")),
			Platform: ExtractText(prop(p, "Platform")),
			Status:   ExtractText(prop(p, "Status")),
			URL:      ExtractText(prop(p, "Live URL", "Repo URL")),
			Updated:  page.Get("last_edited_time").Str,
		})
		return true
	})
	return projects
}

// GetRecentPrograms returns the 30 most recently edited programs with
// just the fields the bounty browser needs.
func (c *Client) GetRecentPrograms(ctx context.Context) []RecentProgram {
	if c.APIKey == "" || c.Databases.Programs == "" {
		return []RecentProgram{}
	}

	results, err := c.queryDatabase(ctx, c.Databases.Programs, "last_edited_time", 30)
	if err != nil {
		softFail("recent programs", err)
		return []RecentProgram{}
	}

	programs := []RecentProgram{}
	results.ForEach(func(_, page gjson.Result) bool {
		p := page.Get("properties")
		programs = append(programs, RecentProgram{
			ID:       page.Get("id").Str,
			Name:     ExtractText(titleProp(p, "Program", "Name")),
			Platform: ExtractText(prop(p, "Platform")),
			Status:   ExtractText(prop(p, "Status")),
			Updated:  page.Get("last_edited_time").Str,
		})
		return true
	})
	return programs
}
