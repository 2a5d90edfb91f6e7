package health

import (
	"context"
	b64 "encoding/base64"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/DeadManOfficial/deadman-dash/internal/utils"
	"github.com/DeadManOfficial/deadman-dash/pkg/whttp"
)

const (
	StatusActive  = "active"
	StatusWarning = "warning"
	StatusDead    = "dead"

	// Composite rollup values. "unconfigured" is reported when no
	// dependency has credentials at all, instead of leaning on the
	// active==total==0 arithmetic to call an empty probe set healthy.
	RollupHealthy      = "healthy"
	RollupDegraded     = "degraded"
	RollupDown         = "down"
	RollupUnconfigured = "unconfigured"

	defaultProbeTimeout = 8 * time.Second
)

// Check describes one external dependency probe.
type Check struct {
	Name    string
	Method  string
	URL     string
	Body    string
	Headers []whttp.WHTTPHeader
	// Validate inspects a 2xx body; returning false classifies the
	// dependency as warning rather than active. Nil skips the check.
	Validate func(body string) bool
}

// ServiceResult is one probed dependency's classification.
type ServiceResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the composite health rollup.
type Report struct {
	Status    string          `json:"status"`
	Active    int             `json:"active"`
	Total     int             `json:"total"`
	Services  []ServiceResult `json:"services"`
	CheckedAt string          `json:"checked_at"`
}

// Prober runs every configured check concurrently, each bounded by its
// own timeout. No check's failure touches its siblings.
type Prober struct {
	Checks  []Check
	Timeout time.Duration
	HTTP    *retryablehttp.Client
}

func NewProber(checks []Check) *Prober {
	return &Prober{
		Checks:  checks,
		Timeout: defaultProbeTimeout,
		HTTP:    whttp.GetDefaultClient(),
	}
}

// Probe runs all checks and aggregates. Overall latency is roughly the
// slowest single probe, not the sum.
func (p *Prober) Probe(ctx context.Context) Report {
	results := make([]ServiceResult, len(p.Checks))

	var wg sync.WaitGroup
	wg.Add(len(p.Checks))
	for i, check := range p.Checks {
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = p.run(ctx, check)
		}(i, check)
	}
	wg.Wait()

	active := 0
	for _, r := range results {
		if r.Status == StatusActive {
			active++
		}
	}

	total := len(results)
	status := RollupUnconfigured
	switch {
	case total > 0 && active == total:
		status = RollupHealthy
	case active > 0:
		status = RollupDegraded
	case total > 0:
		status = RollupDown
	}

	return Report{
		Status:    status,
		Active:    active,
		Total:     total,
		Services:  results,
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func (p *Prober) run(ctx context.Context, check Check) ServiceResult {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	method := check.Method
	if method == "" {
		method = "GET"
	}

	start := time.Now()
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  method,
		URL:     check.URL,
		Body:    check.Body,
		Timeout: timeout,
		Headers: check.Headers,
	}, p.HTTP)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		// Timeouts land here too; latency is the elapsed time up to
		// the failure, not a sentinel.
		utils.Log.Debug("Health probe for ", check.Name, " failed: ", err)
		return ServiceResult{Name: check.Name, Status: StatusDead, LatencyMS: latency}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return ServiceResult{Name: check.Name, Status: StatusDead, LatencyMS: latency}
	}

	if check.Validate != nil && !check.Validate(res.BodyString) {
		return ServiceResult{Name: check.Name, Status: StatusWarning, LatencyMS: latency}
	}

	return ServiceResult{Name: check.Name, Status: StatusActive, LatencyMS: latency}
}

// Credentials carries the already-trimmed credential strings for every
// dependency the dashboard can watch. An empty string leaves that
// dependency out of the probe set entirely: unconfigured is not dead.
type Credentials struct {
	GitHubToken  string
	NotionAPIKey string
	VercelToken  string
	GroqAPIKey   string
	ShodanAPIKey string
	H1Username   string
	H1Token      string
}

// ChecksFor builds the probe set for the present credentials.
func ChecksFor(creds Credentials) []Check {
	checks := []Check{}

	if creds.GitHubToken != "" {
		checks = append(checks, Check{
			Name: "GitHub",
			URL:  "https://api.github.com/user",
			Headers: []whttp.WHTTPHeader{
				{Name: "Authorization", Value: "Bearer " + creds.GitHubToken},
			},
		})
	}

	if creds.NotionAPIKey != "" {
		checks = append(checks, Check{
			Name: "Notion",
			URL:  "https://api.notion.com/v1/users/me",
			Headers: []whttp.WHTTPHeader{
				{Name: "Authorization", Value: "Bearer " + creds.NotionAPIKey},
				{Name: "Notion-Version", Value: "2022-06-28"},
			},
		})
	}

	if creds.VercelToken != "" {
		checks = append(checks, Check{
			Name: "Vercel",
			URL:  "https://api.vercel.com/v2/user",
			Headers: []whttp.WHTTPHeader{
				{Name: "Authorization", Value: "Bearer " + creds.VercelToken},
			},
		})
	}

	if creds.GroqAPIKey != "" {
		checks = append(checks, Check{
			Name: "Groq",
			URL:  "https://api.groq.com/openai/v1/models",
			Headers: []whttp.WHTTPHeader{
				{Name: "Authorization", Value: "Bearer " + creds.GroqAPIKey},
			},
			Validate: func(body string) bool {
				return gjson.Get(body, "data").IsArray()
			},
		})
	}

	if creds.ShodanAPIKey != "" {
		checks = append(checks, Check{
			Name: "Shodan",
			URL:  "https://api.shodan.io/api-info?key=" + creds.ShodanAPIKey,
			Validate: func(body string) bool {
				return gjson.Get(body, "query_credits").Exists()
			},
		})
	}

	if creds.H1Username != "" && creds.H1Token != "" {
		auth := b64.StdEncoding.EncodeToString([]byte(creds.H1Username + ":" + creds.H1Token))
		checks = append(checks, Check{
			Name: "HackerOne",
			URL:  "https://api.hackerone.com/v1/me/reports?page[size]=1",
			Headers: []whttp.WHTTPHeader{
				{Name: "Authorization", Value: "Basic " + auth},
			},
		})
	}

	return checks
}
