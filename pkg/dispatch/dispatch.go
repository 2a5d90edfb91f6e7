package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/DeadManOfficial/deadman-dash/internal/metrics"
	"github.com/DeadManOfficial/deadman-dash/internal/utils"
	"github.com/DeadManOfficial/deadman-dash/pkg/whttp"
)

// The hunt workflow lives in a fixed repository; the dashboard only
// ever dispatches this one job.
const (
	RepoOwner    = "DeadManOfficial"
	RepoName     = "deadman-tools"
	WorkflowFile = "hunt.yml"
	workflowRef  = "master"

	dispatchTimeout = 10 * time.Second
	maxHandleLength = 100
)

var (
	ErrInvalidHandle = errors.New("invalid handle")
	ErrInvalidMode   = errors.New("invalid mode")
)

var validModes = map[string]struct{}{
	"quick":    {},
	"standard": {},
	"deep":     {},
}

// Client triggers and lists runs of the hunt workflow on GitHub
// Actions.
type Client struct {
	Token   string
	BaseURL string
	HTTP    *retryablehttp.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token:   token,
		BaseURL: "https://api.github.com",
		HTTP:    whttp.GetDefaultClient(),
	}
}

// Enabled reports whether a GitHub token is configured.
func (c *Client) Enabled() bool {
	return c.Token != ""
}

// WorkflowURL is the human-facing page for the hunt workflow.
func WorkflowURL() string {
	return fmt.Sprintf("https://github.com/%s/%s/actions/workflows/%s", RepoOwner, RepoName, WorkflowFile)
}

// Trigger dispatches a hunt for the given program handle. Mode
// defaults to "standard". GitHub answers a dispatch with 204 and no
// run identifier; correlation to a later run is only possible by
// recency via ListRuns.
func (c *Client) Trigger(ctx context.Context, handle, mode string) error {
	if handle == "" || len(handle) > maxHandleLength {
		return ErrInvalidHandle
	}
	if mode == "" {
		mode = "standard"
	}
	if _, ok := validModes[mode]; !ok {
		return ErrInvalidMode
	}

	body, err := json.Marshal(map[string]interface{}{
		"ref": workflowRef,
		"inputs": map[string]string{
			"program": handle,
			"mode":    mode,
		},
	})
	if err != nil {
		return err
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  "POST",
		URL:     fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches", c.BaseURL, RepoOwner, RepoName, WorkflowFile),
		Body:    string(body),
		Timeout: dispatchTimeout,
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + c.Token},
			{Name: "Accept", Value: "application/vnd.github.v3+json"},
			{Name: "Content-Type", Value: "application/json"},
		},
	}, c.HTTP)
	if err != nil {
		return fmt.Errorf("workflow dispatch failed: %w", err)
	}

	if res.StatusCode != 204 {
		// Keep the upstream payload verbatim for diagnostics.
		return fmt.Errorf("workflow dispatch returned status %d: %s", res.StatusCode, res.BodyString)
	}

	return nil
}

// Run is one workflow run. Conclusion stays empty until the run
// completes.
type Run struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	Created    string `json:"created"`
	Updated    string `json:"updated"`
	URL        string `json:"url"`
}

// ListRuns fetches the 10 most recent hunt workflow runs. Any failure
// collapses into an empty list: the run panel should render either
// way.
func (c *Client) ListRuns(ctx context.Context) []Run {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  "GET",
		URL:     fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/runs?per_page=10", c.BaseURL, RepoOwner, RepoName, WorkflowFile),
		Timeout: dispatchTimeout,
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + c.Token},
			{Name: "Accept", Value: "application/vnd.github.v3+json"},
		},
	}, c.HTTP)
	if err != nil {
		utils.Log.Warn("Listing workflow runs failed, serving empty list: ", err)
		metrics.UpstreamFailure("github")
		return []Run{}
	}
	if res.StatusCode != 200 {
		utils.Log.Warn("Listing workflow runs returned status ", res.StatusCode, ", serving empty list")
		metrics.UpstreamFailure("github")
		return []Run{}
	}

	runs := []Run{}
	gjson.Get(res.BodyString, "workflow_runs").ForEach(func(_, run gjson.Result) bool {
		runs = append(runs, Run{
			ID:         run.Get("id").Int(),
			Status:     run.Get("status").Str,
			Conclusion: run.Get("conclusion").Str,
			Created:    run.Get("created_at").Str,
			Updated:    run.Get("updated_at").Str,
			URL:        run.Get("html_url").Str,
		})
		return true
	})
	return runs
}
