package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/DeadManOfficial/deadman-dash/pkg/dispatch"
	"github.com/DeadManOfficial/deadman-dash/pkg/hackerone"
	"github.com/DeadManOfficial/deadman-dash/pkg/health"
	"github.com/DeadManOfficial/deadman-dash/pkg/notion"
)

// stub spins up a test backend and returns its URL.
func stub(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts.URL
}

func testServer(t *testing.T, notionURL, h1URL, githubToken, githubURL string) *Server {
	t.Helper()

	n := notion.NewClient("secret_test", notion.Databases{Programs: "db-p", Findings: "db-f", Targets: "db-t", Projects: "db-j"})
	if notionURL != "" {
		n.BaseURL = notionURL
	}

	h1 := hackerone.NewClient("hunter", "tok")
	if h1URL != "" {
		h1.BaseURL = h1URL
	}

	d := dispatch.NewClient(githubToken)
	if githubURL != "" {
		d.BaseURL = githubURL
	}

	return New(n, h1, d, health.NewProber(nil))
}

func TestHandleBounties_ResolveProgram(t *testing.T) {
	h1URL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"team":{
			"name":"Acme","handle":"acme","url":"https://hackerone.com/acme",
			"offers_bounties":true,"submission_state":"open",
			"response_efficiency_percentage":90,
			"structured_scopes":{"total_count":1,"edges":[
				{"node":{"asset_identifier":"*.acme.com","asset_type":"WILDCARD","eligible_for_bounty":true,"eligible_for_submission":true,"max_severity":"critical"}}
			]}
		}}}`))
	})
	s := testServer(t, "", h1URL, "", "")

	req := httptest.NewRequest("GET", "/bounties?handle=acme", nil)
	rec := httptest.NewRecorder()
	s.handleBounties(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if gjson.Get(body, "program.handle").Str != "acme" {
		t.Fatalf("unexpected program: %s", body)
	}
	if gjson.Get(body, "scopes.#").Int() != 1 || gjson.Get(body, "domains.#").Int() != 1 {
		t.Fatalf("unexpected scope shapes: %s", body)
	}
	if gjson.Get(body, "targets.0").Str != "acme.com" {
		t.Fatalf("expected scan target acme.com: %s", body)
	}
}

func TestHandleBounties_NotFound(t *testing.T) {
	h1URL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"team":null}}`))
	})
	s := testServer(t, "", h1URL, "", "")

	req := httptest.NewRequest("GET", "/bounties?handle=nonexistent-handle-xyz", nil)
	rec := httptest.NewRecorder()
	s.handleBounties(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if gjson.Get(rec.Body.String(), "error").Str != "Program not found" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandleBounties_UpstreamError(t *testing.T) {
	h1URL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	s := testServer(t, "", h1URL, "", "")

	req := httptest.NewRequest("GET", "/bounties?handle=acme", nil)
	rec := httptest.NewRecorder()
	s.handleBounties(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandleBounties_RecentListSoftEmpty(t *testing.T) {
	notionURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	s := testServer(t, notionURL, "", "", "")

	req := httptest.NewRequest("GET", "/bounties", nil)
	rec := httptest.NewRecorder()
	s.handleBounties(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even when Notion is down, got %d", rec.Code)
	}
	programs := gjson.Get(rec.Body.String(), "programs")
	if !programs.IsArray() || len(programs.Array()) != 0 {
		t.Fatalf("expected empty programs array, got %s", rec.Body.String())
	}
}

func TestHandleHuntTrigger_NoToken(t *testing.T) {
	s := testServer(t, "", "", "", "")

	req := httptest.NewRequest("POST", "/hunt", strings.NewReader(`{"handle":"acme"}`))
	rec := httptest.NewRecorder()
	s.handleHuntTrigger(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a token, got %d", rec.Code)
	}
	if gjson.Get(rec.Body.String(), "error").Str != "No GitHub token configured" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandleHuntTrigger_InvalidHandle(t *testing.T) {
	s := testServer(t, "", "", "ghp_test", "")

	for _, body := range []string{
		`{"handle":""}`,
		`{"handle":"` + strings.Repeat("a", 101) + `"}`,
		`not json`,
	} {
		req := httptest.NewRequest("POST", "/hunt", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.handleHuntTrigger(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, rec.Code)
		}
	}
}

func TestHandleHuntTrigger_Success(t *testing.T) {
	githubURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s := testServer(t, "", "", "ghp_test", githubURL)

	req := httptest.NewRequest("POST", "/hunt", strings.NewReader(`{"handle":"acme","mode":"deep"}`))
	rec := httptest.NewRecorder()
	s.handleHuntTrigger(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if !gjson.Get(body, "success").Bool() {
		t.Fatalf("expected success true: %s", body)
	}
	if got := gjson.Get(body, "message").Str; got != "Hunt triggered for acme (deep mode)" {
		t.Fatalf("unexpected message %q", got)
	}
	if !strings.Contains(gjson.Get(body, "workflow").Str, "hunt.yml") {
		t.Fatalf("expected workflow URL: %s", body)
	}
}

func TestHandleHuntRuns_NoToken(t *testing.T) {
	s := testServer(t, "", "", "", "")

	req := httptest.NewRequest("GET", "/hunt", nil)
	rec := httptest.NewRecorder()
	s.handleHuntRuns(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	runs := gjson.Get(rec.Body.String(), "runs")
	if !runs.IsArray() || len(runs.Array()) != 0 {
		t.Fatalf("expected empty runs array, got %s", rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, "", "", "", "")

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if gjson.Get(body, "status").Str != health.RollupUnconfigured {
		t.Fatalf("expected unconfigured status, got %s", body)
	}
	if !gjson.Get(body, "total").Exists() || !gjson.Get(body, "checked_at").Exists() {
		t.Fatalf("missing report fields: %s", body)
	}
}

func TestHandleDashboard_AlwaysRenders(t *testing.T) {
	notionURL := stub(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "db-f") {
			w.Write([]byte(`{"results":[{
				"id":"f1","created_time":"2026-08-01T00:00:00Z",
				"properties":{
					"Name":{"type":"title","title":[{"plain_text":"RCE"}]},
					"Severity":{"type":"select","select":{"name":"Critical"}}
				}
			}]}`))
			return
		}
		http.Error(w, "down", http.StatusInternalServerError)
	})
	s := testServer(t, notionURL, "", "", "")

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rec := httptest.NewRecorder()
	s.handleDashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if gjson.Get(body, "findings.#").Int() != 1 {
		t.Fatalf("expected 1 finding, got %s", body)
	}
	if gjson.Get(body, "stats.criticalFindings").Int() != 1 {
		t.Fatalf("expected 1 critical in stats, got %s", body)
	}
	// The three broken databases degrade to empty arrays, not errors.
	if !gjson.Get(body, "programs").IsArray() || gjson.Get(body, "programs.#").Int() != 0 {
		t.Fatalf("expected empty programs array, got %s", body)
	}
}
