package notion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := NewClient("secret_test", Databases{
		Programs: "db-programs",
		Findings: "db-findings",
		Targets:  "db-targets",
		Projects: "db-projects",
	})
	c.BaseURL = ts.URL
	return c
}

const programsPage = `{
	"results": [
		{
			"id": "page-1",
			"last_edited_time": "2026-08-29T10:00:00.000Z",
			"properties": {
				"Program": {"type":"title","title":[{"plain_text":"Acme"}]},
				"Platform": {"type":"select","select":{"name":"HackerOne"}},
				"Bounty Range": {"type":"rich_text","rich_text":[{"plain_text":"$100-$5000"}]},
				"Status": {"type":"status","status":{"name":"Active"}}
			}
		},
		{
			"id": "page-2",
			"last_edited_time": "2026-08-28T10:00:00.000Z",
			"properties": {
				"CustomTitleColumn": {"type":"title","title":[{"plain_text":"Renamed Program"}]}
			}
		}
	]
}`

func TestGetPrograms(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/databases/db-programs/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
			t.Errorf("unexpected Notion-Version %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret_test" {
			t.Errorf("unexpected Authorization %q", got)
		}
		w.Write([]byte(programsPage))
	})

	programs := c.GetPrograms(context.Background())
	if len(programs) != 2 {
		t.Fatalf("expected 2 programs, got %d", len(programs))
	}

	first := programs[0]
	if first.Name != "Acme" || first.Platform != "HackerOne" || first.Bounty != "$100-$5000" {
		t.Fatalf("unexpected first program: %#v", first)
	}
	if first.Updated != "2026-08-29T10:00:00.000Z" {
		t.Fatalf("expected page last_edited_time, got %q", first.Updated)
	}

	// Second page has only a renamed title column; every other field
	// must still be present as an empty string.
	second := programs[1]
	if second.Name != "Renamed Program" {
		t.Fatalf("expected title-scan fallback, got %q", second.Name)
	}
	if second.Platform != "" || second.Bounty != "" || second.Scope != "" || second.Status != "" || second.LastScanned != "" {
		t.Fatalf("expected empty strings for missing fields, got %#v", second)
	}
}

func TestGetFindings_FieldFallbacks(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"results": [{
				"id": "f-1",
				"created_time": "2026-08-20T09:00:00.000Z",
				"properties": {
					"Finding": {"type":"title","title":[{"plain_text":"IDOR on /api/users"}]},
					"Severity": {"type":"select","select":{"name":"High"}},
					"Domain": {"type":"rich_text","rich_text":[{"plain_text":"api.acme.com"}]},
					"Category": {"type":"select","select":{"name":"Access Control"}}
				}
			}]
		}`))
	})

	findings := c.GetFindings(context.Background())
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Title != "IDOR on /api/users" {
		t.Fatalf("expected 'Finding' fallback for title, got %q", f.Title)
	}
	if f.Target != "api.acme.com" {
		t.Fatalf("expected 'Domain' fallback for target, got %q", f.Target)
	}
	if f.Type != "Access Control" {
		t.Fatalf("expected 'Category' fallback for type, got %q", f.Type)
	}
	if f.Created != "2026-08-20T09:00:00.000Z" {
		t.Fatalf("expected created_time, got %q", f.Created)
	}
}

func TestGetPrograms_SoftEmptyOnUpstreamError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	})

	programs := c.GetPrograms(context.Background())
	if programs == nil || len(programs) != 0 {
		t.Fatalf("expected empty non-nil slice on upstream failure, got %#v", programs)
	}
}

func TestGetRecentPrograms_DisabledWithoutConfig(t *testing.T) {
	c := NewClient("", Databases{})
	programs := c.GetRecentPrograms(context.Background())
	if len(programs) != 0 {
		t.Fatalf("expected empty list when unconfigured, got %#v", programs)
	}
}

func TestComputeStats(t *testing.T) {
	findings := []Finding{
		{Severity: "Critical"},
		{Severity: "critical"},
		{Severity: "HIGH"},
		{Severity: "Medium"},
		{Severity: "criticality"}, // not an exact match
		{Severity: ""},
	}

	stats := ComputeStats(
		[]Program{{}, {}},
		findings,
		[]Target{{}},
		nil,
	)

	if stats.Programs != 2 || stats.Findings != 6 || stats.Targets != 1 || stats.Projects != 0 {
		t.Fatalf("unexpected counts: %#v", stats)
	}
	if stats.CriticalFindings != 2 {
		t.Fatalf("expected 2 critical findings, got %d", stats.CriticalFindings)
	}
	if stats.HighFindings != 1 {
		t.Fatalf("expected 1 high finding, got %d", stats.HighFindings)
	}
	if stats.CriticalFindings+stats.HighFindings > stats.Findings {
		t.Fatalf("severity rollups exceed total findings: %#v", stats)
	}
}

func TestGetStats_AllBackendsFailing(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	stats := c.GetStats(context.Background())
	if stats != (Stats{}) {
		t.Fatalf("expected zeroed stats when every fetch fails, got %#v", stats)
	}
}
