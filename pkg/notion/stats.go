package notion

import (
	"context"
	"strings"
	"sync"
)

// Stats is the dashboard rollup over all four databases.
type Stats struct {
	Programs         int `json:"programs"`
	Findings         int `json:"findings"`
	Targets          int `json:"targets"`
	Projects         int `json:"projects"`
	CriticalFindings int `json:"criticalFindings"`
	HighFindings     int `json:"highFindings"`
}

// GetStats fetches all four databases concurrently and derives the
// counts. Each fetch fails independently into an empty list, so a
// broken database zeroes its own counters without touching the others.
func (c *Client) GetStats(ctx context.Context) Stats {
	var (
		programs []Program
		findings []Finding
		targets  []Target
		projects []Project
	)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		programs = c.GetPrograms(ctx)
	}()
	go func() {
		defer wg.Done()
		findings = c.GetFindings(ctx)
	}()
	go func() {
		defer wg.Done()
		targets = c.GetTargets(ctx)
	}()
	go func() {
		defer wg.Done()
		projects = c.GetProjects(ctx)
	}()
	wg.Wait()

	return ComputeStats(programs, findings, targets, projects)
}

// ComputeStats derives the rollup from already-normalized records.
// Only the literal severities "critical" and "high" are counted,
// case-insensitively; nothing else rolls up.
func ComputeStats(programs []Program, findings []Finding, targets []Target, projects []Project) Stats {
	stats := Stats{
		Programs: len(programs),
		Findings: len(findings),
		Targets:  len(targets),
		Projects: len(projects),
	}

	for _, f := range findings {
		switch strings.ToLower(f.Severity) {
		case "critical":
			stats.CriticalFindings++
		case "high":
			stats.HighFindings++
		}
	}

	return stats
}
