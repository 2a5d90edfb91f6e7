package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/DeadManOfficial/deadman-dash/internal/utils"
	"github.com/DeadManOfficial/deadman-dash/pkg/dispatch"
	"github.com/DeadManOfficial/deadman-dash/pkg/hackerone"
	"github.com/DeadManOfficial/deadman-dash/pkg/notion"
)

type dashboardResponse struct {
	Programs []notion.Program `json:"programs"`
	Findings []notion.Finding `json:"findings"`
	Targets  []notion.Target  `json:"targets"`
	Projects []notion.Project `json:"projects"`
	Stats    notion.Stats     `json:"stats"`
}

// handleDashboard serves the full board: the four normalized record
// sets plus the stats rollup, fetched concurrently. Each fetch fails
// independently into an empty list; the board always renders.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var resp dashboardResponse
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		resp.Programs = s.Notion.GetPrograms(ctx)
	}()
	go func() {
		defer wg.Done()
		resp.Findings = s.Notion.GetFindings(ctx)
	}()
	go func() {
		defer wg.Done()
		resp.Targets = s.Notion.GetTargets(ctx)
	}()
	go func() {
		defer wg.Done()
		resp.Projects = s.Notion.GetProjects(ctx)
	}()
	wg.Wait()

	resp.Stats = notion.ComputeStats(resp.Programs, resp.Findings, resp.Targets, resp.Projects)
	writeJSON(w, http.StatusOK, resp)
}

// handleBounties serves the bounty browser. With a handle it resolves
// that program's scope from HackerOne; without one it lists recent
// programs from the workspace database.
func (s *Server) handleBounties(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")

	if handle == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"programs": s.Notion.GetRecentPrograms(r.Context()),
		})
		return
	}

	result, err := s.HackerOne.Resolve(r.Context(), handle)
	if errors.Is(err, hackerone.ErrProgramNotFound) {
		writeError(w, http.StatusNotFound, "Program not found")
		return
	}
	if err != nil {
		utils.Log.Warn("Resolving program ", handle, " failed: ", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch program")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type huntRequest struct {
	Handle string `json:"handle"`
	Mode   string `json:"mode"`
}

// handleHuntTrigger dispatches the hunt workflow for a program handle.
func (s *Server) handleHuntTrigger(w http.ResponseWriter, r *http.Request) {
	if !s.Dispatch.Enabled() {
		writeError(w, http.StatusInternalServerError, "No GitHub token configured")
		return
	}

	var req huntRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid handle")
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = "standard"
	}

	err := s.Dispatch.Trigger(r.Context(), req.Handle, mode)
	switch {
	case errors.Is(err, dispatch.ErrInvalidHandle):
		writeError(w, http.StatusBadRequest, "Invalid handle")
		return
	case errors.Is(err, dispatch.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, "Invalid mode")
		return
	case err != nil:
		utils.Log.Warn("Workflow dispatch failed: ", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "Failed to trigger workflow",
			"detail": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  fmt.Sprintf("Hunt triggered for %s (%s mode)", req.Handle, mode),
		"workflow": dispatch.WorkflowURL(),
	})
}

// handleHuntRuns lists recent hunt workflow runs. Always 200; an empty
// array covers both "no runs" and "listing failed".
func (s *Server) handleHuntRuns(w http.ResponseWriter, r *http.Request) {
	runs := []dispatch.Run{}
	if s.Dispatch.Enabled() {
		runs = s.Dispatch.ListRuns(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleHealth serves the composite dependency health report.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Prober.Probe(r.Context()))
}
