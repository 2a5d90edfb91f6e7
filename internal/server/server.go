package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeadManOfficial/deadman-dash/internal/utils"
	"github.com/DeadManOfficial/deadman-dash/pkg/dispatch"
	"github.com/DeadManOfficial/deadman-dash/pkg/hackerone"
	"github.com/DeadManOfficial/deadman-dash/pkg/health"
	"github.com/DeadManOfficial/deadman-dash/pkg/notion"
)

// Server exposes the dashboard JSON API. Every collaborator is
// injected; there is no package-level client state.
type Server struct {
	Notion    *notion.Client
	HackerOne *hackerone.Client
	Dispatch  *dispatch.Client
	Prober    *health.Prober
}

func New(n *notion.Client, h1 *hackerone.Client, d *dispatch.Client, p *health.Prober) *Server {
	return &Server{
		Notion:    n,
		HackerOne: h1,
		Dispatch:  d,
		Prober:    p,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /bounties", s.handleBounties)
	mux.HandleFunc("POST /hunt", s.handleHuntTrigger)
	mux.HandleFunc("GET /hunt", s.handleHuntRuns)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /debug", s.handleDebug)
	mux.Handle("GET /metrics", promhttp.Handler())

	utils.Log.Info("Starting server on ", addr)
	return http.ListenAndServe(addr, mux)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Error("Encoding response failed: ", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
