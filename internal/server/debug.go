package server

import (
	"net/http"
)

// handleDebug reports credential presence and one-page connectivity
// checks against each configured database. Operational-only; the
// shape of this response is not a stable contract.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{
		"hasApiKey":  s.Notion.APIKey != "",
		"dbPrograms": s.Notion.Databases.Programs,
		"dbTargets":  s.Notion.Databases.Targets,
		"dbProjects": s.Notion.Databases.Projects,
	}
	if len(s.Notion.APIKey) >= 10 {
		result["apiKeyPrefix"] = s.Notion.APIKey[:10] + "..."
	}

	checkDB := func(key, dbID string) {
		if s.Notion.APIKey == "" || dbID == "" {
			return
		}
		count, props, err := s.Notion.CheckDatabase(r.Context(), dbID)
		if err != nil {
			result[key+"Ok"] = false
			result[key+"Error"] = err.Error()
			return
		}
		result[key+"Ok"] = true
		result[key+"Count"] = count
		if key == "programs" && len(props) > 0 {
			result["programProps"] = props
		}
	}

	checkDB("programs", s.Notion.Databases.Programs)
	checkDB("targets", s.Notion.Databases.Targets)
	checkDB("projects", s.Notion.Databases.Projects)

	writeJSON(w, http.StatusOK, result)
}
