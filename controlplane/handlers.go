package controlplane

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/packetpath/dataplane/match"
)

// handleHealthz responds to GET /healthz with no authentication
// required, so load balancers and orchestrators can verify liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleAddEntry responds to POST /api/v1/tables/{name}/entries. A body
// with match_values becomes a ternary entry (with or without
// match_masks); a body with no match_values becomes the table's default
// entry. Its id in the response names no scannable row: a DELETE with
// that id answers 404 and leaves the default entry installed.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "name")
	table, ok := s.table(tableName)
	if !ok {
		writeError(w, http.StatusNotFound, "no such table")
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "\"action\" is required")
		return
	}

	var entry match.Entry
	if req.MatchValues != nil {
		entry = match.NewTernaryEntry(req.MatchValues, req.MatchMasks, req.Action, req.ActionParams, req.Priority)
	} else {
		entry = match.NewDefaultEntry(req.Action, req.ActionParams)
	}

	table.AddEntry(entry)
	id := s.recordEntry(tableName, entry)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(entryResponse{ID: id})
}

// handleRemoveEntry responds to DELETE /api/v1/tables/{name}/entries/{id}.
func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "name")
	table, ok := s.table(tableName)
	if !ok {
		writeError(w, http.StatusNotFound, "no such table")
		return
	}

	id := chi.URLParam(r, "id")
	entry, ok := s.takeEntry(tableName, id)
	if !ok {
		writeError(w, http.StatusNotFound, "no such entry")
		return
	}

	if err := table.RemoveEntry(entry); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClearTable responds to POST /api/v1/tables/{name}/clear.
func (s *Server) handleClearTable(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "name")
	table, ok := s.table(tableName)
	if !ok {
		writeError(w, http.StatusNotFound, "no such table")
		return
	}

	var req clearRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	table.Clear(req.ClearStats, req.ClearDefault)
	s.forgetTable(tableName)

	w.WriteHeader(http.StatusNoContent)
}

// handleSetDefaultEntry responds to PUT /api/v1/tables/{name}/default.
func (s *Server) handleSetDefaultEntry(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "name")
	table, ok := s.table(tableName)
	if !ok {
		writeError(w, http.StatusNotFound, "no such table")
		return
	}

	var req defaultEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "\"action\" is required")
		return
	}

	table.SetDefaultEntry(match.NewDefaultEntry(req.Action, req.ActionParams))
	w.WriteHeader(http.StatusNoContent)
}

// handleTableStats responds to GET /api/v1/tables/{name}/stats.
func (s *Server) handleTableStats(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "name")
	table, ok := s.table(tableName)
	if !ok {
		writeError(w, http.StatusNotFound, "no such table")
		return
	}

	bytes, packets := table.HitStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tableStatsResponse{Name: tableName, ByteCount: bytes, PacketCount: packets})
}
