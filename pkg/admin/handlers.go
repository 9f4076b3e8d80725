package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/getstubd/stubd/pkg/journal"
	"github.com/getstubd/stubd/pkg/scenario"
	"github.com/getstubd/stubd/pkg/stub"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"mappings":      s.eng.Repository().Count(),
		"scenarios":     len(s.eng.Scenarios().List()),
		"journaled":     s.eng.Journal().Count(journal.Filter{}),
		"uptimeSeconds": int64(s.uptime().Seconds()),
	}
	if s.recorder != nil {
		status["recordings"] = s.recorder.Count()
		status["droppedExchanges"] = s.recorder.Dropped()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.eng.Reset()
	if s.recorder != nil {
		s.recorder.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMappings(w http.ResponseWriter, _ *http.Request) {
	mappings := s.eng.Repository().List()
	writeJSON(w, http.StatusOK, map[string]any{
		"mappings": mappings,
		"total":    len(mappings),
	})
}

func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	var m stub.StubMapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not a valid mapping")
		return
	}

	created, err := s.eng.Repository().Register(&m)
	if err != nil {
		s.writeRepositoryError(w, err)
		return
	}
	s.log.Info("mapping registered", "id", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleImportMappings(w http.ResponseWriter, r *http.Request) {
	var mappings []*stub.StubMapping
	if err := json.NewDecoder(r.Body).Decode(&mappings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not a mapping array")
		return
	}

	imported := make([]*stub.StubMapping, 0, len(mappings))
	for _, m := range mappings {
		created, err := s.eng.Repository().Register(m)
		if err != nil {
			s.writeRepositoryError(w, err)
			return
		}
		imported = append(imported, created)
	}
	s.log.Info("mappings imported", "count", len(imported))
	writeJSON(w, http.StatusCreated, map[string]any{
		"mappings": imported,
		"total":    len(imported),
	})
}

func (s *Server) handleClearMappings(w http.ResponseWriter, _ *http.Request) {
	s.eng.Repository().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	m, ok := s.eng.Repository().Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "mapping not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var m stub.StubMapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not a valid mapping")
		return
	}
	m.ID = r.PathValue("id")

	updated, err := s.eng.Repository().Update(&m)
	if err != nil {
		s.writeRepositoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	// Deleting an unknown mapping is fine; cleanup scripts retry.
	s.eng.Repository().Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	states := s.eng.Scenarios().List()
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": states,
		"total":     len(states),
	})
}

func (s *Server) handleResetScenarios(w http.ResponseWriter, _ *http.Request) {
	s.eng.Scenarios().ResetAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetScenarioState(w http.ResponseWriter, r *http.Request) {
	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.State == "" {
		writeError(w, http.StatusBadRequest, "invalid_json", `request body must be {"state": "..."}`)
		return
	}

	name := r.PathValue("name")
	s.eng.Scenarios().Set(name, body.State)
	writeJSON(w, http.StatusOK, scenario.State{Name: name, State: body.State})
}

func requestFilter(r *http.Request) journal.Filter {
	q := r.URL.Query()
	f := journal.Filter{
		Method:     q.Get("method"),
		PathPrefix: q.Get("path"),
		MappingID:  q.Get("mappingId"),
	}
	if v := q.Get("matched"); v != "" {
		matched := v == "true"
		f.Matched = &matched
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	f := requestFilter(r)
	entries := s.eng.Journal().List(f)
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": entries,
		"total":    s.eng.Journal().Count(f),
	})
}

func (s *Server) handleCountRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"count": s.eng.Journal().Count(requestFilter(r)),
	})
}

// handleStreamRequests streams journal entries as they are appended, one
// JSON object per line, until the client disconnects.
func (s *Server) handleStreamRequests(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	ch, cancel := s.eng.Journal().Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			if err := enc.Encode(e); err != nil {
				return
			}
			fl.Flush()
		}
	}
}

func (s *Server) handleClearRequests(w http.ResponseWriter, _ *http.Request) {
	s.eng.Journal().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	e, ok := s.eng.Journal().Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "journal entry not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListRecordings(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeError(w, http.StatusNotFound, "recording_disabled", "recording is not enabled")
		return
	}
	recs := s.recorder.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"recordings": recs,
		"total":      len(recs),
	})
}

func (s *Server) handleClearRecordings(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeError(w, http.StatusNotFound, "recording_disabled", "recording is not enabled")
		return
	}
	s.recorder.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleImportRecordings registers every learned mapping with the
// repository, promoting recorded traffic to replayable stubs.
func (s *Server) handleImportRecordings(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeError(w, http.StatusNotFound, "recording_disabled", "recording is not enabled")
		return
	}

	imported := make([]*stub.StubMapping, 0)
	for _, m := range s.recorder.Snapshot() {
		created, err := s.eng.Repository().Register(m)
		if err != nil {
			s.writeRepositoryError(w, err)
			return
		}
		imported = append(imported, created)
	}
	s.recorder.Clear()

	s.log.Info("recordings promoted to mappings", "count", len(imported))
	writeJSON(w, http.StatusCreated, map[string]any{
		"mappings": imported,
		"total":    len(imported),
	})
}
