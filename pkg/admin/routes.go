package admin

import "net/http"

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /reset", s.handleReset)

	mux.HandleFunc("GET /mappings", s.handleListMappings)
	mux.HandleFunc("POST /mappings", s.handleCreateMapping)
	mux.HandleFunc("DELETE /mappings", s.handleClearMappings)
	mux.HandleFunc("POST /mappings/import", s.handleImportMappings)
	mux.HandleFunc("GET /mappings/{id}", s.handleGetMapping)
	mux.HandleFunc("PUT /mappings/{id}", s.handleUpdateMapping)
	mux.HandleFunc("DELETE /mappings/{id}", s.handleDeleteMapping)

	mux.HandleFunc("GET /scenarios", s.handleListScenarios)
	mux.HandleFunc("POST /scenarios/reset", s.handleResetScenarios)
	mux.HandleFunc("PUT /scenarios/{name}/state", s.handleSetScenarioState)

	mux.HandleFunc("GET /requests", s.handleListRequests)
	mux.HandleFunc("GET /requests/count", s.handleCountRequests)
	mux.HandleFunc("GET /requests/stream", s.handleStreamRequests)
	mux.HandleFunc("DELETE /requests", s.handleClearRequests)
	mux.HandleFunc("GET /requests/{id}", s.handleGetRequest)

	mux.HandleFunc("GET /recordings", s.handleListRecordings)
	mux.HandleFunc("DELETE /recordings", s.handleClearRecordings)
	mux.HandleFunc("POST /recordings/import", s.handleImportRecordings)

	return mux
}
