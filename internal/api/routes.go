package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)

	// Datasources
	mux.Handle("GET /api/v1/datasources", chain(http.HandlerFunc(h.ListDatasources)))
	mux.Handle("POST /api/v1/datasources", chain(http.HandlerFunc(h.CreateDatasource)))
	mux.Handle("POST /api/v1/datasources/validate", chain(http.HandlerFunc(h.ValidateDatasource)))
	mux.Handle("GET /api/v1/datasources/{id}", chain(http.HandlerFunc(h.GetDatasource)))
	mux.Handle("PUT /api/v1/datasources/{id}", chain(http.HandlerFunc(h.UpdateDatasource)))
	mux.Handle("DELETE /api/v1/datasources/{id}", chain(http.HandlerFunc(h.DeleteDatasource)))
	mux.Handle("POST /api/v1/datasources/{id}/test", chain(http.HandlerFunc(h.TestDatasource)))

	// Actions
	mux.Handle("POST /api/v1/datasources/{id}/execute", chain(http.HandlerFunc(h.Execute)))
	mux.Handle("POST /api/v1/datasources/{id}/execute/async", chain(http.HandlerFunc(h.ExecuteAsync)))

	// Executions
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
}
