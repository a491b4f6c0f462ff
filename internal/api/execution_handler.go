package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Elastix/internal/domain"
	"github.com/shaiso/Elastix/internal/repo"
	"github.com/shaiso/Elastix/internal/telemetry"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Execute синхронно выполняет action на datasource и записывает его в журнал.
// POST /api/v1/datasources/{id}/execute
//
// HTTP-статус ответа отражает обработку запроса API; итог вызова
// backend'а — в is_execution_success.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	ds, action, ok := h.loadAction(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	exec := domain.NewExecution(ds.ID, action)
	logger := telemetry.WithExecutionID(telemetry.WithDatasourceID(h.logger, ds.ID.String()), exec.ID.String())
	result := h.executor.Run(telemetry.WithLogger(ctx, logger), ds.Config, action)

	// Запись создаётся сразу в финальном статусе: polling воркера
	// не должен подхватить синхронный вызов. Отключение клиента
	// не отменяет запись: action мог дойти до backend'а.
	exec.Complete(result)
	if err := h.executions.Create(context.WithoutCancel(ctx), exec); err != nil {
		// Результат уже получен: отдаём его, журнал не критичен
		logger.Error("failed to record execution", "error", err)
	}

	Success(w, ExecuteResponse{
		ExecutionID:           exec.ID,
		ActionExecutionResult: result,
	})
}

// ExecuteAsync ставит action в очередь.
// POST /api/v1/datasources/{id}/execute/async
func (h *Handler) ExecuteAsync(w http.ResponseWriter, r *http.Request) {
	ds, action, ok := h.loadAction(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	exec := domain.NewExecution(ds.ID, action)
	if err := h.executions.Create(ctx, exec); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishActionRequested(ctx, exec.ID, ds.ID); err != nil {
			// Запись PENDING уже в БД — её подберёт polling воркера
			h.logger.Warn("failed to publish action.requested",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	h.logger.Info("execution queued",
		"execution_id", exec.ID,
		"datasource_id", ds.ID,
		"method", action.Method,
		"path", action.Path,
	)

	Accepted(w, AsyncExecuteResponse{
		ExecutionID: exec.ID,
		Status:      exec.Status,
	})
}

// loadAction разбирает запрос на выполнение и загружает datasource.
func (h *Handler) loadAction(w http.ResponseWriter, r *http.Request) (*domain.Datasource, domain.ActionConfiguration, bool) {
	id, ok := pathID(w, r, "invalid datasource id")
	if !ok {
		return nil, domain.ActionConfiguration{}, false
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return nil, domain.ActionConfiguration{}, false
	}

	action, err := req.Action()
	if err != nil {
		BadRequest(w, err.Error())
		return nil, domain.ActionConfiguration{}, false
	}

	ds, err := h.datasources.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "datasource not found") {
		return nil, domain.ActionConfiguration{}, false
	}

	return ds, action, true
}

// ListExecutions возвращает журнал выполнений.
// GET /api/v1/executions?datasource_id=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repo.ExecutionFilter{
		Limit:  parseIntParam(query.Get("limit"), defaultListLimit),
		Offset: parseIntParam(query.Get("offset"), 0),
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = defaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if dsID := query.Get("datasource_id"); dsID != "" {
		id, err := uuid.Parse(dsID)
		if err != nil {
			BadRequest(w, "invalid datasource_id")
			return
		}
		filter.DatasourceID = &id
	}

	if status := query.Get("status"); status != "" {
		filter.Status = domain.ExecutionStatus(status)
		if !filter.Status.IsValid() {
			BadRequest(w, "invalid status")
			return
		}
	}

	executions, err := h.executions.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// GetExecution возвращает выполнение по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid execution id")
	if !ok {
		return
	}

	exec, err := h.executions.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// parseIntParam разбирает целый query-параметр; при ошибке — defaultVal.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
