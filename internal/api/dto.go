package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Elastix/internal/domain"
)

// redactedPassword — маска пароля в ответах API.
const redactedPassword = "******"

// Datasource DTOs

// CreateDatasourceRequest — запрос на создание datasource.
type CreateDatasourceRequest struct {
	Name   string                         `json:"name"`
	Config domain.DatasourceConfiguration `json:"config"`
}

// UpdateDatasourceRequest — запрос на обновление datasource.
// Пароль "******" означает "оставить текущий".
type UpdateDatasourceRequest struct {
	Name   *string                         `json:"name,omitempty"`
	Config *domain.DatasourceConfiguration `json:"config,omitempty"`
}

// DatasourceResponse — ответ с datasource (пароль скрыт).
type DatasourceResponse struct {
	ID        uuid.UUID                      `json:"id"`
	Name      string                         `json:"name"`
	Config    domain.DatasourceConfiguration `json:"config"`
	CreatedAt time.Time                      `json:"created_at"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

// DatasourceFromDomain конвертирует domain.Datasource в DatasourceResponse.
func DatasourceFromDomain(ds domain.Datasource) DatasourceResponse {
	return DatasourceResponse{
		ID:        ds.ID,
		Name:      ds.Name,
		Config:    ds.Config.Redacted(),
		CreatedAt: ds.CreatedAt,
		UpdatedAt: ds.UpdatedAt,
	}
}

// ValidateDatasourceResponse — результат валидации конфигурации.
type ValidateDatasourceResponse struct {
	Valid    bool     `json:"valid"`
	Invalids []string `json:"invalids"`
}

// Execution DTOs

// ExecuteRequest — запрос на выполнение action.
//
// Body принимается строкой ("body": "{\"query\":...}") или JSON-значением
// ("body": {"query": ...}); второй вариант передаётся backend'у как есть.
type ExecuteRequest struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Action собирает ActionConfiguration из запроса.
func (r ExecuteRequest) Action() (domain.ActionConfiguration, error) {
	method, err := domain.ParseHTTPMethod(r.Method)
	if err != nil {
		return domain.ActionConfiguration{}, err
	}

	action := domain.ActionConfiguration{
		Method: method,
		Path:   r.Path,
		Body:   bodyText(r.Body),
	}
	if err := action.Validate(); err != nil {
		return domain.ActionConfiguration{}, err
	}
	return action, nil
}

// bodyText превращает поле body в текст запроса.
func bodyText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

// ExecuteResponse — результат синхронного выполнения.
type ExecuteResponse struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	*domain.ActionExecutionResult
}

// AsyncExecuteResponse — выполнение поставлено в очередь.
type AsyncExecuteResponse struct {
	ExecutionID uuid.UUID              `json:"execution_id"`
	Status      domain.ExecutionStatus `json:"status"`
}

// ExecutionResponse — запись журнала выполнений.
type ExecutionResponse struct {
	ID           uuid.UUID                  `json:"id"`
	DatasourceID uuid.UUID                  `json:"datasource_id"`
	Action       domain.ActionConfiguration `json:"action"`
	Status       string                     `json:"status"`
	StatusCode   int                        `json:"status_code,omitempty"`
	ErrorKind    string                     `json:"error_kind,omitempty"`
	Error        string                     `json:"error,omitempty"`
	Body         domain.Value               `json:"body"`
	DurationMs   int64                      `json:"duration_ms"`
	CreatedAt    time.Time                  `json:"created_at"`
	StartedAt    *time.Time                 `json:"started_at,omitempty"`
	FinishedAt   *time.Time                 `json:"finished_at,omitempty"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:           e.ID,
		DatasourceID: e.DatasourceID,
		Action:       e.Action,
		Status:       string(e.Status),
		StatusCode:   e.StatusCode,
		ErrorKind:    string(e.ErrorKind),
		Error:        e.Error,
		Body:         e.Body,
		DurationMs:   e.DurationMs,
		CreatedAt:    e.CreatedAt,
		StartedAt:    e.StartedAt,
		FinishedAt:   e.FinishedAt,
	}
}
