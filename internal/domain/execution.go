package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus — статус записи о выполнении.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// RUNNING — выполнение захвачено воркером; захват происходит до вызова
// backend'а, поэтому action уходит на backend не более одного раза.
// Синхронные вызовы сразу создаются в финальном статусе.
type ExecutionStatus string

const (
	// ExecutionStatusPending — запрос принят, ждёт воркера.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — воркер выполняет action.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSucceeded — action выполнен успешно.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — action завершился ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true для финальных статусов.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус известен.
func (s ExecutionStatus) IsValid() bool {
	switch s {
	case ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusSucceeded, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// Execution — запись журнала выполнений.
type Execution struct {
	// ID — уникальный идентификатор выполнения.
	ID uuid.UUID `json:"id"`

	// DatasourceID — datasource, на котором выполнялся action.
	DatasourceID uuid.UUID `json:"datasource_id"`

	// Action — что выполнялось.
	Action ActionConfiguration `json:"action"`

	// Status — текущий статус.
	Status ExecutionStatus `json:"status"`

	// StatusCode — HTTP-статус ответа backend'а.
	StatusCode int `json:"status_code,omitempty"`

	// ErrorKind — категория ошибки.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Error — текст ошибки.
	Error string `json:"error,omitempty"`

	// Body — разобранный ответ backend'а.
	Body Value `json:"body"`

	// DurationMs — длительность вызова.
	DurationMs int64 `json:"duration_ms"`

	// CreatedAt — время приёма запроса.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время захвата воркером.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewExecution создаёт запись в статусе PENDING.
func NewExecution(datasourceID uuid.UUID, action ActionConfiguration) *Execution {
	return &Execution{
		ID:           uuid.New(),
		DatasourceID: datasourceID,
		Action:       action,
		Status:       ExecutionStatusPending,
		CreatedAt:    time.Now(),
	}
}

// MarkRunning переводит выполнение в RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// Complete переносит результат выполнения в запись.
func (e *Execution) Complete(result *ActionExecutionResult) {
	now := time.Now()
	e.FinishedAt = &now
	e.StatusCode = result.StatusCode
	e.Body = result.Body
	e.DurationMs = result.DurationMs
	e.ErrorKind = result.ErrorKind
	e.Error = result.ErrorMessage

	if result.IsExecutionSuccess {
		e.Status = ExecutionStatusSucceeded
	} else {
		e.Status = ExecutionStatusFailed
	}
}

// Result восстанавливает результат из журнала.
func (e *Execution) Result() *ActionExecutionResult {
	return &ActionExecutionResult{
		IsExecutionSuccess: e.Status == ExecutionStatusSucceeded,
		Body:               e.Body,
		StatusCode:         e.StatusCode,
		ErrorKind:          e.ErrorKind,
		ErrorMessage:       e.Error,
		DurationMs:         e.DurationMs,
	}
}
