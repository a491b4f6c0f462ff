package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Elastix/internal/domain"
)

// ExecutionRepo — репозиторий журнала выполнений.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

const executionColumns = `id, datasource_id, action, status, status_code, error_kind,
		       error, body, duration_ms, created_at, started_at, finished_at`

// Create создаёт запись о выполнении.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	actionJSON, err := json.Marshal(exec.Action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	bodyJSON, err := json.Marshal(exec.Body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	query := `
		INSERT INTO executions (id, datasource_id, action, status, status_code, error_kind,
		                        error, body, duration_ms, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.DatasourceID,
		actionJSON,
		exec.Status,
		exec.StatusCode,
		nullString(string(exec.ErrorKind)),
		nullString(exec.Error),
		bodyJSON,
		exec.DurationMs,
		exec.CreatedAt,
		exec.StartedAt,
		exec.FinishedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: execution %s", ErrAlreadyExists, exec.ID)
	}
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает выполнение по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// Claim захватывает выполнение: PENDING → RUNNING.
// Из конкурирующих воркеров захват удаётся ровно одному, остальные
// получают ErrInvalidState.
func (r *ExecutionRepo) Claim(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = 'RUNNING', started_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, id, startedAt)
	if err != nil {
		return fmt.Errorf("claim execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// Update записывает результат выполнения.
// Завершить можно только захваченное выполнение (RUNNING): повторная
// доставка сообщения не перезапишет результат (ErrInvalidState).
func (r *ExecutionRepo) Update(ctx context.Context, exec *domain.Execution) error {
	bodyJSON, err := json.Marshal(exec.Body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2, status_code = $3, error_kind = $4, error = $5,
		    body = $6, duration_ms = $7, finished_at = $8
		WHERE id = $1 AND status = 'RUNNING'
	`
	result, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Status,
		exec.StatusCode,
		nullString(string(exec.ErrorKind)),
		nullString(exec.Error),
		bodyJSON,
		exec.DurationMs,
		exec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, exec.ID); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// ExecutionFilter — параметры фильтрации выполнений.
type ExecutionFilter struct {
	DatasourceID *uuid.UUID
	Status       domain.ExecutionStatus
	Limit        int
	Offset       int
}

// List возвращает выполнения, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE ($1::uuid IS NULL OR datasource_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.DatasourceID),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// ListPending возвращает выполнения в статусе PENDING, старые первыми.
func (r *ExecutionRepo) ListPending(ctx context.Context, limit int) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// FailStaleRunning завершает с ошибкой TRANSPORT выполнения, захваченные
// раньше before и так и не завершённые (воркер упал во время вызова).
// Повторно такие actions не выполняются: запрос мог дойти до backend'а.
func (r *ExecutionRepo) FailStaleRunning(ctx context.Context, before time.Time, message string) (int64, error) {
	query := `
		UPDATE executions
		SET status = 'FAILED', error_kind = $2, error = $3, finished_at = now()
		WHERE status = 'RUNNING' AND started_at < $1
	`
	result, err := r.pool.Exec(ctx, query, before, string(domain.ErrorKindTransport), message)
	if err != nil {
		return 0, fmt.Errorf("fail stale executions: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteFinishedBefore удаляет завершённые выполнения, finished_at которых
// раньше before. PENDING и RUNNING записи не удаляются.
func (r *ExecutionRepo) DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM executions
		WHERE status IN ('SUCCEEDED', 'FAILED') AND finished_at < $1
	`
	result, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete finished executions: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

func collectExecutions(rows pgx.Rows) ([]domain.Execution, error) {
	var executions []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

// scanExecution сканирует одну строку в Execution.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var actionJSON, bodyJSON []byte
	var errorKind, execError *string

	err := row.Scan(
		&exec.ID,
		&exec.DatasourceID,
		&actionJSON,
		&exec.Status,
		&exec.StatusCode,
		&errorKind,
		&execError,
		&bodyJSON,
		&exec.DurationMs,
		&exec.CreatedAt,
		&exec.StartedAt,
		&exec.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if err := json.Unmarshal(actionJSON, &exec.Action); err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	if bodyJSON != nil {
		body, err := domain.DecodeValue(bodyJSON)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		exec.Body = body
	}

	if errorKind != nil {
		exec.ErrorKind = domain.ErrorKind(*errorKind)
	}
	if execError != nil {
		exec.Error = *execError
	}

	return &exec, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
