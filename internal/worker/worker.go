package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Elastix/internal/domain"
	"github.com/shaiso/Elastix/internal/mq"
	"github.com/shaiso/Elastix/internal/repo"
	"github.com/shaiso/Elastix/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
	defaultPendingGrace = 30 * time.Second

	// defaultRunningTimeout должен превышать таймаут запроса к datasource.
	defaultRunningTimeout = 10 * time.Minute
)

// staleRunningMessage — ошибка выполнений, брошенных упавшим воркером.
const staleRunningMessage = "execution abandoned by worker: outcome unknown"

// ExecutionStore — журнал выполнений.
type ExecutionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	Claim(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	Update(ctx context.Context, exec *domain.Execution) error
	ListPending(ctx context.Context, limit int) ([]domain.Execution, error)
	FailStaleRunning(ctx context.Context, before time.Time, message string) (int64, error)
}

// DatasourceStore — источник конфигураций datasources.
type DatasourceStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Datasource, error)
}

// ActionRunner выполняет action. Реализуется *executor.Executor.
type ActionRunner interface {
	Run(ctx context.Context, cfg domain.DatasourceConfiguration, action domain.ActionConfiguration) *domain.ActionExecutionResult
}

// CompletionPublisher публикует итог выполнения. Реализуется *mq.Publisher.
type CompletionPublisher interface {
	PublishActionCompleted(ctx context.Context, payload mq.ActionCompletedPayload) error
}

// Worker выполняет отложенные actions.
type Worker struct {
	executions  ExecutionStore
	datasources DatasourceStore
	executor    ActionRunner
	publisher   CompletionPublisher
	conn        *mq.Connection

	consumer *mq.Consumer

	pollInterval   time.Duration
	batchSize      int
	pendingGrace   time.Duration
	runningTimeout time.Duration

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Repositories
	Executions  ExecutionStore
	Datasources DatasourceStore

	// Executor выполняет actions.
	Executor ActionRunner

	// MQ (опционально; без Conn — только polling)
	Publisher CompletionPublisher
	Conn      *mq.Connection

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // выполнений за один poll (default: 50)
	PendingGrace time.Duration // polling не трогает более свежие выполнения (default: 30s, <0 — без задержки)

	// RunningTimeout — через сколько RUNNING-выполнение считается брошенным (default: 10m)
	RunningTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	pendingGrace := cfg.PendingGrace
	if pendingGrace < 0 {
		pendingGrace = 0
	} else if pendingGrace == 0 {
		pendingGrace = defaultPendingGrace
	}

	runningTimeout := cfg.RunningTimeout
	if runningTimeout <= 0 {
		runningTimeout = defaultRunningTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		executions:     cfg.Executions,
		datasources:    cfg.Datasources,
		executor:       cfg.Executor,
		publisher:      cfg.Publisher,
		conn:           cfg.Conn,
		pollInterval:   pollInterval,
		batchSize:      batchSize,
		pendingGrace:   pendingGrace,
		runningTimeout: runningTimeout,
		logger:         logger,
	}
}

// Start запускает consumer actions.requested (если есть Conn) и polling.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"pending_grace", w.pendingGrace,
		"running_timeout", w.runningTimeout,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueActionsRequested,
			Handler:  w.handleActionRequested,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("action consumer error", "error", err)
			}
		}()
	} else {
		w.logger.Warn("no RabbitMQ connection, running in polling-only mode")
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения горутин.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл polling.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем выполнения, принятые пока worker был выключен
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll завершает брошенные RUNNING-выполнения и обрабатывает
// PENDING-выполнения старше pendingGrace.
func (w *Worker) poll(ctx context.Context) {
	w.failStaleRunning(ctx)

	pending, err := w.executions.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list pending executions", "error", err)
		return
	}

	cutoff := time.Now().Add(-w.pendingGrace)
	processed := 0

	for i := range pending {
		if ctx.Err() != nil {
			return
		}

		exec := &pending[i]
		// Свежие выполнения ещё в очереди — их обработает consumer
		if exec.CreatedAt.After(cutoff) {
			continue
		}

		err := w.processExecution(ctx, exec.ID)
		if err != nil && !isSkippable(err) {
			w.logger.Error("failed to process execution from poll",
				"execution_id", exec.ID,
				"error", err,
			)
		}
		processed++
	}

	if processed > 0 {
		w.logger.Debug("poll processed pending executions", "count", processed)
	}
}

// failStaleRunning завершает выполнения, захваченные дольше runningTimeout назад.
func (w *Worker) failStaleRunning(ctx context.Context) {
	before := time.Now().Add(-w.runningTimeout)
	count, err := w.executions.FailStaleRunning(ctx, before, staleRunningMessage)
	if err != nil {
		w.logger.Error("failed to fail stale running executions", "error", err)
		return
	}
	if count > 0 {
		w.logger.Warn("stale running executions marked failed", "count", count)
	}
}

// handleActionRequested обрабатывает action.requested из очереди.
func (w *Worker) handleActionRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ActionRequestedPayload](&delivery.Message)
	if err != nil {
		return fmt.Errorf("%w: parse action.requested: %v", mq.ErrPermanent, err)
	}
	if payload.ExecutionID == uuid.Nil {
		return fmt.Errorf("%w: action.requested without execution_id", mq.ErrPermanent)
	}

	if err := w.processExecution(ctx, payload.ExecutionID); err != nil {
		if isSkippable(err) {
			w.logger.Debug("execution not processed",
				"execution_id", payload.ExecutionID,
				"reason", err,
			)
			return nil
		}
		return err
	}
	return nil
}

// isSkippable — ожидаемые ситуации, после которых сообщение подтверждается.
func isSkippable(err error) bool {
	return errors.Is(err, ErrExecutionNotFound) || errors.Is(err, ErrExecutionNotPending)
}

// processExecution загружает выполнение, захватывает его, выполняет action
// и записывает результат.
func (w *Worker) processExecution(ctx context.Context, executionID uuid.UUID) error {
	// 1. Загружаем выполнение
	exec, err := w.executions.GetByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return fmt.Errorf("get execution: %w", err)
	}

	// 2. Проверяем статус
	if exec.Status != domain.ExecutionStatusPending {
		return ErrExecutionNotPending
	}

	logger := telemetry.WithDatasourceID(telemetry.WithExecutionID(w.logger, exec.ID.String()), exec.DatasourceID.String())

	// 3. Загружаем datasource до захвата: ошибка БД оставляет выполнение в PENDING
	ds, err := w.datasources.GetByID(ctx, exec.DatasourceID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("get datasource: %w", err)
	}

	// 4. Захватываем: только один воркер доходит до backend'а
	exec.MarkRunning()
	if err := w.executions.Claim(ctx, exec.ID, *exec.StartedAt); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrExecutionNotPending
		}
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, exec.ID)
		}
		return fmt.Errorf("claim execution: %w", err)
	}

	// 5. Выполняем
	var result *domain.ActionExecutionResult
	if ds == nil {
		// Удалённый datasource — логическая ошибка выполнения
		msg := fmt.Sprintf("%v: %s", ErrDatasourceNotFound, exec.DatasourceID)
		result = domain.NewFailureResult(domain.ErrorKindConnection, 0, domain.NullValue(), msg)
	} else {
		result = w.executor.Run(telemetry.WithLogger(ctx, logger), ds.Config, exec.Action)
	}

	// 6. Записываем результат; отмена ctx не должна терять итог вызова
	exec.Complete(result)
	if err := w.executions.Update(context.WithoutCancel(ctx), exec); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrExecutionNotPending
		}
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, exec.ID)
		}
		return fmt.Errorf("update execution: %w", err)
	}

	if result.IsExecutionSuccess {
		logger.Info("execution succeeded",
			"method", exec.Action.Method,
			"path", exec.Action.Path,
			"status_code", exec.StatusCode,
			"duration_ms", exec.DurationMs,
		)
	} else {
		logger.Warn("execution failed",
			"method", exec.Action.Method,
			"path", exec.Action.Path,
			"error_kind", exec.ErrorKind,
			"error", exec.Error,
		)
	}

	w.publishCompletion(ctx, exec)
	return nil
}

// publishCompletion публикует action.completed.
func (w *Worker) publishCompletion(ctx context.Context, exec *domain.Execution) {
	if w.publisher == nil {
		return
	}

	if err := w.publisher.PublishActionCompleted(ctx, mq.CompletedPayloadFor(exec)); err != nil {
		// Результат уже в БД, событие — только уведомление
		w.logger.Warn("failed to publish action.completed",
			"execution_id", exec.ID,
			"error", err,
		)
	}
}
