package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultCronExpr — ежедневно в 03:00.
	DefaultCronExpr = "0 3 * * *"

	// DefaultMaxAge — сколько хранятся завершённые выполнения.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// ErrInvalidCron — некорректное cron-выражение.
var ErrInvalidCron = errors.New("invalid cron expression")

// Store удаляет завершённые выполнения. Реализуется *repo.ExecutionRepo.
type Store interface {
	DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Janitor периодически чистит журнал выполнений.
type Janitor struct {
	store    Store
	cronExpr string
	maxAge   time.Duration
	logger   *slog.Logger

	// now подменяется в тестах
	now func() time.Time
}

// Config — конфигурация Janitor.
type Config struct {
	Store Store

	// CronExpr — расписание очистки (default: DefaultCronExpr).
	CronExpr string

	// MaxAge — возраст, после которого запись удаляется (default: DefaultMaxAge).
	MaxAge time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт Janitor. Возвращает ErrInvalidCron для некорректного расписания.
func New(cfg Config) (*Janitor, error) {
	cronExpr := cfg.CronExpr
	if cronExpr == "" {
		cronExpr = DefaultCronExpr
	}
	if err := ValidateCronExpr(cronExpr); err != nil {
		return nil, err
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		store:    cfg.Store,
		cronExpr: cronExpr,
		maxAge:   maxAge,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run выполняет Tick по расписанию до отмены ctx.
func (j *Janitor) Run(ctx context.Context) {
	j.logger.Info("retention janitor started", "cron", j.cronExpr, "max_age", j.maxAge)

	for {
		now := j.now()
		next, err := NextRun(j.cronExpr, now)
		if err != nil {
			// Выражение проверено в New
			j.logger.Error("failed to calculate next retention run", "error", err)
			return
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("retention janitor stopped")
			return
		case <-timer.C:
		}

		if _, err := j.Tick(ctx); err != nil {
			j.logger.Error("retention tick failed", "error", err)
		}
	}
}

// Tick удаляет выполнения, завершённые раньше now - MaxAge.
// Возвращает количество удалённых записей.
func (j *Janitor) Tick(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.maxAge)

	deleted, err := j.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete executions finished before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	j.logger.Info("retention tick completed",
		"cutoff", cutoff,
		"deleted", deleted,
	)
	return deleted, nil
}
