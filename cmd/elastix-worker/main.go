// Elastix Worker — выполняет асинхронные actions.
//
// Worker:
//   - Получает action.requested из RabbitMQ
//   - Подбирает зависшие PENDING выполнения через polling
//   - Захватывает выполнение (RUNNING) до вызова backend'а
//   - Завершает с ошибкой RUNNING выполнения, брошенные упавшим воркером
//   - Записывает результат и публикует action.completed
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Elastix/internal/connection"
	"github.com/shaiso/Elastix/internal/executor"
	"github.com/shaiso/Elastix/internal/mq"
	"github.com/shaiso/Elastix/internal/repo"
	"github.com/shaiso/Elastix/internal/retention"
	"github.com/shaiso/Elastix/internal/telemetry"
	"github.com/shaiso/Elastix/internal/worker"
)

func main() {
	envErr := godotenv.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger("elastix-worker")
	logger.Info("starting elastix-worker")
	if envErr == nil {
		logger.Info("loaded .env")
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	connections := connection.NewPool(connection.PoolConfig{
		Options: connection.Options{DefaultTimeout: envSeconds("ELASTIX_DEFAULT_TIMEOUT_SEC", 30)},
		Logger:  logger,
	})
	defer connections.Close()

	executions := repo.NewExecutionRepo(pool)

	cfg := worker.Config{
		Executions:     executions,
		Datasources:    repo.NewDatasourceRepo(pool),
		Executor:       executor.New(executor.Config{Provider: connections, Logger: logger}),
		PollInterval:   envSeconds("WORKER_POLL_INTERVAL_SEC", 10),
		PendingGrace:   envSeconds("WORKER_PENDING_GRACE_SEC", 30),
		RunningTimeout: envSeconds("WORKER_RUNNING_TIMEOUT_SEC", 600),
		Logger:         logger,
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(mq.ConnectionConfig{Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		cfg.Conn = mqConn
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	w := worker.New(cfg)

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// Очистка журнала выполнений; EXECUTION_RETENTION_DAYS=0 отключает её
	if days := envInt("EXECUTION_RETENTION_DAYS", 30); days > 0 {
		janitor, err := retention.New(retention.Config{
			Store:    executions,
			CronExpr: os.Getenv("EXECUTION_RETENTION_CRON"),
			MaxAge:   time.Duration(days) * 24 * time.Hour,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("invalid retention schedule", "error", err)
			os.Exit(1)
		}
		go janitor.Run(ctx)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("elastix-worker stopped")
}

// envSeconds читает длительность в секундах из переменной окружения.
func envSeconds(key string, def int) time.Duration {
	if n := envInt(key, def); n > 0 {
		return time.Duration(n) * time.Second
	}
	return time.Duration(def) * time.Second
}

// envInt читает неотрицательное целое из переменной окружения.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
