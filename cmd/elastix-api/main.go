// Elastix API — HTTP API для datasources и выполнения actions.
//
// API:
//   - Хранит datasources и журнал выполнений в PostgreSQL
//   - Выполняет actions синхронно через пул подключений
//   - Ставит асинхронные выполнения в RabbitMQ (опционально)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Elastix/internal/api"
	"github.com/shaiso/Elastix/internal/connection"
	"github.com/shaiso/Elastix/internal/executor"
	"github.com/shaiso/Elastix/internal/mq"
	"github.com/shaiso/Elastix/internal/repo"
	"github.com/shaiso/Elastix/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// .env опционален; переменные окружения имеют приоритет
	envErr := godotenv.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger("elastix-api")
	logger.Info("starting elastix-api")
	if envErr == nil {
		logger.Info("loaded .env")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Пул подключений к Elasticsearch
	connections := connection.NewPool(connection.PoolConfig{
		Options: connection.Options{DefaultTimeout: envSeconds("ELASTIX_DEFAULT_TIMEOUT_SEC", 30)},
		Logger:  logger,
	})
	defer connections.Close()

	exec := executor.New(executor.Config{
		Provider:      connections,
		ClientOptions: connection.Options{DefaultTimeout: envSeconds("ELASTIX_TEST_TIMEOUT_SEC", 5)},
		Logger:        logger,
	})

	cfg := api.Config{
		Datasources: repo.NewDatasourceRepo(pool),
		Executions:  repo.NewExecutionRepo(pool),
		Executor:    exec,
		Connections: connections,
		Logger:      logger,
	}

	// RabbitMQ опционален: без него асинхронные выполнения подбирает polling воркера
	mqConn, err := mq.NewConnection(mq.ConnectionConfig{Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, async executions will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	handler := api.NewHandler(cfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// envSeconds читает длительность в секундах из переменной окружения.
func envSeconds(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(def) * time.Second
}
