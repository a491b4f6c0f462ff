package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Elastix/internal/connection"
	"github.com/shaiso/Elastix/internal/domain"
	"github.com/shaiso/Elastix/internal/telemetry"
)

const (
	// DefaultMaxResponseBody — максимальный размер тела ответа.
	DefaultMaxResponseBody = 10 * 1024 * 1024 // 10 MB

	// maxMessageBody — сколько байт сырого ответа попадает в сообщение об ошибке.
	maxMessageBody = 200
)

// Executor выполняет actions на Elasticsearch datasources.
//
// Stateless и потокобезопасен: каждый вызов Execute — независимый
// цикл запрос/ответ. Порядок конкурентных вызовов на одном
// подключении не гарантируется.
type Executor struct {
	provider        connection.Provider
	clientOptions   connection.Options
	maxResponseBody int64
	logger          *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	// Provider выдаёт подключение, если Execute вызван без него.
	Provider connection.Provider

	// ClientOptions — параметры одноразовых клиентов для TestDatasource.
	ClientOptions connection.Options

	// MaxResponseBody — лимит тела ответа (default: 10 MB).
	MaxResponseBody int64

	// Logger
	Logger *slog.Logger
}

// New создаёт Executor.
func New(cfg Config) *Executor {
	maxBody := cfg.MaxResponseBody
	if maxBody <= 0 {
		maxBody = DefaultMaxResponseBody
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		provider:        cfg.Provider,
		clientOptions:   cfg.ClientOptions,
		maxResponseBody: maxBody,
		logger:          logger,
	}
}

// Run выполняет action, получая подключение у провайдера.
func (e *Executor) Run(ctx context.Context, dsCfg domain.DatasourceConfiguration, action domain.ActionConfiguration) *domain.ActionExecutionResult {
	return e.Execute(ctx, nil, dsCfg, action)
}

// Execute выполняет один action.
//
// conn — подключение, выданное провайдером для dsCfg; если nil,
// подключение запрашивается у провайдера. Всегда возвращает ровно
// один результат, никогда не возвращает nil.
func (e *Executor) Execute(ctx context.Context, conn *connection.Client, dsCfg domain.DatasourceConfiguration, action domain.ActionConfiguration) *domain.ActionExecutionResult {
	start := time.Now()

	var result *domain.ActionExecutionResult
	status, body, err := e.execute(ctx, conn, dsCfg, action)
	if err != nil {
		var execErr *ExecutionError
		if !errors.As(err, &execErr) {
			execErr = &ExecutionError{Kind: domain.ErrorKindTransport, Err: err}
		}
		result = domain.NewFailureResult(execErr.Kind, execErr.StatusCode, execErr.Body, execErr.Error())
	} else {
		result = domain.NewSuccessResult(status, body)
	}

	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	telemetry.ObserveAction(string(action.Method), result.IsExecutionSuccess, string(result.ErrorKind), elapsed)

	logger := telemetry.FromContextOr(ctx, e.logger)
	if result.IsExecutionSuccess {
		logger.Debug("action executed",
			"method", action.Method,
			"path", action.Path,
			"status_code", result.StatusCode,
			"duration", elapsed,
		)
	} else {
		logger.Warn("action failed",
			"method", action.Method,
			"path", action.Path,
			"status_code", result.StatusCode,
			"error_kind", result.ErrorKind,
			"error", result.ErrorMessage,
			"duration", elapsed,
		)
	}

	return result
}

// execute выполняет запрос и возвращает статус с разобранным телом
// или *ExecutionError.
func (e *Executor) execute(ctx context.Context, conn *connection.Client, dsCfg domain.DatasourceConfiguration, action domain.ActionConfiguration) (int, domain.Value, error) {
	if err := action.Validate(); err != nil {
		return 0, domain.Value{}, &ExecutionError{
			Kind: domain.ErrorKindValidation,
			Err:  fmt.Errorf("%w: %v", ErrInvalidAction, err),
		}
	}

	// Подключение
	if conn == nil {
		c, err := e.connect(ctx, dsCfg)
		if err != nil {
			return 0, domain.Value{}, err
		}
		conn = c
	}

	// Запрос
	payload, contentType := prepareBody(action)
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	resp, err := conn.Do(ctx, string(action.Method), action.Path, bodyReader, contentType)
	if err != nil {
		if errors.Is(err, connection.ErrClientClosed) {
			return 0, domain.Value{}, &ExecutionError{
				Kind: domain.ErrorKindConnection,
				Err:  fmt.Errorf("%w: %v", ErrConnection, err),
			}
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return 0, domain.Value{}, &ExecutionError{
			Kind: domain.ErrorKindTransport,
			Err:  fmt.Errorf("%w: %v", ErrTransport, err),
		}
	}
	defer resp.Body.Close()

	// Ответ с ограничением размера
	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.maxResponseBody+1))
	if err != nil {
		return resp.StatusCode, domain.Value{}, &ExecutionError{
			Kind:       domain.ErrorKindTransport,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: read response: %v", ErrTransport, err),
		}
	}
	if int64(len(raw)) > e.maxResponseBody {
		return resp.StatusCode, domain.Value{}, &ExecutionError{
			Kind:       domain.ErrorKindDecode,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: response body exceeds %d bytes", ErrDecode, e.maxResponseBody),
		}
	}

	decoded, decodeErr := decodeResponse(resp.Header.Get("Content-Type"), raw)

	if isSuccessStatus(action.Method, resp.StatusCode) {
		if decodeErr != nil {
			return resp.StatusCode, domain.Value{}, &ExecutionError{
				Kind:       domain.ErrorKindDecode,
				StatusCode: resp.StatusCode,
				Err:        decodeErr,
			}
		}
		return resp.StatusCode, decoded, nil
	}

	// Статус не из 2xx: тело — диагностика backend'а
	if decodeErr != nil {
		decoded = domain.StringValue(truncate(string(raw), maxMessageBody))
	} else if text, ok := decoded.AsString(); ok {
		decoded = domain.StringValue(truncate(text, maxMessageBody))
	}
	return resp.StatusCode, domain.Value{}, &ExecutionError{
		Kind:       domain.ErrorKindBackend,
		StatusCode: resp.StatusCode,
		Body:       decoded,
		Err:        fmt.Errorf("%w: %s", ErrBackend, backendMessage(resp.StatusCode, decoded)),
	}
}

// connect получает подключение у провайдера.
func (e *Executor) connect(ctx context.Context, dsCfg domain.DatasourceConfiguration) (*connection.Client, error) {
	if e.provider == nil {
		return nil, &ExecutionError{
			Kind: domain.ErrorKindConnection,
			Err:  fmt.Errorf("%w: no connection provider configured", ErrConnection),
		}
	}

	conn, err := e.provider.Create(ctx, dsCfg)
	if err != nil {
		return nil, &ExecutionError{
			Kind: domain.ErrorKindConnection,
			Err:  fmt.Errorf("%w: %v", ErrConnection, err),
		}
	}
	if conn == nil {
		return nil, &ExecutionError{
			Kind: domain.ErrorKindConnection,
			Err:  fmt.Errorf("%w: provider returned no client", ErrConnection),
		}
	}
	return conn, nil
}

// isSuccessStatus — 2xx, а также 404 на HEAD (проверка существования:
// ответ "нет" — это валидный результат, а не ошибка).
func isSuccessStatus(method domain.HTTPMethod, statusCode int) bool {
	if statusCode >= 200 && statusCode < 300 {
		return true
	}
	return method == domain.MethodHead && statusCode == http.StatusNotFound
}
