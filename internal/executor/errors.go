package executor

import (
	"errors"

	"github.com/shaiso/Elastix/internal/domain"
)

// Ошибки executor'а.
var (
	// ErrInvalidAction — action не прошёл валидацию.
	ErrInvalidAction = errors.New("invalid action")

	// ErrConnection — не удалось получить подключение к datasource.
	ErrConnection = errors.New("connection error")

	// ErrTransport — сетевая ошибка или таймаут.
	ErrTransport = errors.New("transport error")

	// ErrBackend — backend вернул ошибку.
	ErrBackend = errors.New("backend error")

	// ErrDecode — тело ответа не разбирается.
	ErrDecode = errors.New("decode error")
)

// ExecutionError — ошибка выполнения с категорией.
type ExecutionError struct {
	Kind       domain.ErrorKind
	StatusCode int
	Body       domain.Value
	Err        error
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

// Unwrap возвращает исходную ошибку.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// sentinelFor возвращает sentinel-ошибку для категории.
func sentinelFor(kind domain.ErrorKind) error {
	switch kind {
	case domain.ErrorKindValidation:
		return ErrInvalidAction
	case domain.ErrorKindConnection:
		return ErrConnection
	case domain.ErrorKindTransport:
		return ErrTransport
	case domain.ErrorKindBackend:
		return ErrBackend
	case domain.ErrorKindDecode:
		return ErrDecode
	default:
		return nil
	}
}

// ResultError возвращает error для неуспешного результата (nil для успешного).
// errors.Is(err, ErrBackend) и т.п. работают по ErrorKind.
func ResultError(result *domain.ActionExecutionResult) error {
	if result == nil || result.IsExecutionSuccess {
		return nil
	}
	sentinel := sentinelFor(result.ErrorKind)
	if sentinel == nil {
		sentinel = errors.New("execution failed")
	}
	return &ExecutionError{
		Kind:       result.ErrorKind,
		StatusCode: result.StatusCode,
		Body:       result.Body,
		Err:        &resultMessage{msg: result.ErrorMessage, sentinel: sentinel},
	}
}

// resultMessage сохраняет исходное сообщение и цепочку до sentinel.
type resultMessage struct {
	msg      string
	sentinel error
}

func (m *resultMessage) Error() string { return m.msg }
func (m *resultMessage) Unwrap() error { return m.sentinel }
