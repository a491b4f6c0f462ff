package domain

// ErrorKind — категория неудачного выполнения action.
type ErrorKind string

const (
	// ErrorKindValidation — action невалиден (метод, path), запрос не отправлялся.
	ErrorKindValidation ErrorKind = "VALIDATION"

	// ErrorKindConnection — не удалось получить или открыть подключение.
	ErrorKindConnection ErrorKind = "CONNECTION"

	// ErrorKindTransport — сетевая ошибка, таймаут или отмена.
	ErrorKindTransport ErrorKind = "TRANSPORT"

	// ErrorKindBackend — backend вернул статус не из 2xx.
	ErrorKindBackend ErrorKind = "BACKEND"

	// ErrorKindDecode — тело ответа не разбирается как ожидаемый JSON.
	ErrorKindDecode ErrorKind = "DECODE"
)

// ActionExecutionResult — нормализованный результат одного вызова.
//
// Создаётся ровно один раз на каждый вызов Execute.
type ActionExecutionResult struct {
	// IsExecutionSuccess — true, если backend подтвердил успех.
	IsExecutionSuccess bool `json:"is_execution_success"`

	// Body — разобранный ответ. При ошибке — null или диагностика backend'а.
	Body Value `json:"body"`

	// StatusCode — HTTP-статус ответа (0, если ответа не было).
	StatusCode int `json:"status_code,omitempty"`

	// ErrorKind — категория ошибки (пусто при успехе).
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// ErrorMessage — человекочитаемое описание ошибки.
	ErrorMessage string `json:"error_message,omitempty"`

	// DurationMs — длительность вызова в миллисекундах.
	DurationMs int64 `json:"duration_ms"`
}

// NewSuccessResult создаёт успешный результат.
func NewSuccessResult(statusCode int, body Value) *ActionExecutionResult {
	return &ActionExecutionResult{
		IsExecutionSuccess: true,
		Body:               body,
		StatusCode:         statusCode,
	}
}

// NewFailureResult создаёт результат с ошибкой.
func NewFailureResult(kind ErrorKind, statusCode int, body Value, message string) *ActionExecutionResult {
	return &ActionExecutionResult{
		IsExecutionSuccess: false,
		Body:               body,
		StatusCode:         statusCode,
		ErrorKind:          kind,
		ErrorMessage:       message,
	}
}
