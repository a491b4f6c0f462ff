package domain

import (
	"fmt"
	"strings"
)

// HTTPMethod — HTTP-метод action.
//
// Закрытое перечисление: любые значения кроме констант ниже
// отклоняются при валидации.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodDelete HTTPMethod = "DELETE"
	MethodHead   HTTPMethod = "HEAD"
	MethodPatch  HTTPMethod = "PATCH"
)

// Methods возвращает все поддерживаемые методы.
func Methods() []HTTPMethod {
	return []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodDelete, MethodHead, MethodPatch}
}

// ParseHTTPMethod разбирает метод без учёта регистра.
func ParseHTTPMethod(s string) (HTTPMethod, error) {
	m := HTTPMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
	return m, nil
}

// IsValid проверяет, что метод поддерживается.
func (m HTTPMethod) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodHead, MethodPatch:
		return true
	default:
		return false
	}
}

// AllowsBody возвращает false для методов, которые не передают тело.
func (m HTTPMethod) AllowsBody() bool {
	switch m {
	case MethodHead:
		return false
	default:
		return true
	}
}

// UnmarshalText нормализует регистр метода при разборе JSON.
func (m *HTTPMethod) UnmarshalText(text []byte) error {
	*m = HTTPMethod(strings.ToUpper(strings.TrimSpace(string(text))))
	return nil
}

// ActionConfiguration — описание одного вызова backend'а.
//
// Создаётся на каждый вызов и после создания не меняется.
type ActionConfiguration struct {
	// Method — HTTP-метод.
	Method HTTPMethod `json:"method"`

	// Path — путь ресурса (например, "/planets/_doc/id1" или "/_bulk?refresh=true").
	// Передаётся backend'у как есть.
	Path string `json:"path"`

	// Body — тело запроса: JSON, JSON-массив или NDJSON.
	// Executor не проверяет корректность JSON.
	Body string `json:"body,omitempty"`
}

// HasBody проверяет, задано ли тело запроса.
func (a ActionConfiguration) HasBody() bool {
	return strings.TrimSpace(a.Body) != ""
}

// Validate проверяет метод и путь.
func (a ActionConfiguration) Validate() error {
	if !a.Method.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(a.Method))
	}
	if strings.TrimSpace(a.Path) == "" {
		return ErrEmptyPath
	}
	if a.HasBody() && !a.Method.AllowsBody() {
		return fmt.Errorf("%w: %s", ErrBodyNotAllowed, a.Method)
	}
	return nil
}
