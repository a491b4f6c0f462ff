package domain

import "errors"

// Ошибки валидации доменных объектов.
var (
	// ErrUnsupportedMethod — HTTP-метод не входит в поддерживаемый набор.
	ErrUnsupportedMethod = errors.New("unsupported http method")

	// ErrEmptyPath — у action не указан path.
	ErrEmptyPath = errors.New("action path is required")

	// ErrBodyNotAllowed — метод не допускает тело запроса (HEAD).
	ErrBodyNotAllowed = errors.New("request body is not allowed for this method")

	// ErrInvalidDatasource — конфигурация datasource невалидна.
	ErrInvalidDatasource = errors.New("invalid datasource configuration")
)
