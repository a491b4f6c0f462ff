package connection

import "errors"

// Ошибки подключения.
var (
	// ErrInvalidConfig — конфигурация datasource не прошла валидацию.
	ErrInvalidConfig = errors.New("invalid datasource configuration")

	// ErrUnreachable — backend не ответил на ping.
	ErrUnreachable = errors.New("datasource unreachable")

	// ErrClientClosed — клиент закрыт провайдером.
	ErrClientClosed = errors.New("connection client closed")

	// ErrPoolClosed — пул закрыт, новые клиенты не выдаются.
	ErrPoolClosed = errors.New("connection pool closed")
)
