package worker

import "errors"

// Ошибки воркера.
var (
	// ErrExecutionNotFound — выполнение не найдено в БД.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionNotPending — выполнение уже захвачено или завершено.
	ErrExecutionNotPending = errors.New("execution is not in PENDING status")

	// ErrDatasourceNotFound — datasource выполнения удалён.
	ErrDatasourceNotFound = errors.New("datasource not found")
)
