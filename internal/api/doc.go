// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go            — Handler с DI (хранилища, executor, publisher, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (logging, metrics, recovery)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - datasource_handler.go — обработчики для /datasources
//   - execution_handler.go  — выполнение actions и журнал /executions
//
// API предоставляет REST endpoints для управления datasources
// и выполнения actions на них.
package api
