// Package mq предоставляет инфраструктуру RabbitMQ для асинхронного
// выполнения actions.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - action.requested — action поставлен в очередь на выполнение
//   - action.completed — action выполнен (успешно или нет)
//
// Exchanges:
//   - elastix.actions — события actions
//   - elastix.dlq     — dead letter queue
package mq
