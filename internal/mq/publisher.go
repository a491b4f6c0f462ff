package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Elastix/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeActionRequested MessageType = "action.requested"
	MessageTypeActionCompleted MessageType = "action.completed"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ActionRequestedPayload — action ожидает выполнения.
// Сам action хранится в журнале выполнений, в сообщении только ссылки.
type ActionRequestedPayload struct {
	ExecutionID  uuid.UUID `json:"execution_id"`
	DatasourceID uuid.UUID `json:"datasource_id"`
}

// ActionCompletedPayload — итог выполнения action.
type ActionCompletedPayload struct {
	ExecutionID  uuid.UUID              `json:"execution_id"`
	DatasourceID uuid.UUID              `json:"datasource_id"`
	Status       domain.ExecutionStatus `json:"status"` // SUCCEEDED или FAILED
	StatusCode   int                    `json:"status_code,omitempty"`
	ErrorKind    domain.ErrorKind       `json:"error_kind,omitempty"`
	Error        string                 `json:"error,omitempty"`
	DurationMs   int64                  `json:"duration_ms"`
}

// CompletedPayloadFor строит payload завершения из записи журнала.
func CompletedPayloadFor(exec *domain.Execution) ActionCompletedPayload {
	return ActionCompletedPayload{
		ExecutionID:  exec.ID,
		DatasourceID: exec.DatasourceID,
		Status:       exec.Status,
		StatusCode:   exec.StatusCode,
		ErrorKind:    exec.ErrorKind,
		Error:        exec.Error,
		DurationMs:   exec.DurationMs,
	}
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			publishing,
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// newPublishing сериализует сообщение в AMQP publishing.
func newPublishing(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}

// PublishActionRequested ставит выполнение в очередь.
// Потребитель: Worker.
func (p *Publisher) PublishActionRequested(ctx context.Context, executionID, datasourceID uuid.UUID) error {
	msg := NewMessage(MessageTypeActionRequested, ActionRequestedPayload{
		ExecutionID:  executionID,
		DatasourceID: datasourceID,
	})
	return p.Publish(ctx, ExchangeActions, RoutingKeyRequested, msg)
}

// PublishActionCompleted публикует итог выполнения.
func (p *Publisher) PublishActionCompleted(ctx context.Context, payload ActionCompletedPayload) error {
	msg := NewMessage(MessageTypeActionCompleted, payload)
	return p.Publish(ctx, ExchangeActions, RoutingKeyCompleted, msg)
}
