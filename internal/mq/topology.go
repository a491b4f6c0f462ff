package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeActions Exchange = "elastix.actions"
	ExchangeDLQ     Exchange = "elastix.dlq"
)

// Queues — имена очередей.
const (
	QueueActionsRequested Queue = "actions.requested"
	QueueActionsCompleted Queue = "actions.completed"
	QueueDLQActions       Queue = "dlq.actions"
)

// Routing keys.
const (
	RoutingKeyRequested  RoutingKey = "requested"
	RoutingKeyCompleted  RoutingKey = "completed"
	RoutingKeyDLQActions RoutingKey = "actions"
)

// exchangeDecl — объявление обменника.
type exchangeDecl struct {
	name Exchange
	kind string
}

// queueDecl — объявление очереди.
type queueDecl struct {
	name Queue
	args amqp.Table
}

// bindingDecl — привязка очереди к обменнику.
type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology — полное описание топологии Elastix.
func topology() ([]exchangeDecl, []queueDecl, []bindingDecl) {
	exchanges := []exchangeDecl{
		{ExchangeActions, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues := []queueDecl{
		// actions.requested — с DLQ: сообщения, которые не удалось
		// обработать после повторной доставки, уходят в dlq.actions
		{QueueActionsRequested, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQActions),
		}},

		// actions.completed — события завершения для внешних подписчиков
		{QueueActionsCompleted, nil},

		{QueueDLQActions, nil},
	}

	bindings := []bindingDecl{
		{QueueActionsRequested, RoutingKeyRequested, ExchangeActions},
		{QueueActionsCompleted, RoutingKeyCompleted, ExchangeActions},
		{QueueDLQActions, RoutingKeyDLQActions, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q.name), // name
				true,           // durable
				false,          // delete when unused
				false,          // exclusive
				false,          // no-wait
				q.args,         // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(b.exchange),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Elastix RabbitMQ Topology:

    elastix.actions (direct)
    ├── actions.requested [routing: requested]
    │       Consumer: Worker
    │       DLQ: dlq.actions
    └── actions.completed [routing: completed]
            Consumer: external subscribers

    elastix.dlq (direct)
    └── dlq.actions [routing: actions]
            Manual processing
  `
}
