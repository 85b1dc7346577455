// Package rabbit publica los eventos de dominio en RabbitMQ. Implementa
// queue.Publisher. Conexión por publish: simple y sin estado compartido;
// los eventos son de baja frecuencia (ciclo de vida de relaciones).
package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"pro-client-access/internal/platform/logger"
	"pro-client-access/internal/queue"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	url string
	log logger.Logger
}

func NewPublisher(url string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{url: url, log: log}
}

func (p *Publisher) PublishRelationshipActivated(ctx context.Context, ev queue.RelationshipActivatedEvent) error {
	return p.publish(ctx, queue.QueueRelationshipActivated, ev)
}

func (p *Publisher) PublishRelationshipEnded(ctx context.Context, ev queue.RelationshipEndedEvent) error {
	return p.publish(ctx, queue.QueueRelationshipEnded, ev)
}

func (p *Publisher) PublishGrantChanged(ctx context.Context, ev queue.GrantChangedEvent) error {
	return p.publish(ctx, queue.QueueGrantChanged, ev)
}

// publish declara la cola (idempotente, durable) y manda el mensaje como
// persistente. Los errores se loguean y se devuelven; el caller decide
// ignorarlos (la entrega es best-effort).
func (p *Publisher) publish(ctx context.Context, queueName string, ev any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", map[string]any{"err": err.Error()})
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", map[string]any{"err": err.Error()})
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		p.log.Warn("rabbitmq queue declare failed", map[string]any{"queue": queueName, "err": err.Error()})
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		p.log.Warn("rabbitmq publish failed", map[string]any{"queue": queueName, "err": err.Error()})
		return err
	}
	return nil
}
