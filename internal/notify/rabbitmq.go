package notify

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"go.uber.org/zap"
)

// RabbitMQPublisher sends persistent messages to a durable queue.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *zap.SugaredLogger
}

func NewRabbitMQPublisher(url, queue string, logger *zap.SugaredLogger) (*RabbitMQPublisher, error) {
	var conn *amqp.Connection
	var err error
	// broker may still be starting
	for i := 0; i < 10; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warnf("connect rabbitmq, retrying in 2s (%d/10): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitMQPublisher{conn: conn, channel: ch, queue: queue, log: logger}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, evt model.OutboxEvent) error {
	err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		MessageId:    evt.ID.String(),
		Type:         evt.EventType,
		ContentType:  "application/json",
		Body:         []byte(evt.Payload),
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}
	p.log.Debugf("published %s to queue %s", evt.ID, p.queue)
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
