// Package notify publishes terminal pipeline events to external systems.
package notify

import (
	"context"
	"fmt"

	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"go.uber.org/zap"
)

// Publisher delivers one outbox event to a notification sink.
type Publisher interface {
	Publish(ctx context.Context, evt model.OutboxEvent) error
	Close() error
}

// LogPublisher only logs; used when no broker is configured.
type LogPublisher struct {
	log *zap.SugaredLogger
}

func NewLogPublisher(logger *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{log: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt model.OutboxEvent) error {
	p.log.Infow("notification", "event_id", evt.ID, "event_type", evt.EventType, "payload", evt.Payload)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Config selects and configures the sink.
type Config struct {
	Driver      string
	KafkaBroker []string
	KafkaTopic  string
	RabbitURL   string
	RabbitQueue string
}

// New builds the publisher named by cfg.Driver ("kafka", "rabbitmq" or "log").
func New(cfg Config, logger *zap.SugaredLogger) (Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return NewKafkaPublisher(NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic)), nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitURL, cfg.RabbitQueue, logger)
	case "", "log":
		return NewLogPublisher(logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*RabbitMQPublisher)(nil)
)
