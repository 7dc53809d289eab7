package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher sends JSON messages to durable queues over one channel.
type RabbitPublisher struct {
	conn              *amqp.Connection
	ch                *amqp.Channel
	mu                sync.Mutex
	generationQueue   string
	notificationQueue string
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return conn, nil
}

func NewRabbitPublisher(conn *amqp.Connection, generationQueue, notificationQueue string) (*RabbitPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	for _, name := range []string{generationQueue, notificationQueue} {
		_, err = ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("failed to declare queue %q: %w", name, err)
		}
	}

	slog.Info("rabbitmq queues declared", "generation", generationQueue, "notifications", notificationQueue)

	return &RabbitPublisher{
		conn:              conn,
		ch:                ch,
		generationQueue:   generationQueue,
		notificationQueue: notificationQueue,
	}, nil
}

func (p *RabbitPublisher) PublishGeneration(ctx context.Context, task GenerationTask) error {
	return p.publish(ctx, p.generationQueue, task.TaskID.String(), task)
}

func (p *RabbitPublisher) PublishNotification(ctx context.Context, n Notification) error {
	return p.publish(ctx, p.notificationQueue, uuid.NewString(), n)
}

func (p *RabbitPublisher) publish(ctx context.Context, queueName, messageID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", queueName, err)
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
