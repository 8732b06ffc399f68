package pulsar

import (
	"context"
	"errors"
	"fmt"

	"github.com/anhhuy04/ai-lms-prd/internal/queue"
)

// Queue implements queue.Queue using Pulsar
type Queue struct {
	producer *Producer
	consumer *Consumer
}

// NewQueue creates a new Pulsar queue with both producer and consumer
func NewQueue(url, topic, subscriptionName string) (*Queue, error) {
	producer, err := NewProducer(url, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	consumer, err := NewConsumer(url, topic, subscriptionName)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	return &Queue{
		producer: producer,
		consumer: consumer,
	}, nil
}

// PublishJob publishes a seeding job to Pulsar
func (q *Queue) PublishJob(ctx context.Context, job *queue.Job) error {
	return q.producer.PublishJob(ctx, job)
}

// Consume starts consuming jobs from Pulsar
func (q *Queue) Consume(ctx context.Context, handler queue.JobHandler) error {
	return q.consumer.Consume(ctx, handler)
}

// Close closes both producer and consumer
func (q *Queue) Close() error {
	if err := errors.Join(q.producer.Close(), q.consumer.Close()); err != nil {
		return fmt.Errorf("errors closing queue: %w", err)
	}
	return nil
}
