package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer implements queue.Producer using Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishJob publishes a seeding job to Kafka, keyed by job ID
func (p *Producer) PublishJob(ctx context.Context, job *queue.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(job.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "job-id", Value: []byte(job.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish job to Kafka: %w", err)
	}

	logger.Infof("Published seed job %s to Kafka topic %s", job.ID, p.topic)
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
