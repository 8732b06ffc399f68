package pulsar

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
)

type messageSender interface {
	Send(ctx context.Context, msg *pulsar.ProducerMessage) (pulsar.MessageID, error)
	Close()
}

// Producer implements queue.Producer using Pulsar
type Producer struct {
	client   pulsar.Client
	producer messageSender
	topic    string
}

// NewProducer creates a new Pulsar producer
func NewProducer(url, topic string) (*Producer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create Pulsar producer: %w", err)
	}

	return &Producer{
		client:   client,
		producer: producer,
		topic:    topic,
	}, nil
}

// PublishJob publishes a seeding job to Pulsar
func (p *Producer) PublishJob(ctx context.Context, job *queue.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if _, err := p.producer.Send(ctx, &pulsar.ProducerMessage{
		Payload:    data,
		Key:        job.ID,
		Properties: map[string]string{"job-id": job.ID},
	}); err != nil {
		return fmt.Errorf("failed to publish job to Pulsar: %w", err)
	}

	logger.Infof("Published seed job %s to Pulsar topic %s", job.ID, p.topic)
	return nil
}

// Close closes the Pulsar producer
func (p *Producer) Close() error {
	p.producer.Close()
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
