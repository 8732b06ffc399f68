package pulsar

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
)

type messageReceiver interface {
	Receive(ctx context.Context) (pulsar.Message, error)
	Ack(msg pulsar.Message) error
	Nack(msg pulsar.Message)
	Close()
}

// Consumer implements queue.Consumer using Pulsar
type Consumer struct {
	client   pulsar.Client
	consumer messageReceiver
	topic    string
}

// NewConsumer creates a new Pulsar consumer
func NewConsumer(url, topic, subscriptionName string) (*Consumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscriptionName,
		Type:             pulsar.Shared,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create Pulsar consumer: %w", err)
	}

	return &Consumer{
		client:   client,
		consumer: consumer,
		topic:    topic,
	}, nil
}

// Consume starts consuming jobs from Pulsar. A job whose handler fails is
// negatively acknowledged and redelivered, unless the failure wraps
// queue.ErrInvalidJob: such a job is acknowledged and dropped.
func (c *Consumer) Consume(ctx context.Context, handler queue.JobHandler) error {
	logger.Infof("Starting Pulsar consumer for topic %s", c.topic)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Pulsar consumer context cancelled")
			return ctx.Err()
		default:
			msg, err := c.consumer.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("failed to receive message from Pulsar: %w", err)
			}

			job, err := queue.DecodeJob(msg.Payload())
			if err != nil {
				logger.Errorf("Failed to decode job from Pulsar message: %v", err)
				// Undecodable messages would be redelivered forever
				_ = c.consumer.Ack(msg)
				continue
			}

			// Extract job ID from properties if not in body
			if job.ID == "" {
				if jobID, ok := msg.Properties()["job-id"]; ok {
					job.ID = jobID
				} else if msg.Key() != "" {
					job.ID = msg.Key()
				}
			}

			logger.Infof("Processing seed job %s from Pulsar", job.ID)

			result, err := handler(ctx, job)
			if err != nil {
				if errors.Is(err, queue.ErrInvalidJob) {
					logger.Errorf("Dropping seed job %s: %v", job.ID, err)
					if ackErr := c.consumer.Ack(msg); ackErr != nil {
						logger.Errorf("Failed to acknowledge message for job %s: %v", job.ID, ackErr)
					}
					continue
				}
				logger.Errorf("Failed to process seed job %s, will be redelivered: %v", job.ID, err)
				c.consumer.Nack(msg)
				continue
			}

			if err := c.consumer.Ack(msg); err != nil {
				logger.Errorf("Failed to acknowledge message for job %s: %v", job.ID, err)
			}
			logResult(job.ID, result)
		}
	}
}

// Close closes the Pulsar consumer
func (c *Consumer) Close() error {
	c.consumer.Close()
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func logResult(jobID string, result *queue.JobResult) {
	if result == nil || result.Report == nil {
		return
	}
	if result.Success {
		logger.Infof("Seed job %s finished: %d/%d records succeeded, %d skipped",
			jobID, result.Report.Succeeded, result.Report.Total, result.Report.Skipped)
	} else {
		logger.Warnf("Seed job %s finished with %d failed records out of %d",
			jobID, result.Report.Failed, result.Report.Total)
	}
}
