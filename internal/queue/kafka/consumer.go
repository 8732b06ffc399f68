package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer implements queue.Consumer using Kafka
type Consumer struct {
	reader messageReader
	topic  string
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{
		reader: reader,
		topic:  topic,
	}
}

// Consume starts consuming jobs from Kafka. Messages are committed as they
// are read, so a job whose handler fails is logged and not redelivered.
func (c *Consumer) Consume(ctx context.Context, handler queue.JobHandler) error {
	logger.Infof("Starting Kafka consumer for topic %s", c.topic)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Kafka consumer context cancelled")
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("failed to read message from Kafka: %w", err)
			}

			job, err := queue.DecodeJob(msg.Value)
			if err != nil {
				logger.Errorf("Failed to decode job from Kafka message at offset %d: %v", msg.Offset, err)
				continue
			}

			// Extract job ID from headers if not in body
			if job.ID == "" {
				for _, header := range msg.Headers {
					if header.Key == "job-id" {
						job.ID = string(header.Value)
						break
					}
				}
			}

			logger.Infof("Processing seed job %s from Kafka", job.ID)

			result, err := handler(ctx, job)
			if err != nil {
				if errors.Is(err, queue.ErrInvalidJob) {
					logger.Errorf("Dropping seed job %s: %v", job.ID, err)
				} else {
					logger.Errorf("Failed to process seed job %s at offset %d: %v", job.ID, msg.Offset, err)
				}
				continue
			}
			logResult(job.ID, result)
		}
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
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
