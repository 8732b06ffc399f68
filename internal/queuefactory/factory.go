package queuefactory

import (
	"fmt"
	"strings"

	"github.com/anhhuy04/ai-lms-prd/internal/config"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
	"github.com/anhhuy04/ai-lms-prd/internal/queue/kafka"
	"github.com/anhhuy04/ai-lms-prd/internal/queue/pulsar"
)

const defaultConsumerGroup = "dbops-seed-workers"

// NewQueue creates the queue selected by cfg.Type
func NewQueue(cfg *config.QueueConfig) (queue.Queue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("queue configuration is required")
	}

	queueType := strings.ToLower(cfg.Type)
	if queueType == "" {
		queueType = "kafka" // Default to Kafka
	}

	switch queueType {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required")
		}
		if cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka topic is required")
		}
		groupID := cfg.KafkaGroupID
		if groupID == "" {
			groupID = defaultConsumerGroup
		}
		return kafka.NewQueue(cfg.KafkaBrokers, cfg.KafkaTopic, groupID), nil

	case "pulsar":
		if cfg.PulsarURL == "" {
			return nil, fmt.Errorf("pulsar URL is required")
		}
		if cfg.PulsarTopic == "" {
			return nil, fmt.Errorf("pulsar topic is required")
		}
		subscription := cfg.PulsarSubscription
		if subscription == "" {
			subscription = defaultConsumerGroup
		}
		return pulsar.NewQueue(cfg.PulsarURL, cfg.PulsarTopic, subscription)

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: kafka, pulsar)", cfg.Type)
	}
}
