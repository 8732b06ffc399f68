package queuefactory

import (
	"strings"
	"testing"

	"github.com/anhhuy04/ai-lms-prd/internal/config"
	"github.com/anhhuy04/ai-lms-prd/internal/queue/kafka"
)

func TestNewQueue_Validation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *config.QueueConfig
		errMsg string
	}{
		{name: "nil config", cfg: nil, errMsg: "queue configuration is required"},
		{name: "kafka without brokers", cfg: &config.QueueConfig{Type: "kafka", KafkaTopic: "t"}, errMsg: "kafka brokers are required"},
		{name: "kafka without topic", cfg: &config.QueueConfig{Type: "kafka", KafkaBrokers: []string{"localhost:9092"}}, errMsg: "kafka topic is required"},
		{name: "pulsar without url", cfg: &config.QueueConfig{Type: "pulsar", PulsarTopic: "t"}, errMsg: "pulsar URL is required"},
		{name: "pulsar without topic", cfg: &config.QueueConfig{Type: "pulsar", PulsarURL: "pulsar://localhost:6650"}, errMsg: "pulsar topic is required"},
		{name: "unknown type", cfg: &config.QueueConfig{Type: "rabbitmq"}, errMsg: "unsupported queue type: rabbitmq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQueue(tt.cfg)
			if err == nil {
				t.Fatalf("Expected error, got queue %T", q)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestNewQueue_KafkaDefault(t *testing.T) {
	q, err := NewQueue(&config.QueueConfig{
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "dbops-seed-jobs",
	})
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	defer q.Close()

	if _, ok := q.(*kafka.Queue); !ok {
		t.Errorf("Expected *kafka.Queue, got %T", q)
	}
}
