package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/cliply/interaction-service/pkg/log"
)

// ConfluentPublisher implements Publisher on a confluent-kafka producer.
// Produce is asynchronous: an error here means the message could not be
// enqueued; broker-side failures arrive on the delivery report channel
// and are only logged, matching the at-least-once, non-fatal contract.
type ConfluentPublisher struct {
	producer *kafka.Producer
	doneCh   chan struct{}
}

// NewConfluentPublisher creates the producer and provisions all topics.
func NewConfluentPublisher(brokers string, partitions int) (*ConfluentPublisher, error) {
	if err := ensureTopics(brokers, partitions); err != nil {
		pkglog.L().Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentPublisher{
		producer: p,
		doneCh:   make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopics(brokers string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	if partitions <= 0 {
		partitions = 4
	}

	specs := make([]kafka.TopicSpecification, 0, len(Topics()))
	for _, topic := range Topics() {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentPublisher) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				pkglog.L().Warn().
					Err(ev.TopicPartition.Error).
					Str(pkglog.FieldTopic, *ev.TopicPartition.Topic).
					Msg("kafka delivery failed")
			}
		}
	}
	close(cp.doneCh)
}

// Publish enqueues payload on topic, keyed for per-entity ordering.
func (cp *ConfluentPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:       []byte(key),
		Value:     value,
		Timestamp: time.Now(),
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}

	return nil
}

// Close flushes outstanding messages and shuts the producer down.
func (cp *ConfluentPublisher) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}

var _ Publisher = (*ConfluentPublisher)(nil)
