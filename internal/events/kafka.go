package events

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/model"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends audit events to a Kafka topic keyed by complaint id,
// so events of one complaint stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish sends ev.
func (p *KafkaPublisher) Publish(ctx context.Context, ev *model.AuditEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal event")
	}

	msg := kafka.Message{
		Key:   []byte(ev.ComplaintID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return eris.Wrap(err, "events: kafka write")
	}

	zap.L().Debug("events: sent to kafka", zap.String("complaint_id", ev.ComplaintID), zap.String("type", ev.Type))
	return nil
}

// Close closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
