package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/imagine/internal/models"
)

// RunCompletedMessage is published once per finished generation run
type RunCompletedMessage struct {
	RunID      uuid.UUID `json:"run_id"`
	Requested  int       `json:"requested"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	ImageURLs  []string  `json:"image_urls"`
	FinishedAt time.Time `json:"finished_at"`
}

// messageWriter is the subset of kafka.Writer used by Producer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a Kafka producer for run events
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
	}

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka producer initialized")

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishRunCompleted publishes the run summary keyed by run ID
func (p *Producer) PublishRunCompleted(ctx context.Context, result *models.GenerationResult) error {
	msg := RunCompletedMessage{
		RunID:      result.RunID,
		Requested:  result.Requested,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		ImageURLs:  result.ImageURLs,
		FinishedAt: p.now().UTC(),
	}
	if msg.ImageURLs == nil {
		msg.ImageURLs = []string{}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal run message: %w", err)
	}

	kafkaMsg := kafka.Message{
		Key:   []byte(result.RunID.String()),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Info().
		Str("run_id", result.RunID.String()).
		Str("topic", p.topic).
		Msg("Run completed event published to Kafka")

	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	log.Info().Msg("Closing Kafka producer")
	return p.writer.Close()
}
