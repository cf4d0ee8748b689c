package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/MatthewCline-git/higher-pleasures/internal/events"
)

// Publisher sends outbound events back to the chat transport.
type Publisher interface {
	PublishReply(ctx context.Context, reply events.ChatReply) error
	PublishEntryRecorded(ctx context.Context, event events.EntryRecorded) error
}

// KafkaPublisher lazily manages writers per topic.
type KafkaPublisher struct {
	brokers    []string
	replyTopic string
	entryTopic string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(brokers []string, replyTopic, entryTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		brokers:    brokers,
		replyTopic: replyTopic,
		entryTopic: entryTopic,
		writers:    make(map[string]*kafka.Writer),
	}
}

// PublishReply writes the reply keyed by sender so replies to one user stay
// ordered.
func (p *KafkaPublisher) PublishReply(ctx context.Context, reply events.ChatReply) error {
	if reply.SentAt.IsZero() {
		reply.SentAt = time.Now().UTC()
	}
	return p.publish(ctx, p.replyTopic, reply.SenderID, reply)
}

// PublishEntryRecorded writes the ledger event keyed by user.
func (p *KafkaPublisher) PublishEntryRecorded(ctx context.Context, event events.EntryRecorded) error {
	return p.publish(ctx, p.entryTopic, event.UserID, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for topic %s: %w", topic, err)
	}

	writer := p.writerForTopic(topic)
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *KafkaPublisher) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
