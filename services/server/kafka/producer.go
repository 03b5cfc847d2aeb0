package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"topstories/services/frontend/adapters"
	"topstories/services/frontend/models"
)

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes fetched stories to a Kafka topic.
type Producer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewProducer creates a synchronous producer for topic.
func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka producer requires a topic")
	}
	if logger == nil {
		logger = slog.Default()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same uri, same partition
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	logger = logger.With("module", "kafka", "topic", topic)
	logger.Info("kafka producer initialized", "brokers", brokers)
	return &Producer{writer: writer, logger: logger}, nil
}

// PublishStories writes one message per story, keyed by uri.
func (p *Producer) PublishStories(ctx context.Context, stories []models.Story) error {
	if len(stories) == 0 {
		return nil
	}
	now := time.Now()
	msgs := make([]kafka.Message, 0, len(stories))
	for _, story := range stories {
		value, err := json.Marshal(story)
		if err != nil {
			return fmt.Errorf("failed to marshal story %q: %w", story.URI, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(story.URI),
			Value: value,
			Time:  now,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write stories to Kafka: %w", err)
	}
	p.logger.InfoContext(ctx, "published stories", "count", len(msgs))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	p.logger.Info("closing kafka producer")
	return p.writer.Close()
}

// StoryPublisher receives the stories of every successful fetch.
type StoryPublisher interface {
	PublishStories(ctx context.Context, stories []models.Story) error
}

// Fetcher matches the shell's data source.
type Fetcher interface {
	Fetch(ctx context.Context) adapters.Result
}

// PublishTimeout bounds one background publish.
const PublishTimeout = 10 * time.Second

// PublishingFetcher forwards successful results to a StoryPublisher
// without holding the result back.
type PublishingFetcher struct {
	next      Fetcher
	publisher StoryPublisher
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// Publishing returns the upstream result as soon as it arrives and
// publishes its stories in the background. A publish failure is logged and
// never changes the result seen by the caller, nor when it is seen.
func Publishing(next Fetcher, publisher StoryPublisher, logger *slog.Logger) *PublishingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishingFetcher{next: next, publisher: publisher, logger: logger.With("module", "kafka")}
}

func (f *PublishingFetcher) Fetch(ctx context.Context) adapters.Result {
	res := f.next.Fetch(ctx)
	if !res.OK() || len(res.Stories()) == 0 {
		return res
	}
	stories := append([]models.Story(nil), res.Stories()...)
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()
		if err := f.publisher.PublishStories(pubCtx, stories); err != nil {
			f.logger.ErrorContext(pubCtx, "publish stories failed", "error", err.Error())
		}
	}()
	return res
}

// Wait blocks until every background publish has finished.
func (f *PublishingFetcher) Wait() {
	f.wg.Wait()
}
