package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/soltixdb/soltix-transform/internal/logging"
)

// KafkaTransport implements Transport on Kafka topics; subjects map to topics
type KafkaTransport struct {
	brokers []string
	group   string
	logger  *logging.Logger

	writers map[string]*kafka.Writer
	readers map[string]*kafka.Reader
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewKafkaTransport creates a transport over brokers. No connection is made
// until the first publish or subscribe.
func NewKafkaTransport(brokers []string, group string, logger *logging.Logger) (*KafkaTransport, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if group == "" {
		group = "transformd"
	}
	return &KafkaTransport{
		brokers: brokers,
		group:   group,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
		readers: make(map[string]*kafka.Reader),
		cancels: make(map[string]context.CancelFunc),
	}, nil
}

func (t *KafkaTransport) writer(topic string) *kafka.Writer {
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(t.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
	t.writers[topic] = w
	return w
}

// Publish writes data to the subject topic
func (t *KafkaTransport) Publish(ctx context.Context, subject string, data []byte) error {
	err := t.writer(subject).WriteMessages(ctx, kafka.Message{Value: data, Time: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", subject, err)
	}
	return nil
}

// Subscribe starts a consumer group reader on the subject topic
func (t *KafkaTransport) Subscribe(ctx context.Context, subject string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.readers[subject]; exists {
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           t.brokers,
		GroupID:           t.group,
		Topic:             subject,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           time.Second,
		CommitInterval:    time.Second,
		StartOffset:       kafka.FirstOffset,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			t.logger.Debug(fmt.Sprintf(msg, args...))
		}),
	})

	subCtx, cancel := context.WithCancel(ctx)
	t.readers[subject] = reader
	t.cancels[subject] = cancel
	t.wg.Add(1)
	go t.consume(subCtx, reader, subject, handler)

	t.logger.Info("Subscribed to Kafka topic", "topic", subject, "group", t.group)
	return nil
}

func (t *KafkaTransport) consume(ctx context.Context, reader *kafka.Reader, subject string, handler Handler) {
	defer t.wg.Done()
	for ctx.Err() == nil {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Error("Failed to fetch message", "topic", subject, "error", err)
			time.Sleep(time.Second)
			continue
		}

		if err := handler(ctx, subject, msg.Value); err != nil {
			// Not committed, so the group redelivers it after a rebalance.
			t.logger.Error("Failed to handle message", "topic", subject, "offset", msg.Offset, "error", err)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			t.logger.Error("Failed to commit message", "topic", subject, "offset", msg.Offset, "error", err)
		}
	}
}

// Unsubscribe stops the reader on the subject topic
func (t *KafkaTransport) Unsubscribe(subject string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cancel, exists := t.cancels[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}
	cancel()
	delete(t.cancels, subject)

	if r, ok := t.readers[subject]; ok {
		if err := r.Close(); err != nil {
			t.logger.Warn("Failed to close reader", "topic", subject, "error", err)
		}
		delete(t.readers, subject)
	}
	return nil
}

// Close stops every reader and flushes every writer
func (t *KafkaTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for topic, cancel := range t.cancels {
		cancel()
		delete(t.cancels, topic)
	}

	var lastErr error
	for topic, r := range t.readers {
		if err := r.Close(); err != nil {
			lastErr = err
		}
		delete(t.readers, topic)
	}
	for topic, w := range t.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
		delete(t.writers, topic)
	}
	return lastErr
}
