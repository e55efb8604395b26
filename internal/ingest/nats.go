package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// NATSTransport implements Transport on NATS JetStream with durable consumers
type NATSTransport struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	group         string
	logger        *logging.Logger
	subscriptions map[string]*nats.Subscription
	mu            sync.Mutex
}

// NewNATSTransport connects to url and enables JetStream
func NewNATSTransport(url, group string, logger *logging.Logger) (*NATSTransport, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if group == "" {
		group = "transformd"
	}

	conn, err := nats.Connect(url,
		nats.Name("soltix-transform-"+group),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSTransport{
		conn:          conn,
		js:            js,
		group:         group,
		logger:        logger,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

// Publish publishes a message and waits for the JetStream ack
func (t *NATSTransport) Publish(ctx context.Context, subject string, data []byte) error {
	if err := t.ensureStream(subject); err != nil {
		return err
	}
	if _, err := t.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe creates a durable, manually acknowledged consumer on subject
func (t *NATSTransport) Subscribe(ctx context.Context, subject string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	if err := t.ensureStream(subject); err != nil {
		return err
	}

	durable := t.group + "-" + sanitizeName(subject)
	sub, err := t.js.Subscribe(subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, msg.Subject, msg.Data); err != nil {
			t.logger.Error("Failed to handle message",
				"subject", msg.Subject,
				"error", err,
				"data_preview", preview(msg.Data))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxAckPending(utils.IngestMaxAckPending),
		nats.AckWait(utils.IngestAckWait),
		nats.MaxDeliver(utils.IngestMaxDeliver),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	t.subscriptions[subject] = sub
	t.logger.Info("Subscribed to subject", "subject", subject, "durable", durable)
	return nil
}

// ensureStream creates a work-queue stream for subject unless one covers it
func (t *NATSTransport) ensureStream(subject string) error {
	if name, err := t.js.StreamNameBySubject(subject); err == nil && name != "" {
		return nil
	}

	_, err := t.js.AddStream(&nats.StreamConfig{
		Name:      streamName(subject),
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
		Replicas:  1,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream for %s: %w", subject, err)
	}
	return nil
}

func streamName(subject string) string {
	return "SERIES_" + sanitizeName(subject)
}

// Unsubscribe drops the subscription on subject
func (t *NATSTransport) Unsubscribe(subject string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, exists := t.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
	}
	delete(t.subscriptions, subject)
	return nil
}

// Close drains subscriptions and closes the connection
func (t *NATSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for subject, sub := range t.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			t.logger.Warn("Failed to unsubscribe", "subject", subject, "error", err)
		}
	}
	t.subscriptions = make(map[string]*nats.Subscription)
	t.conn.Close()
	return nil
}
