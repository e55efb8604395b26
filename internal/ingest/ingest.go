// Package ingest moves series writes over a message queue. Producers encode
// series batches and publish them; the consumer decodes each message and
// stores the series so later queries can read them.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// Handler processes one message. Returning an error leaves the message
// unacknowledged so the broker can redeliver it.
type Handler func(ctx context.Context, subject string, data []byte) error

// Publisher publishes messages to a subject/topic
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Subscriber subscribes to a subject/topic with a handler
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler Handler) error
	Unsubscribe(subject string) error
	Close() error
}

// Transport combines Publisher and Subscriber
type Transport interface {
	Publisher
	Subscriber
}

// New creates the transport selected by cfg.Type. NATS is the default.
func New(cfg config.IngestConfig, logger *logging.Logger) (Transport, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}
	logger = logger.With("component", "ingest."+string(queueType))

	switch queueType {
	case utils.QueueTypeNATS:
		return NewNATSTransport(cfg.URL, cfg.Group, logger)
	case utils.QueueTypeRedis:
		return NewRedisTransport(cfg, logger)
	case utils.QueueTypeKafka:
		return NewKafkaTransport(cfg.KafkaBrokers, cfg.Group, logger)
	case utils.QueueTypeMemory:
		return NewMemoryTransport(logger), nil
	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", queueType)
	}
}

// sanitizeName maps a subject to the characters NATS allows in stream and
// consumer names: A-Z, a-z, 0-9, dash and underscore.
func sanitizeName(subject string) string {
	out := make([]byte, 0, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		case c == '*' || c == '>':
			out = append(out, "all"...)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func preview(data []byte) string {
	return string(data[:min(100, len(data))])
}
