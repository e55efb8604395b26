package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/soltixdb/soltix-transform/internal/logging"
)

// MemoryTransport implements Transport with in-process channels. Messages
// published before a subscription exists are buffered.
type MemoryTransport struct {
	logger        *logging.Logger
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
}

const memoryBuffer = 10000

// NewMemoryTransport creates an empty in-process transport
func NewMemoryTransport(logger *logging.Logger) *MemoryTransport {
	if logger == nil {
		logger = logging.Nop()
	}
	return &MemoryTransport{
		logger:        logger,
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

func (t *MemoryTransport) channel(subject string) chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[subject]
	if !ok {
		ch = make(chan []byte, memoryBuffer)
		t.channels[subject] = ch
	}
	return ch
}

// Publish copies data onto the subject channel; it fails when the buffer is full
func (t *MemoryTransport) Publish(ctx context.Context, subject string, data []byte) error {
	msg := make([]byte, len(data))
	copy(msg, data)

	select {
	case t.channel(subject) <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// Subscribe consumes the subject channel in a goroutine. A message the
// handler rejects is logged and dropped.
func (t *MemoryTransport) Subscribe(ctx context.Context, subject string, handler Handler) error {
	ch := t.channel(subject)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	t.subscriptions[subject] = cancel
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-subCtx.Done():
				return
			case data := <-ch:
				if err := handler(subCtx, subject, data); err != nil {
					t.logger.Error("Failed to handle message", "subject", subject, "error", err, "data_preview", preview(data))
				}
			}
		}
	}()
	return nil
}

// Pending returns the number of buffered messages on subject
func (t *MemoryTransport) Pending(subject string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.channels[subject])
}

// Unsubscribe stops consuming subject; buffered messages are kept
func (t *MemoryTransport) Unsubscribe(subject string) error {
	t.mu.Lock()
	cancel, exists := t.subscriptions[subject]
	if exists {
		delete(t.subscriptions, subject)
	}
	t.mu.Unlock()

	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}
	cancel()
	return nil
}

// Close stops every subscription
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	for subject, cancel := range t.subscriptions {
		cancel()
		delete(t.subscriptions, subject)
	}
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}
