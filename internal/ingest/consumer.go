package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// Writer stores decoded series. services.TransformService satisfies it.
type Writer interface {
	Write(ctx context.Context, in []*series.Series) (int, error)
}

// Stats counts what a consumer has processed
type Stats struct {
	Messages int64 `json:"messages"`
	Series   int64 `json:"series"`
	Points   int64 `json:"points"`
	Rejected int64 `json:"rejected"` // undecodable, acknowledged and dropped
	Failed   int64 `json:"failed"`   // write errors, left for redelivery
}

// Consumer subscribes to a subject and writes every batch it receives
type Consumer struct {
	sub     Subscriber
	writer  Writer
	subject string
	logger  *logging.Logger

	messages atomic.Int64
	series   atomic.Int64
	points   atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
}

// NewConsumer creates a consumer; call Start to begin receiving
func NewConsumer(sub Subscriber, writer Writer, subject string, logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Consumer{
		sub:     sub,
		writer:  writer,
		subject: subject,
		logger:  logger.With("component", "ingest.consumer", "subject", subject),
	}
}

// Start subscribes; messages are handled until ctx ends or Stop is called
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.sub.Subscribe(ctx, c.subject, c.handle); err != nil {
		return fmt.Errorf("failed to start ingest consumer: %w", err)
	}
	c.logger.Info("Ingest consumer started")
	return nil
}

// Stop unsubscribes from the subject
func (c *Consumer) Stop() error {
	return c.sub.Unsubscribe(c.subject)
}

// Stats returns a snapshot of the counters
func (c *Consumer) Stats() Stats {
	return Stats{
		Messages: c.messages.Load(),
		Series:   c.series.Load(),
		Points:   c.points.Load(),
		Rejected: c.rejected.Load(),
		Failed:   c.failed.Load(),
	}
}

func (c *Consumer) handle(ctx context.Context, subject string, data []byte) error {
	c.messages.Add(1)

	in, err := Decode(data)
	if err != nil {
		// Redelivery cannot fix a malformed body.
		c.rejected.Add(1)
		c.logger.Warn("Dropping undecodable message", "error", err, "data_preview", preview(data))
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, utils.IngestWriteTimeout)
	defer cancel()

	points, err := c.writer.Write(writeCtx, in)
	if err != nil {
		c.failed.Add(1)
		return fmt.Errorf("failed to write %d series from %s: %w", len(in), subject, err)
	}

	c.series.Add(int64(len(in)))
	c.points.Add(int64(points))
	c.logger.Debug("Ingested batch", "series", len(in), "points", points)
	return nil
}

// PublishSeries encodes in and publishes it on subject
func PublishSeries(ctx context.Context, pub Publisher, subject string, in []*series.Series, compressAbove int) error {
	data, err := Encode(in, compressAbove)
	if err != nil {
		return err
	}
	return pub.Publish(ctx, subject, data)
}
