package utils

import "time"

// =============================================================================
// Time Unit Constants (milliseconds)
// =============================================================================

const (
	MillisPerSecond int64 = 1000
	MillisPerMinute       = 60 * MillisPerSecond
	MillisPerHour         = 60 * MillisPerMinute
	MillisPerDay          = 24 * MillisPerHour
	MillisPerWeek         = 7 * MillisPerDay
)

// =============================================================================
// Engine Limits
// =============================================================================

const (
	// DefaultMaxDatapoints bounds the points a gap-filling transform may synthesize
	DefaultMaxDatapoints = 100000

	// DefaultBootstrapWindow is the extra history fetched to seed Holt-Winters
	DefaultBootstrapWindow = 7 * 24 * time.Hour

	// DefaultRPCAMaxIterations caps the robust PCA decomposition loop
	DefaultRPCAMaxIterations = 228

	// DefaultKMeansMaxIterations caps Lloyd iterations for k-means scoring
	DefaultKMeansMaxIterations = 100

	// DefaultPageSize is the number of points fetched per cursor page
	DefaultPageSize = 1024
)

// =============================================================================
// HTTP Handler Timeouts
// =============================================================================

const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// FetchTimeout bounds a single data-store fetch issued while evaluating
	FetchTimeout = 10 * time.Second

	// ShutdownTimeout is the grace period for the HTTP server to drain
	ShutdownTimeout = 10 * time.Second
)

// =============================================================================
// Backend Type Constants
// =============================================================================

// StoreType represents the data-store backend serving series and cursors
type StoreType string

const (
	// StoreTypeMemory keeps series in process (tests, CLI)
	StoreTypeMemory StoreType = "memory"

	// StoreTypeBadger stores compressed blocks in BadgerDB
	StoreTypeBadger StoreType = "badger"

	// StoreTypeRedis stores one sorted set per series in Redis
	StoreTypeRedis StoreType = "redis"
)

// MetadataType represents the metadata lookup backend
type MetadataType string

const (
	// MetadataTypeMemory answers lookups from series tags and an in-process table
	MetadataTypeMemory MetadataType = "memory"

	// MetadataTypeEtcd reads host metadata from etcd with a local cache
	MetadataTypeEtcd MetadataType = "etcd"
)

// QueueType represents the message queue carrying series writes
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-process queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// =============================================================================
// Ingest
// =============================================================================

const (
	// IngestMaxDeliver is the number of delivery attempts before a message is dropped
	IngestMaxDeliver = 3

	// IngestAckWait is how long a delivered message may stay unacknowledged
	IngestAckWait = 30 * time.Second

	// IngestMaxAckPending bounds in-flight messages per subscription
	IngestMaxAckPending = 100

	// IngestWriteTimeout bounds the datastore write for one message
	IngestWriteTimeout = 10 * time.Second
)

// =============================================================================
// gRPC
// =============================================================================

const (
	// GRPCMaxMessageSize bounds request and response bodies on the gRPC surface
	GRPCMaxMessageSize = 10 * 1024 * 1024

	// GRPCDialTimeout bounds the first connection attempt of a client
	GRPCDialTimeout = 5 * time.Second
)
