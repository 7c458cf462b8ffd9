package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed job message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Message header names and status values on the sink topic.
const (
	HeaderJobID   = "job_id"
	HeaderVariant = "variant"
	HeaderStatus  = "status"

	StatusOK    = "ok"
	StatusError = "error"
)
