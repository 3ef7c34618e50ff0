package pubsub

import (
	"strconv"
	"time"
)

// Record is a single event read from, or written to, a partitioned event
// hub. Payloads are opaque; the stream never inspects or rewrites them.
type Record struct {
	Key   []byte
	Value []byte

	// Properties holds the application headers attached to the event.
	Properties map[string]string

	// Partition and Offset are assigned by the broker and are empty for
	// records that have not been published yet.
	Partition    string
	Offset       int64
	EnqueuedTime time.Time
}

// ID returns a stable identifier for a consumed record.
func (r *Record) ID() string {
	return r.Partition + "-" + strconv.FormatInt(r.Offset, 10)
}
