package eventhub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NYTimes/hubstream/pubsub"
)

// testHub fakes the broker behind the conn and receiver interfaces. Receive
// calls walk through Batches and return empty batches once they run out.
type testHub struct {
	mu sync.Mutex

	Partitions []string
	Batches    [][]*pubsub.Record

	DialErr      error
	PartitionErr error
	ReceiveErr   error
	CloseErr     error

	// DialGate, if set, blocks dial until it is closed.
	DialGate chan struct{}

	dials          int
	partitionCalls int
	receivers      int
	receives       int
	receiveTimes   []time.Time
	connCloses     int
	receiverCloses int
	closeOrder     []string
	next           int
}

func (h *testHub) dial(ctx context.Context, _ Config) (conn, error) {
	if h.DialGate != nil {
		<-h.DialGate
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dials++
	if h.DialErr != nil {
		return nil, h.DialErr
	}
	return &testConn{hub: h}, nil
}

func (h *testHub) counts() (dials, partitionCalls, receivers, receives, connCloses, receiverCloses int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dials, h.partitionCalls, h.receivers, h.receives, h.connCloses, h.receiverCloses
}

func (h *testHub) Receives() int {
	_, _, _, n, _, _ := h.counts()
	return n
}

func (h *testHub) ConnCloses() int {
	_, _, _, _, n, _ := h.counts()
	return n
}

func (h *testHub) ReceiveTimes() []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.receiveTimes...)
}

func (h *testHub) CloseOrder() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.closeOrder...)
}

type testConn struct {
	hub *testHub
}

func (c *testConn) Partitions() ([]string, error) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.hub.partitionCalls++
	return c.hub.Partitions, c.hub.PartitionErr
}

func (c *testConn) Receiver(_, _ string, _ int64) (receiver, error) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.hub.receivers++
	return &testReceiver{hub: c.hub}, nil
}

func (c *testConn) Close() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.hub.connCloses++
	c.hub.closeOrder = append(c.hub.closeOrder, "connection")
	return c.hub.CloseErr
}

type testReceiver struct {
	hub *testHub
}

func (r *testReceiver) Receive(_ context.Context, max int) ([]*pubsub.Record, error) {
	h := r.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.receives++
	h.receiveTimes = append(h.receiveTimes, time.Now())
	if h.ReceiveErr != nil {
		return nil, h.ReceiveErr
	}
	if h.next >= len(h.Batches) {
		return nil, nil
	}
	batch := h.Batches[h.next]
	h.next++
	if len(batch) > max {
		batch = batch[:max]
	}
	return batch, nil
}

func (r *testReceiver) Close() error {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	r.hub.receiverCloses++
	r.hub.closeOrder = append(r.hub.closeOrder, "receiver")
	return r.hub.CloseErr
}

func records(vals ...string) []*pubsub.Record {
	recs := make([]*pubsub.Record, len(vals))
	for i, v := range vals {
		recs[i] = &pubsub.Record{Value: []byte(v), Partition: "0", Offset: int64(i)}
	}
	return recs
}

func newTestListener(t *testing.T, hub *testHub, period time.Duration) *Listener {
	t.Helper()
	batch := 10
	l, err := NewListener(Config{
		Connection: Connection{
			ConnectionString: "Endpoint=sb://test.servicebus.windows.net/;SharedAccessKeyName=k;SharedAccessKey=s",
			EntityPath:       "hub",
		},
		PartitionID: "0",
		IdlePeriod:  &period,
		BatchSize:   &batch,
	})
	if err != nil {
		t.Fatalf("unable to create listener: %s", err)
	}
	l.dial = hub.dial
	return l
}

var errBroker = errors.New("broker went away")
