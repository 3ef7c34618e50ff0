package eventhub

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/kit/metrics/provider"
	"github.com/google/go-cmp/cmp"

	"github.com/NYTimes/hubstream/pubsub"
)

func newTestPoller(hub *testHub, batchSize int, period time.Duration, got *[]string) *poller {
	return &poller{
		rcv:       &testReceiver{hub: hub},
		batchSize: batchSize,
		period:    period,
		deliver: func(recs []*pubsub.Record) {
			for _, r := range recs {
				*got = append(*got, string(r.Value))
			}
		},
		metrics: newListenerMetrics(provider.NewDiscardProvider()),
		log:     pubsub.Log.WithField("test", "poller"),
	}
}

func TestPollerDrainsBusyPartition(t *testing.T) {
	hub := &testHub{Batches: [][]*pubsub.Record{
		records("1", "2"),
		records("3"),
		records("4", "5", "6"),
	}}
	var got []string
	p := newTestPoller(hub, 2, time.Hour, &got)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- p.run(ctx) }()

	// three full batches, then an empty receive puts the loop to sleep
	deadline := time.Now().Add(waitTimeout)
	for hub.Receives() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected a clean exit on cancel, got %s", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("poller did not stop during its idle wait")
	}

	// the fake caps the last batch at the configured size
	if diff := cmp.Diff([]string{"1", "2", "3", "4", "5"}, got); diff != "" {
		t.Errorf("unexpected delivery (-want +got):\n%s", diff)
	}
}

func TestPollerCancelledBeforeReceive(t *testing.T) {
	hub := &testHub{Batches: [][]*pubsub.Record{records("1")}}
	var got []string
	p := newTestPoller(hub, 10, time.Hour, &got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.run(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if hub.Receives() != 0 {
		t.Errorf("expected no receive after cancellation, got %d", hub.Receives())
	}
}

func TestPollerReceiveError(t *testing.T) {
	hub := &testHub{ReceiveErr: errBroker}
	var got []string
	p := newTestPoller(hub, 10, time.Hour, &got)

	if err := p.run(context.Background()); err != errBroker {
		t.Errorf("expected %q, got %v", errBroker, err)
	}
}

func TestPollerIdleWait(t *testing.T) {
	period := 30 * time.Millisecond
	hub := &testHub{Batches: [][]*pubsub.Record{nil, nil, records("1")}}
	var got []string
	p := newTestPoller(hub, 10, period, &got)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.deliver = func(recs []*pubsub.Record) { cancel() }

	start := time.Now()
	if err := p.run(ctx); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if elapsed := time.Since(start); elapsed < 2*period {
		t.Errorf("expected two idle waits of %s, finished after %s", period, elapsed)
	}
	times := hub.ReceiveTimes()
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < period {
			t.Errorf("receive %d came %s after an empty receive, want at least %s", i, gap, period)
		}
	}
}
