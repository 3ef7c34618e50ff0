package eventhub

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NYTimes/hubstream/pubsub"
)

// poller is the receive loop of a session. A busy partition is drained batch
// after batch with no delay; an empty receive is followed by a fixed idle
// wait that cancellation cuts short.
type poller struct {
	rcv       receiver
	batchSize int
	period    time.Duration
	deliver   func([]*pubsub.Record)

	metrics *listenerMetrics
	log     *logrus.Entry
}

// run loops until ctx is cancelled, returning nil, or a receive fails,
// returning the error. Cancellation is checked between steps; an in-flight
// receive is allowed to finish.
func (p *poller) run(ctx context.Context) error {
	// receives must not be aborted by the session cancellation
	recvCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return nil
		}

		p.log.Debug("receiving records")
		recs, err := p.rcv.Receive(recvCtx, p.batchSize)
		p.metrics.receives.Add(1)
		if err != nil {
			return err
		}

		if len(recs) > 0 {
			p.log.Debugf("found %d records", len(recs))
			p.metrics.batchSize.Observe(float64(len(recs)))
			p.deliver(recs)
			continue
		}

		// if we didn't get any records, lets chill out for a sec
		p.metrics.empty.Add(1)
		p.log.Debugf("no records found. sleeping for %s", p.period)
		if !p.wait(ctx) {
			return nil
		}
	}
}

// wait sleeps for the idle period. It returns false if ctx was cancelled
// first.
func (p *poller) wait(ctx context.Context) bool {
	timer := time.NewTimer(p.period)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
