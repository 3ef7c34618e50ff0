package pubsubtest

import (
	"sync"
	"time"

	"github.com/NYTimes/hubstream/pubsub"
)

// TestObserver is a pubsub.Observer that records every notification it
// receives. It is safe for concurrent use.
type TestObserver struct {
	mu        sync.Mutex
	records   []*pubsub.Record
	errs      []error
	completed int

	// OnNextHook, if set, is called after each record is stored.
	OnNextHook func(*pubsub.Record)
}

// OnNext stores the record.
func (o *TestObserver) OnNext(r *pubsub.Record) {
	o.mu.Lock()
	o.records = append(o.records, r)
	hook := o.OnNextHook
	o.mu.Unlock()
	if hook != nil {
		hook(r)
	}
}

// OnError stores the error.
func (o *TestObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

// OnCompleted counts the completion.
func (o *TestObserver) OnCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

// Records returns a copy of the records seen so far.
func (o *TestObserver) Records() []*pubsub.Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*pubsub.Record(nil), o.records...)
}

// Values returns the payloads seen so far as strings.
func (o *TestObserver) Values() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	vals := make([]string, len(o.records))
	for i, r := range o.records {
		vals[i] = string(r.Value)
	}
	return vals
}

// Errors returns a copy of the errors seen so far.
func (o *TestObserver) Errors() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.errs...)
}

// Completed returns the number of OnCompleted calls.
func (o *TestObserver) Completed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.completed
}

// WaitForRecords polls until at least n records arrived or the timeout
// expires. It reports whether the records arrived.
func (o *TestObserver) WaitForRecords(n int, timeout time.Duration) bool {
	return Eventually(timeout, func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		return len(o.records) >= n
	})
}

// WaitForTerminal polls until an error or completion arrived or the timeout
// expires.
func (o *TestObserver) WaitForTerminal(timeout time.Duration) bool {
	return Eventually(timeout, func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		return len(o.errs) > 0 || o.completed > 0
	})
}

// Eventually polls cond every few milliseconds until it returns true or the
// timeout expires.
func Eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}
