package pubsubtest

import (
	"sync"

	"github.com/NYTimes/hubstream/pubsub"
)

// TestObservable is a simple implementation of pubsub.Observable meant to
// help mock out a stream. Each subscriber gets its own goroutine that
// delivers Records in order, then GivenError (if set) or a completion.
type TestObservable struct {
	// Records will be delivered to every subscriber.
	Records []*pubsub.Record

	// GivenError will be delivered after Records. Good for testing error
	// scenarios.
	GivenError error

	// Hold, if set, keeps the stream open after Records until the
	// subscription is cancelled instead of completing.
	Hold bool

	mu           sync.Mutex
	subscribed   int
	unsubscribed int
}

// Subscribe starts delivering to o.
func (t *TestObservable) Subscribe(o pubsub.Observer) pubsub.Subscription {
	t.mu.Lock()
	t.subscribed++
	t.mu.Unlock()

	sub := &testSubscription{parent: t, cancel: make(chan struct{})}
	go func() {
		for _, r := range t.Records {
			select {
			case <-sub.cancel:
				return
			default:
			}
			o.OnNext(r)
		}
		if t.GivenError != nil {
			o.OnError(t.GivenError)
			return
		}
		if t.Hold {
			<-sub.cancel
			return
		}
		o.OnCompleted()
	}()
	return sub
}

// Subscribed returns the number of Subscribe calls.
func (t *TestObservable) Subscribed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribed
}

// Unsubscribed returns the number of subscriptions that were cancelled.
func (t *TestObservable) Unsubscribed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsubscribed
}

type testSubscription struct {
	parent *TestObservable
	once   sync.Once
	cancel chan struct{}
}

func (s *testSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.parent.mu.Lock()
		s.parent.unsubscribed++
		s.parent.mu.Unlock()
		close(s.cancel)
	})
}
