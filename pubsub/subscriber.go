package pubsub

import "sync"

type (
	// subscriber adapts an Observable to the channel based Subscriber
	// interface.
	subscriber struct {
		src    Observable
		output chan SubscriberMessage
		stop   chan struct{}

		start sync.Once
		sub   Subscription

		mu       sync.Mutex
		stopped  bool
		closed   bool
		err      error
		inFlight sync.WaitGroup
	}

	// subMessage is the SubscriberMessage implementation handed out by
	// subscriber.
	subMessage struct {
		record *Record
	}
)

// NewSubscriber returns a Subscriber that attaches to src on Start. Records
// are emitted on the returned channel in the order src delivers them; the
// channel is closed when src terminates or Stop is called. A slow reader
// applies backpressure to src.
func NewSubscriber(src Observable) Subscriber {
	return &subscriber{
		src:    src,
		output: make(chan SubscriberMessage),
		stop:   make(chan struct{}),
	}
}

// Message will return the record payload.
func (m *subMessage) Message() []byte {
	return m.record.Value
}

// Record will return the full record.
func (m *subMessage) Record() *Record {
	return m.record
}

// Done has no effect: offsets are not persisted.
func (m *subMessage) Done() error {
	return nil
}

// Start subscribes to the source and returns the message channel. Calling
// Start again returns the same channel. Starting a stopped subscriber
// returns the closed channel without subscribing.
func (s *subscriber) Start() <-chan SubscriberMessage {
	s.start.Do(func() {
		s.mu.Lock()
		stopped := s.stopped || s.closed
		s.mu.Unlock()
		if stopped {
			return
		}

		sub := s.src.Subscribe(s)
		s.mu.Lock()
		s.sub = sub
		stopped = s.stopped || s.closed
		s.mu.Unlock()
		// Stop ran while subscribing and could not see sub
		if stopped {
			sub.Unsubscribe()
		}
	})
	return s.output
}

// OnNext blocks until the record is read or the subscriber is stopped.
func (s *subscriber) OnNext(r *Record) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.inFlight.Add(1)
	s.mu.Unlock()
	defer s.inFlight.Done()

	select {
	case s.output <- &subMessage{record: r}:
	case <-s.stop:
	}
}

// OnError records the error and closes the channel.
func (s *subscriber) OnError(err error) {
	s.finish(err)
}

// OnCompleted closes the channel.
func (s *subscriber) OnCompleted() {
	s.finish(nil)
}

// Err will contain the terminal error of the source, if any. It should be
// checked after the channel closes.
func (s *subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop detaches from the source and closes the channel.
func (s *subscriber) Stop() error {
	s.mu.Lock()
	s.stopped = true
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
	s.finish(nil)
	return nil
}

func (s *subscriber) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()

	close(s.stop)
	// no sender may touch output once in-flight deliveries have drained
	s.inFlight.Wait()
	close(s.output)
}
