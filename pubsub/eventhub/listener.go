package eventhub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/NYTimes/hubstream/pubsub"
)

// ErrListenerClosed is delivered to observers that subscribe after Close.
var ErrListenerClosed = errors.New("event hub listener is closed")

var _ pubsub.Observable = &Listener{}

type (
	// Listener exposes one event hub partition as a shared push stream.
	// The broker connection is opened when the first observer subscribes and
	// closed when the last one unsubscribes; every observer in between sees
	// the same records in the same order.
	Listener struct {
		cfg     Config
		dial    dialFunc
		metrics *listenerMetrics
		log     *logrus.Entry

		mu     sync.Mutex
		subs   []*subscription
		sess   *session
		last   *session
		closed bool
	}

	// session is one activation period: first subscribe to last unsubscribe.
	session struct {
		ctx    context.Context
		cancel context.CancelFunc
		// done is closed once the session goroutine released its resources.
		done chan struct{}
	}

	subscription struct {
		l      *Listener
		o      pubsub.Observer
		active atomic.Bool
		once   sync.Once
	}
)

// NewListener validates cfg and returns an idle Listener. No connection is
// made until the first Subscribe.
func NewListener(cfg Config) (*Listener, error) {
	defaultConfig(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Listener{
		cfg:     cfg,
		dial:    dialSarama,
		metrics: newListenerMetrics(cfg.metricsProvider()),
		log: pubsub.Log.WithFields(logrus.Fields{
			"entity_path":    cfg.EntityPath,
			"consumer_group": cfg.ConsumerGroup,
			"partition":      cfg.PartitionID,
		}),
	}, nil
}

// NewPartitionListener returns a Listener for one partition using the
// default consumer group, a 30s idle period and batches of 10 records.
func NewPartitionListener(entityPath, connectionString, partitionID string) (*Listener, error) {
	return NewListener(Config{
		Connection: Connection{
			ConnectionString: connectionString,
			EntityPath:       entityPath,
		},
		PartitionID: partitionID,
	})
}

// Subscribe attaches o to the stream, starting a session if o is the only
// subscriber. Subscribers arriving while a session is starting share it.
func (l *Listener) Subscribe(o pubsub.Observer) pubsub.Subscription {
	s := &subscription{l: l, o: o}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		o.OnError(ErrListenerClosed)
		return s
	}
	s.active.Store(true)
	l.subs = append(l.subs, s)
	l.metrics.subscribers.Set(float64(len(l.subs)))
	if l.sess == nil {
		l.startSession()
	}
	l.mu.Unlock()
	return s
}

// Unsubscribe detaches the observer. The observer gets no records after
// Unsubscribe returns, apart from one that was already being delivered.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.active.Store(false)
		s.l.unsubscribe(s)
	})
}

func (l *Listener) unsubscribe(s *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	found := false
	for i, sub := range l.subs {
		if sub == s {
			l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
			found = true
			break
		}
	}
	// already dropped by a failed session or Close
	if !found {
		return
	}
	l.metrics.subscribers.Set(float64(len(l.subs)))
	if len(l.subs) == 0 && l.sess != nil {
		l.log.Info("last subscriber left, stopping session")
		l.sess.cancel()
		l.sess = nil
	}
}

// Subscribers returns the number of attached observers.
func (l *Listener) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Close stops the active session, waits for it to release the connection
// and completes every attached observer. Later subscriptions fail with
// ErrListenerClosed. Close must not be called from an Observer callback.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	sess, last := l.sess, l.last
	subs := l.subs
	l.sess, l.subs = nil, nil
	l.metrics.subscribers.Set(0)
	l.mu.Unlock()

	// stop deliveries before waiting so the poll loop can wind down
	var completed []*subscription
	for _, s := range subs {
		if s.active.Swap(false) {
			completed = append(completed, s)
		}
	}
	if sess != nil {
		sess.cancel()
	}
	if last != nil {
		<-last.done
	}
	for _, s := range completed {
		s.o.OnCompleted()
	}
	return nil
}

// startSession expects l.mu to be held.
func (l *Listener) startSession() {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	prev := l.last
	l.sess, l.last = sess, sess
	go l.run(sess, prev)
}

func (l *Listener) run(sess *session, prev *session) {
	defer close(sess.done)
	defer sess.cancel()

	// the previous activation may still be closing its connection
	if prev != nil {
		select {
		case <-prev.done:
		case <-sess.ctx.Done():
			return
		}
	}

	if err := l.stream(sess); err != nil {
		l.fail(sess, err)
	}
}

// stream runs a session to completion: connect, validate the partition,
// open the receiver and poll. Resources are released receiver first, then
// connection.
func (l *Listener) stream(sess *session) error {
	l.log.Info("opening event hub session")
	l.metrics.sessions.Add(1)

	c, err := l.dial(sess.ctx, l.cfg)
	if err != nil {
		return errors.Wrap(err, "unable to connect to event hub")
	}
	defer func() {
		closeQuietly(c, l.log, "connection")
		l.log.Info("event hub session closed")
	}()

	if _, err = validatePartition(c, l.cfg.PartitionID); err != nil {
		return err
	}
	if sess.ctx.Err() != nil {
		return nil
	}

	rcv, err := c.Receiver(l.cfg.ConsumerGroup, l.cfg.PartitionID, *l.cfg.StartOffset)
	if err != nil {
		return errors.Wrap(err, "unable to open partition receiver")
	}
	defer closeQuietly(rcv, l.log, "receiver")

	p := &poller{
		rcv:       rcv,
		batchSize: *l.cfg.BatchSize,
		period:    *l.cfg.IdlePeriod,
		deliver:   l.deliver,
		metrics:   l.metrics,
		log:       l.log,
	}
	return p.run(sess.ctx)
}

// deliver hands a batch to the observers attached when it arrived.
func (l *Listener) deliver(recs []*pubsub.Record) {
	l.mu.Lock()
	subs := append([]*subscription(nil), l.subs...)
	l.mu.Unlock()

	for _, r := range recs {
		for _, s := range subs {
			if s.active.Load() {
				s.o.OnNext(r)
				l.metrics.delivered.Add(1)
			}
		}
	}
}

// fail ends the session with a terminal error. Observers are only notified
// if sess is still the active session; a session that was already stopped
// has nobody left to tell.
func (l *Listener) fail(sess *session, err error) {
	l.mu.Lock()
	if l.sess != sess {
		l.mu.Unlock()
		l.log.WithField("error", err).Debug("stopped session ended with error")
		return
	}
	subs := l.subs
	l.sess, l.subs = nil, nil
	l.metrics.subscribers.Set(0)
	l.mu.Unlock()

	l.metrics.errors.Add(1)
	l.log.WithField("error", err).Error("event hub stream failed")
	for _, s := range subs {
		if s.active.Swap(false) {
			s.o.OnError(err)
		}
	}
}
