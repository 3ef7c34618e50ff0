package eventhub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Shopify/sarama"
	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/NYTimes/hubstream/pubsub"
)

var (
	// RequiredAcks will be used in the sink's sarama config
	// to set the 'RequiredAcks' value.
	RequiredAcks = sarama.WaitForAll

	// ErrSinkClosed is returned by sends on a disposed Sink.
	ErrSinkClosed = errors.New("event hub sink is closed")
)

var (
	_ pubsub.Publisher = &Sink{}
	_ pubsub.Observer  = &Sink{}
)

// Sink publishes records to an event hub. The asynchronous SendAsync is the
// primary operation; Send, Publish and PublishRaw block until the broker
// acknowledged the record. As an Observer, a Sink forwards every record it
// is given and disposes itself on error or completion.
type Sink struct {
	topic   string
	metrics *sinkMetrics
	log     *logrus.Entry

	producer atomic.Pointer[producerHandle]
	// sending is held for reading while a record is handed to the producer
	// so Dispose never closes the input channel under a sender.
	sending sync.RWMutex
	// drained is closed once dispatch has acknowledged every record.
	drained chan struct{}
}

type producerHandle struct {
	sarama.AsyncProducer
}

// NewSink validates cfg and connects an asynchronous producer.
func NewSink(cfg SinkConfig) (*Sink, error) {
	if err := cfg.Connection.validate(); err != nil {
		return nil, err
	}
	brokers, err := cfg.brokers()
	if err != nil {
		return nil, err
	}

	sconfig := cfg.saramaConfig(brokers)
	if cfg.Config == nil {
		sconfig.Producer.Retry.Max = cfg.MaxRetry
		sconfig.Producer.RequiredAcks = RequiredAcks
	}
	// acknowledgements are how Send knows it is done
	sconfig.Producer.Return.Successes = true
	sconfig.Producer.Return.Errors = true

	p, err := sarama.NewAsyncProducer(brokers, sconfig)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create event hub producer")
	}
	return newSink(cfg, p), nil
}

func newSink(cfg SinkConfig, p sarama.AsyncProducer) *Sink {
	s := &Sink{
		topic:   cfg.EntityPath,
		metrics: newSinkMetrics(cfg.metricsProvider()),
		log:     pubsub.Log.WithField("entity_path", cfg.EntityPath),
		drained: make(chan struct{}),
	}
	s.producer.Store(&producerHandle{p})
	go s.dispatch(p)
	return s
}

// SendAsync hands r to the producer and returns a channel that receives
// the broker's verdict exactly once.
func (s *Sink) SendAsync(ctx context.Context, r *pubsub.Record) <-chan error {
	done := make(chan error, 1)

	s.sending.RLock()
	defer s.sending.RUnlock()

	p := s.producer.Load()
	if p == nil {
		done <- ErrSinkClosed
		return done
	}
	select {
	case p.Input() <- s.message(r, done):
	case <-ctx.Done():
		done <- ctx.Err()
	}
	return done
}

// Send blocks until the broker acknowledged r or ctx is done.
func (s *Sink) Send(ctx context.Context, r *pubsub.Record) error {
	select {
	case err := <-s.SendAsync(ctx, r):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish will marshal the proto message and emit it to the event hub.
func (s *Sink) Publish(ctx context.Context, key string, m proto.Message) error {
	mb, err := proto.Marshal(m)
	if err != nil {
		return err
	}
	return s.PublishRaw(ctx, key, mb)
}

// PublishRaw will emit the byte array to the event hub.
func (s *Sink) PublishRaw(ctx context.Context, key string, m []byte) error {
	return s.Send(ctx, &pubsub.Record{Key: []byte(key), Value: m})
}

// OnNext sends r and logs a failure.
func (s *Sink) OnNext(r *pubsub.Record) {
	if err := s.Send(context.Background(), r); err != nil {
		s.log.WithField("error", err).Error("unable to send record")
	}
}

// OnError disposes the sink.
func (s *Sink) OnError(err error) {
	s.log.WithField("error", err).Info("upstream failed, disposing sink")
	s.Dispose()
}

// OnCompleted disposes the sink.
func (s *Sink) OnCompleted() {
	s.Dispose()
}

// Dispose shuts the producer down exactly once and waits until every
// pending record has been acknowledged. Records the producer could not
// flush are acknowledged with its error. Later calls are no-ops.
func (s *Sink) Dispose() {
	p := s.producer.Swap(nil)
	if p == nil {
		return
	}
	// wait out senders that loaded the handle before the swap
	s.sending.Lock()
	p.AsyncClose()
	s.sending.Unlock()
	<-s.drained
}

func (s *Sink) message(r *pubsub.Record, done chan error) *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic:    s.topic,
		Value:    sarama.ByteEncoder(r.Value),
		Metadata: done,
	}
	if len(r.Key) > 0 {
		msg.Key = sarama.ByteEncoder(r.Key)
	}
	for k, v := range r.Properties {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return msg
}

// dispatch routes producer acknowledgements back to the waiting senders
// until the producer has closed both of its result channels. It is the
// only reader of those channels, Close would race it for them.
func (s *Sink) dispatch(p sarama.AsyncProducer) {
	defer close(s.drained)
	successes, errs := p.Successes(), p.Errors()
	for successes != nil || errs != nil {
		select {
		case msg, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			s.metrics.sent.Add(1)
			ack(msg, nil)
		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.metrics.failed.Add(1)
			ack(perr.Msg, perr.Err)
		}
	}
}

func ack(msg *sarama.ProducerMessage, err error) {
	if msg == nil {
		return
	}
	if done, ok := msg.Metadata.(chan error); ok {
		done <- err
	}
}
