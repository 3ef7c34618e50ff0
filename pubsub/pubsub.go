package pubsub

import (
	"context"

	"github.com/golang/protobuf/proto"
	"github.com/sirupsen/logrus"
)

// Log is the structured logger used throughout the package.
var Log = logrus.New()

// Publisher is a generic interface to encapsulate how we want our publishers
// to behave.
type Publisher interface {
	// Publish will publish a message with context.
	Publish(context.Context, string, proto.Message) error
	// Publish will publish a raw byte array as a message with context.
	PublishRaw(context.Context, string, []byte) error
}

// Observer is the consuming half of a push stream. An Observable calls OnNext
// for every record in order and finishes with at most one call to either
// OnError or OnCompleted.
type Observer interface {
	OnNext(*Record)
	OnError(error)
	OnCompleted()
}

// Observable is the producing half of a push stream.
type Observable interface {
	// Subscribe attaches the Observer to the stream. Records start flowing
	// asynchronously; the returned Subscription detaches it again.
	Subscribe(Observer) Subscription
}

// Subscription detaches an Observer from an Observable. Unsubscribe is safe
// to call more than once.
type Subscription interface {
	Unsubscribe()
}

// Subscriber is a generic interface to encapsulate how we want our subscribers
// to behave. For now the system will auto stop if it encounters any errors. If
// a user encounters a closed channel, they should check the Err() method to see
// what happened.
type Subscriber interface {
	// Start will return a channel of raw messages.
	Start() <-chan SubscriberMessage
	// Err will contain any errors returned from the consumer connection.
	Err() error
	// Stop will initiate a graceful shutdown of the subscriber connection.
	Stop() error
}

// SubscriberMessage is a struct to encapsulate subscriber messages and provide
// a mechanism for acknowledging messages _after_ they've been processed.
type SubscriberMessage interface {
	Message() []byte
	Record() *Record
	Done() error
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// fields are ignored.
type ObserverFuncs struct {
	Next      func(*Record)
	Error     func(error)
	Completed func()
}

// OnNext calls Next if set.
func (o ObserverFuncs) OnNext(r *Record) {
	if o.Next != nil {
		o.Next(r)
	}
}

// OnError calls Error if set.
func (o ObserverFuncs) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// OnCompleted calls Completed if set.
func (o ObserverFuncs) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}
