/*
Package pubsub contains the generic interfaces for consuming a partitioned
event stream as a push sequence and for publishing records back to it.

	// Observable is the producing half of a push stream.
	type Observable interface {
	    Subscribe(Observer) Subscription
	}

	// Observer is the consuming half of a push stream.
	type Observer interface {
	    OnNext(*Record)
	    OnError(error)
	    OnCompleted()
	}

An Observable delivers records to an Observer in order and finishes with at
most one terminal notification. Unsubscribing detaches the Observer; when the
last Observer of a shared stream leaves, the underlying connection is torn down.

For code that prefers ranging over a channel, NewSubscriber adapts any
Observable to the channel based Subscriber interface:

	// Subscriber is a generic interface to encapsulate how we want our subscribers
	// to behave. For now the system will auto stop if it encounters any errors. If
	// a user encounters a closed channel, they should check the Err() method to see
	// what happened.
	type Subscriber interface {
	    // Start will return a channel of raw messages
	    Start() <-chan SubscriberMessage
	    // Err will contain any errors returned from the consumer connection.
	    Err() error
	    // Stop will initiate a graceful shutdown of the subscriber connection
	    Stop() error
	}

Publishers implement:

	type Publisher interface {
	    Publish(ctx context.Context, key string, msg proto.Message) error
	    PublishRaw(ctx context.Context, key string, msg []byte) error
	}

For Azure Event Hubs (through its Kafka endpoint), use the `pubsub/eventhub` package.
*/
package pubsub // import "github.com/NYTimes/hubstream/pubsub"
