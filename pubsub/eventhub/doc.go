/*
Package eventhub exposes an Azure Event Hubs partition as a shared push stream
and provides a sink for publishing records back to an event hub. Both talk to
the namespace's Kafka endpoint through the Shopify/sarama library.

A Listener reads a single partition. The connection is opened lazily when the
first Observer subscribes and is closed when the last one unsubscribes:

	l, err := eventhub.NewPartitionListener("telemetry", connStr, "0")
	if err != nil {
	    return err
	}
	sub := l.Subscribe(pubsub.ObserverFuncs{
	    Next:  func(r *pubsub.Record) { fmt.Println(string(r.Value)) },
	    Error: func(err error) { log.Print(err) },
	})
	defer sub.Unsubscribe()

On each session the listener checks that the configured partition exists,
then repeatedly receives up to BatchSize records. Busy partitions are drained
with no delay between batches; after an empty receive the listener waits
IdlePeriod before trying again. A failed session delivers one error to every
subscriber and is not retried; subscribe again to reconnect.

Offsets are not persisted: every session starts at StartOffset.
*/
package eventhub // import "github.com/NYTimes/hubstream/pubsub/eventhub"
