package eventhub

import (
	"context"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"github.com/NYTimes/hubstream/pubsub"
)

var errReceiverClosed = errors.New("partition receiver closed")

// saramaReceiver is the receiver implementation over a
// sarama.PartitionConsumer. It turns the consumer's push channel back into
// bounded batches.
type saramaReceiver struct {
	pc            sarama.PartitionConsumer
	partitionID   string
	consumerGroup string
	timeout       time.Duration
}

// Receive waits up to the receive timeout for the first record, then drains
// whatever is already buffered until max records are collected.
func (r *saramaReceiver) Receive(ctx context.Context, max int) ([]*pubsub.Record, error) {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	var recs []*pubsub.Record
	select {
	case msg, ok := <-r.pc.Messages():
		if !ok {
			return nil, errReceiverClosed
		}
		recs = append(recs, r.record(msg))
	case cerr, ok := <-r.pc.Errors():
		if !ok {
			return nil, errReceiverClosed
		}
		return nil, errors.Wrapf(cerr, "consumer group %s", r.consumerGroup)
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for len(recs) < max {
		select {
		case msg, ok := <-r.pc.Messages():
			if !ok {
				return recs, nil
			}
			recs = append(recs, r.record(msg))
		default:
			return recs, nil
		}
	}
	return recs, nil
}

// Close stops the partition consumer.
func (r *saramaReceiver) Close() error {
	return r.pc.Close()
}

func (r *saramaReceiver) record(msg *sarama.ConsumerMessage) *pubsub.Record {
	rec := &pubsub.Record{
		Key:          msg.Key,
		Value:        msg.Value,
		Partition:    r.partitionID,
		Offset:       msg.Offset,
		EnqueuedTime: msg.Timestamp,
	}
	if len(msg.Headers) > 0 {
		rec.Properties = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			if h == nil {
				continue
			}
			rec.Properties[string(h.Key)] = string(h.Value)
		}
	}
	return rec
}
