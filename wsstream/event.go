package wsstream

import (
	"encoding/json"
	"strconv"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/pkg/errors"

	"github.com/NYTimes/hubstream/pubsub"
)

// DefaultEventType is the CloudEvents type of records written to clients.
const DefaultEventType = "com.nytimes.hubstream.record"

// NewEvent wraps r in a CloudEvent. entityPath names the event hub the
// record was read from.
func NewEvent(entityPath, eventType string, r *pubsub.Record) (cloudevents.Event, error) {
	ev := cloudevents.NewEvent()
	ev.SetID(r.ID())
	ev.SetSource("/" + entityPath + "/partitions/" + r.Partition)
	ev.SetType(eventType)
	if !r.EnqueuedTime.IsZero() {
		ev.SetTime(r.EnqueuedTime)
	}
	if len(r.Key) > 0 {
		ev.SetSubject(string(r.Key))
	}
	ev.SetExtension("partition", r.Partition)
	ev.SetExtension("offset", strconv.FormatInt(r.Offset, 10))

	var err error
	if json.Valid(r.Value) {
		// raw bytes would be base64 encoded, RawMessage stays inline
		err = ev.SetData(cloudevents.ApplicationJSON, json.RawMessage(r.Value))
	} else {
		err = ev.SetData("application/octet-stream", r.Value)
	}
	if err != nil {
		return ev, errors.Wrap(err, "unable to set event data")
	}
	if err = ev.Validate(); err != nil {
		return ev, errors.Wrap(err, "invalid event")
	}
	return ev, nil
}
