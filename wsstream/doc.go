/*
Package wsstream serves a pubsub.Observable over websockets.

Every connected client becomes one subscriber of the source, so any number of
clients reading the same Listener share a single broker connection. Records
are written as CloudEvents 1.0 JSON envelopes:

	{
	  "specversion": "1.0",
	  "id": "0-1842",
	  "source": "/telemetry/partitions/0",
	  "type": "com.nytimes.hubstream.record",
	  "time": "2018-11-27T12:00:00Z",
	  "datacontenttype": "application/json",
	  "partition": "0",
	  "offset": "1842",
	  "data": {"temp": 21.5}
	}

Payloads that are not valid JSON are sent base64 encoded in "data_base64".
When a Publisher is configured, text messages from the client are published
to it.
*/
package wsstream // import "github.com/NYTimes/hubstream/wsstream"
