package wsstream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/NYTimes/hubstream/pubsub"
)

func TestNewEventEncoding(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		want   string
		absent string
	}{
		{"json object", `{"a":1}`, `"data":{"a":1}`, "data_base64"},
		{"json nested", `{"temp":21.5,"tags":["a","b"]}`, `"data":{"temp":21.5,"tags":["a","b"]}`, "data_base64"},
		{"json string", `"hi"`, `"data":"hi"`, "data_base64"},
		{"binary", "\x00\x01", `"data_base64":"AAE="`, `"data":`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ev, err := NewEvent("hub", DefaultEventType, &pubsub.Record{Value: []byte(test.value), Partition: "3", Offset: 7})
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			b, err := json.Marshal(ev)
			if err != nil {
				t.Fatalf("unable to marshal: %s", err)
			}
			if !strings.Contains(string(b), test.want) {
				t.Errorf("expected %s in %s", test.want, b)
			}
			if strings.Contains(string(b), test.absent) {
				t.Errorf("did not expect %s in %s", test.absent, b)
			}
			if ev.ID() != "3-7" || ev.Source() != "/hub/partitions/3" {
				t.Errorf("unexpected id or source: %q %q", ev.ID(), ev.Source())
			}
		})
	}
}
