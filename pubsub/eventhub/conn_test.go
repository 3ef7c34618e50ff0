package eventhub

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/NYTimes/hubstream/pubsub"
)

func TestSaramaConnPartitions(t *testing.T) {
	cnsmr := mocks.NewConsumer(t, nil)
	cnsmr.SetTopicMetadata(map[string][]int32{
		"hub":   {2, 0, 1},
		"other": {0},
	})
	c := newSaramaConn(cnsmr, "hub", time.Millisecond)
	defer c.Close()

	got, err := c.Partitions()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff([]string{"0", "1", "2"}, got); diff != "" {
		t.Errorf("unexpected partitions (-want +got):\n%s", diff)
	}

	if _, err = validatePartition(c, "1"); err != nil {
		t.Errorf("expected partition 1 to be valid, got %s", err)
	}
	if _, err = validatePartition(c, "7"); err == nil {
		t.Error("expected partition 7 to be rejected")
	}
}

func TestSaramaReceiverBatches(t *testing.T) {
	cnsmr := mocks.NewConsumer(t, nil)
	cnsmr.SetTopicMetadata(map[string][]int32{"hub": {0}})
	pc := cnsmr.ExpectConsumePartition("hub", 0, sarama.OffsetOldest)
	enqueued := time.Date(2018, 11, 27, 12, 0, 0, 0, time.UTC)
	for _, v := range []string{"1", "2", "3"} {
		pc.YieldMessage(&sarama.ConsumerMessage{
			Key:       []byte("key-" + v),
			Value:     []byte(v),
			Timestamp: enqueued,
			Headers:   []*sarama.RecordHeader{{Key: []byte("source"), Value: []byte("test")}},
		})
	}

	// the mock consumer closes its partition consumers on Close, so only
	// the receiver is closed here
	c := newSaramaConn(cnsmr, "hub", 50*time.Millisecond)

	rcv, err := c.Receiver(DefaultConsumerGroup, "0", sarama.OffsetOldest)
	if err != nil {
		t.Fatalf("unable to open receiver: %s", err)
	}
	defer rcv.Close()

	ctx := context.Background()
	first, err := rcv.Receive(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected receive error: %s", err)
	}
	if got := values(first); !cmp.Equal(got, []string{"1", "2"}) {
		t.Errorf("expected the first batch to be capped at 2, got %v", got)
	}
	if first[0].Partition != "0" || !first[0].EnqueuedTime.Equal(enqueued) {
		t.Errorf("unexpected record metadata: %+v", first[0])
	}
	if first[0].Properties["source"] != "test" || string(first[0].Key) != "key-1" {
		t.Errorf("unexpected record key or properties: %+v", first[0])
	}

	second, err := rcv.Receive(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected receive error: %s", err)
	}
	if got := values(second); !cmp.Equal(got, []string{"3"}) {
		t.Errorf("expected the remaining record, got %v", got)
	}

	start := time.Now()
	empty, err := rcv.Receive(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected receive error: %s", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected an empty batch, got %v", values(empty))
	}
	if waited := time.Since(start); waited < 50*time.Millisecond {
		t.Errorf("expected an empty receive to wait for the receive timeout, waited %s", waited)
	}
}

func TestSaramaReceiverError(t *testing.T) {
	cnsmr := mocks.NewConsumer(t, nil)
	cnsmr.SetTopicMetadata(map[string][]int32{"hub": {0}})
	pc := cnsmr.ExpectConsumePartition("hub", 0, sarama.OffsetNewest)
	pc.YieldError(sarama.ErrOffsetOutOfRange)

	c := newSaramaConn(cnsmr, "hub", time.Second)

	rcv, err := c.Receiver(DefaultConsumerGroup, "0", sarama.OffsetNewest)
	if err != nil {
		t.Fatalf("unable to open receiver: %s", err)
	}
	defer rcv.Close()

	_, err = rcv.Receive(context.Background(), 10)
	if err == nil {
		t.Fatal("expected the consumer error to surface from Receive")
	}
	if !strings.Contains(err.Error(), "consumer group "+DefaultConsumerGroup) {
		t.Errorf("expected the consumer group in %q", err)
	}
	cerr, ok := errors.Cause(err).(*sarama.ConsumerError)
	if !ok || cerr.Err != sarama.ErrOffsetOutOfRange {
		t.Errorf("expected the consumer error as the cause, got %#v", errors.Cause(err))
	}
}

func TestSaramaConnInvalidPartitionID(t *testing.T) {
	c := newSaramaConn(mocks.NewConsumer(t, nil), "hub", time.Second)
	defer c.Close()

	if _, err := c.Receiver(DefaultConsumerGroup, "zero", sarama.OffsetNewest); err == nil {
		t.Error("expected a non numeric partition id to be rejected")
	}
}

func TestSaramaConnCloseIsIdempotent(t *testing.T) {
	c := newSaramaConn(mocks.NewConsumer(t, nil), "hub", time.Second)
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %s", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("unexpected error on second close: %s", err)
	}
}

func TestSaramaConfig(t *testing.T) {
	conn := Connection{
		ConnectionString: "Endpoint=sb://ns.servicebus.windows.net/;SharedAccessKeyName=send;SharedAccessKey=secret",
		EntityPath:       "telemetry",
	}
	brokers, err := conn.brokers()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff([]string{"ns.servicebus.windows.net:9093"}, brokers); diff != "" {
		t.Errorf("unexpected brokers (-want +got):\n%s", diff)
	}

	sconfig := conn.saramaConfig(brokers)
	if !sconfig.Net.SASL.Enable || sconfig.Net.SASL.User != "$ConnectionString" {
		t.Errorf("expected SASL with the connection string user, got %+v", sconfig.Net.SASL)
	}
	wantPassword := conn.ConnectionString + ";EntityPath=telemetry"
	if sconfig.Net.SASL.Password != wantPassword {
		t.Errorf("expected password %q, got %q", wantPassword, sconfig.Net.SASL.Password)
	}
	if !sconfig.Net.TLS.Enable || sconfig.Net.TLS.Config.ServerName != "ns.servicebus.windows.net" {
		t.Errorf("expected TLS against the namespace host, got %+v", sconfig.Net.TLS)
	}

	custom := sarama.NewConfig()
	conn.Config = custom
	if conn.saramaConfig(brokers) != custom {
		t.Error("expected a user supplied config to be used as-is")
	}

	conn.BrokerHosts = []string{"localhost:9092"}
	if brokers, _ = conn.brokers(); !cmp.Equal(brokers, []string{"localhost:9092"}) {
		t.Errorf("expected explicit broker hosts to win, got %v", brokers)
	}
}

func values(recs []*pubsub.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = string(r.Value)
	}
	return out
}
