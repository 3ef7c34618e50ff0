package eventhub

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/NYTimes/hubstream/pubsub"
)

// connectionStringUser is the fixed SASL user Event Hubs expects when the
// password is a SAS connection string.
const connectionStringUser = "$ConnectionString"

// interfaces and types to make this more testable
type (
	// conn is an open connection to one event hub.
	conn interface {
		// Partitions returns the partition ids the broker reports for the
		// event hub.
		Partitions() ([]string, error)
		// Receiver opens a receiver bound to one consumer group and partition.
		Receiver(consumerGroup, partitionID string, offset int64) (receiver, error)
		io.Closer
	}

	// receiver pulls batches from a single partition.
	receiver interface {
		// Receive returns up to max records. An empty result means the
		// partition had nothing to offer within the receive timeout.
		Receive(ctx context.Context, max int) ([]*pubsub.Record, error)
		io.Closer
	}

	dialFunc func(context.Context, Config) (conn, error)
)

// brokers resolves the bootstrap addresses for the connection.
func (c *Connection) brokers() ([]string, error) {
	if len(c.BrokerHosts) > 0 {
		return c.BrokerHosts, nil
	}
	host, err := brokerHost(c.ConnectionString)
	if err != nil {
		return nil, err
	}
	return []string{host}, nil
}

// saramaConfig returns the client configuration for the Event Hubs Kafka
// endpoint. A user supplied config is used as-is when present.
func (c *Connection) saramaConfig(brokers []string) *sarama.Config {
	if c.Config != nil {
		return c.Config
	}
	sconfig := sarama.NewConfig()
	sconfig.ClientID = "hubstream"
	sconfig.Version = sarama.V1_0_0_0
	sconfig.Net.TLS.Enable = true
	sconfig.Net.TLS.Config = &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: serverName(brokers),
	}
	sconfig.Net.SASL.Enable = true
	sconfig.Net.SASL.User = connectionStringUser
	sconfig.Net.SASL.Password = withEntityPath(c.ConnectionString, c.EntityPath)
	return sconfig
}

func serverName(brokers []string) string {
	if len(brokers) == 0 {
		return ""
	}
	host, _, err := net.SplitHostPort(brokers[0])
	if err != nil {
		return brokers[0]
	}
	return host
}

// dialSarama opens a sarama consumer scoped to cfg.EntityPath.
func dialSarama(_ context.Context, cfg Config) (conn, error) {
	brokers, err := cfg.brokers()
	if err != nil {
		return nil, err
	}
	sconfig := cfg.saramaConfig(brokers)
	// we always want to see errors, no matter what
	sconfig.Consumer.Return.Errors = true

	cnsmr, err := sarama.NewConsumer(brokers, sconfig)
	if err != nil {
		return nil, err
	}
	return newSaramaConn(cnsmr, cfg.EntityPath, *cfg.ReceiveTimeout), nil
}

// saramaConn is the conn implementation over a sarama.Consumer.
type saramaConn struct {
	cnsmr   sarama.Consumer
	topic   string
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func newSaramaConn(cnsmr sarama.Consumer, topic string, timeout time.Duration) *saramaConn {
	return &saramaConn{cnsmr: cnsmr, topic: topic, timeout: timeout}
}

// Partitions returns the partition ids in ascending order.
func (c *saramaConn) Partitions() ([]string, error) {
	parts, err := c.cnsmr.Partitions(c.topic)
	if err != nil {
		return nil, err
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
	ids := make([]string, len(parts))
	for i, p := range parts {
		ids[i] = strconv.FormatInt(int64(p), 10)
	}
	return ids, nil
}

// Receiver starts a partition consumer. Kafka partition consumers carry no
// group membership, so the consumer group only labels receive errors.
func (c *saramaConn) Receiver(consumerGroup, partitionID string, offset int64) (receiver, error) {
	partition, err := strconv.ParseInt(partitionID, 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid partition id %q", partitionID)
	}
	pc, err := c.cnsmr.ConsumePartition(c.topic, int32(partition), offset)
	if err != nil {
		return nil, err
	}
	return &saramaReceiver{
		pc:            pc,
		partitionID:   partitionID,
		consumerGroup: consumerGroup,
		timeout:       c.timeout,
	}, nil
}

// Close closes the underlying consumer once. Later calls return the
// result of the first.
func (c *saramaConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.cnsmr.Close()
	})
	return c.closeErr
}

// closeQuietly closes c and discards any error. Teardown failures are
// never surfaced to subscribers.
func closeQuietly(c io.Closer, log *logrus.Entry, what string) {
	if err := c.Close(); err != nil {
		log.WithField("error", err).Debugf("unable to close %s", what)
	}
}
