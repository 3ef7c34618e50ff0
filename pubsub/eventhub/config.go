package eventhub

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/go-kit/kit/metrics/provider"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// DefaultConsumerGroup is the consumer group every event hub is created with.
// It is used when no group is configured.
const DefaultConsumerGroup = "$Default"

var (
	// defaultIdlePeriod is the default time.Duration the listener
	// will wait after a receive call returned no records.
	defaultIdlePeriod = 30 * time.Second
	// defaultBatchSize is the default number of records the listener
	// will request on each receive call.
	defaultBatchSize = 10
	// defaultReceiveTimeout is the default time.Duration a receive call
	// waits for the first record of a batch.
	defaultReceiveTimeout = 2 * time.Second
	// defaultStartOffset starts new sessions at the end of the partition.
	defaultStartOffset = sarama.OffsetNewest
)

type (
	// Connection holds the information required to reach one event hub.
	Connection struct {
		// ConnectionString is the namespace or event hub SAS connection
		// string. It is treated as a secret and never logged.
		ConnectionString string `envconfig:"EVENTHUB_CONNECTION_STRING"`
		// EntityPath is the event hub name.
		EntityPath string `envconfig:"EVENTHUB_ENTITY_PATH"`

		BrokerHosts []string `ignored:"true"`
		// BrokerHostsString is used when loading the list from environment variables.
		// If loaded via the LoadConfigFromEnv() func, BrokerHosts will get updated with
		// these values. When empty, the broker is derived from the connection
		// string's Endpoint.
		BrokerHostsString string `envconfig:"EVENTHUB_BROKER_HOSTS"`

		// Config is a sarama config struct for more control over the underlying
		// Kafka client. When set, it is used as-is apart from the settings the
		// listener and sink depend on.
		Config *sarama.Config `ignored:"true" json:"-"`

		// Metrics receives the stream instrumentation. A discard provider is
		// used when nil.
		Metrics provider.Provider `ignored:"true" json:"-"`
	}

	// Config holds the information required to listen to a single event hub
	// partition.
	Config struct {
		Connection

		// ConsumerGroup defaults to DefaultConsumerGroup.
		ConsumerGroup string `envconfig:"EVENTHUB_CONSUMER_GROUP"`
		PartitionID   string `envconfig:"EVENTHUB_PARTITION_ID"`

		// IdlePeriod will override the default idle period of 30s.
		IdlePeriod *time.Duration `envconfig:"EVENTHUB_IDLE_PERIOD"`
		// BatchSize will override the default batch size of 10.
		BatchSize *int `envconfig:"EVENTHUB_BATCH_SIZE"`
		// ReceiveTimeout will override the default receive timeout of 2s.
		ReceiveTimeout *time.Duration `envconfig:"EVENTHUB_RECEIVE_TIMEOUT"`
		// StartOffset is the offset new sessions start reading from. It
		// defaults to sarama.OffsetNewest.
		StartOffset *int64 `envconfig:"EVENTHUB_START_OFFSET"`
	}

	// SinkConfig holds the information required to publish to an event hub.
	SinkConfig struct {
		Connection

		// MaxRetry will override the sarama producer retry count.
		MaxRetry int `envconfig:"EVENTHUB_MAX_RETRY"`
	}
)

// LoadConfigFromEnv will attempt to load a listener Config from
// environment variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "unable to load event hub config")
	}
	cfg.Connection.splitHosts()
	return cfg, nil
}

// LoadSinkConfigFromEnv will attempt to load a SinkConfig from
// environment variables.
func LoadSinkConfigFromEnv() (SinkConfig, error) {
	var cfg SinkConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "unable to load event hub sink config")
	}
	cfg.Connection.splitHosts()
	return cfg, nil
}

func (c *Connection) splitHosts() {
	if c.BrokerHostsString == "" {
		return
	}
	for _, h := range strings.Split(c.BrokerHostsString, ",") {
		if h = strings.TrimSpace(h); h != "" {
			c.BrokerHosts = append(c.BrokerHosts, h)
		}
	}
}

func (c *Connection) validate() error {
	if strings.TrimSpace(c.ConnectionString) == "" {
		return errors.New("event hub connection string is required")
	}
	if strings.TrimSpace(c.EntityPath) == "" {
		return errors.New("event hub entity path is required")
	}
	return nil
}

func (c *Connection) metricsProvider() provider.Provider {
	if c.Metrics == nil {
		return provider.NewDiscardProvider()
	}
	return c.Metrics
}

func defaultConfig(cfg *Config) {
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = DefaultConsumerGroup
	}
	if cfg.IdlePeriod == nil {
		p := defaultIdlePeriod
		cfg.IdlePeriod = &p
	}
	if cfg.BatchSize == nil {
		n := defaultBatchSize
		cfg.BatchSize = &n
	}
	if cfg.ReceiveTimeout == nil {
		d := defaultReceiveTimeout
		cfg.ReceiveTimeout = &d
	}
	if cfg.StartOffset == nil {
		o := defaultStartOffset
		cfg.StartOffset = &o
	}
}

// validate expects defaults to be applied.
func (c *Config) validate() error {
	if err := c.Connection.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.PartitionID) == "" {
		return errors.New("event hub partition id is required")
	}
	if *c.BatchSize < 1 {
		return errors.Errorf("event hub batch size must be positive, got %d", *c.BatchSize)
	}
	if *c.IdlePeriod < 0 {
		return errors.Errorf("event hub idle period must not be negative, got %s", *c.IdlePeriod)
	}
	if *c.ReceiveTimeout < 0 {
		return errors.Errorf("event hub receive timeout must not be negative, got %s", *c.ReceiveTimeout)
	}
	return nil
}
