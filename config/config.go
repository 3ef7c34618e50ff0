package config

import (
	"encoding/json"
	"io/ioutil"
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/NYTimes/hubstream/config/metrics"
	"github.com/NYTimes/hubstream/pubsub/eventhub"
)

// Config is the composite configuration for a hubstream service: the
// partition it listens to, the event hub it publishes to, how it serves
// HTTP and where it logs and emits metrics.
// If you have a use case that does not fit this struct, you can
// make a struct containing just the types that suit your needs and use
// some of the helper functions in this package to load it from the environment.
type Config struct {
	Server *Server

	EventHub *eventhub.Config
	Sink     *eventhub.SinkConfig

	Metrics *metrics.Metrics

	LogLevel *string `envconfig:"APP_LOG_LEVEL"`
	Log      *string `envconfig:"APP_LOG"`
}

// EnvAppName is used as a prefix for environment variable
// names when using the LoadXFromEnv funcs.
// It defaults to empty.
var EnvAppName = ""

// LoadConfigFromEnv will attempt to inspect the environment
// of any valid config options and will return a populated
// Config struct with what it found.
func LoadConfigFromEnv() *Config {
	var app Config
	LoadEnvConfig(&app)
	app.Server = LoadServerFromEnv()
	app.EventHub = LoadEventHubFromEnv()
	app.Sink = LoadSinkFromEnv()
	mets, err := metrics.LoadFromEnv()
	if err != nil {
		logrus.Fatal(err)
	}
	app.Metrics = &mets
	return &app
}

// LoadEnvConfig will use envconfig to load the
// given config struct from the environment.
func LoadEnvConfig(c interface{}) {
	if err := envconfig.Process(EnvAppName, c); err != nil {
		logrus.Fatal("unable to load env variable: ", err)
	}
}

// LoadEventHubFromEnv will attempt to load a listener config from
// environment variables. If no entity path or partition is set, nil
// is returned.
func LoadEventHubFromEnv() *eventhub.Config {
	cfg, err := eventhub.LoadConfigFromEnv()
	if err != nil {
		logrus.Fatal(err)
	}
	if cfg.EntityPath == "" || cfg.PartitionID == "" {
		return nil
	}
	return &cfg
}

// LoadSinkFromEnv will attempt to load a sink config from environment
// variables. If no entity path is set, nil is returned.
func LoadSinkFromEnv() *eventhub.SinkConfig {
	cfg, err := eventhub.LoadSinkConfigFromEnv()
	if err != nil {
		logrus.Fatal(err)
	}
	if cfg.EntityPath == "" {
		return nil
	}
	return &cfg
}

// LoadJSONFile is a helper function to read a config file into whatever
// config struct you need.
func LoadJSONFile(fileName string, cfg interface{}) error {
	cb, err := ioutil.ReadFile(fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to read config file '%s'", fileName)
	}
	if err = json.Unmarshal(cb, cfg); err != nil {
		return errors.Wrapf(err, "unable to parse JSON in config file '%s'", fileName)
	}
	return nil
}

// KVGetter is the part of the Consul KV client LoadJSONFromConsulKV needs.
type KVGetter interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// NewConsulKV returns a KV client for the local Consul agent. It assumes
// the agent is running with the default setup, where the HTTP API is found
// via 127.0.0.1:8500 or CONSUL_HTTP_ADDR.
func NewConsulKV() (KVGetter, error) {
	client, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		return nil, errors.Wrap(err, "unable to setup Consul client")
	}
	return client.KV(), nil
}

// LoadJSONFromConsulKV is a helper function to read a JSON string found
// in a path defined by configKeyParameter (consul:path/to/JSON/string)
// inside Consul's Key Value storage, then unmarshal it into a config
// struct like LoadJSONFile does.
func LoadJSONFromConsulKV(kv KVGetter, configKeyParameter string, cfg interface{}) error {
	configKeyParameterValue := strings.SplitN(configKeyParameter, ":", 2)
	if len(configKeyParameterValue) < 2 || configKeyParameterValue[1] == "" {
		return errors.New("undefined Consul KV configuration path, it should be defined using the format consul:path/to/JSON/string")
	}
	configKey := configKeyParameterValue[1]
	kvPair, _, err := kv.Get(configKey, nil)
	if err != nil {
		return errors.Wrapf(err, "unable to read config in key '%s' from Consul KV", configKey)
	}
	if kvPair == nil {
		return errors.Errorf("undefined key '%s' in Consul KV", configKey)
	}
	if len(kvPair.Value) == 0 {
		return errors.Errorf("empty JSON in Consul KV for key '%s'", configKey)
	}
	if err = json.Unmarshal(kvPair.Value, cfg); err != nil {
		return errors.Wrapf(err, "unable to parse JSON in Consul KV for key '%s'", configKey)
	}
	return nil
}

// NewConfig will attempt to unmarshal the contents
// of the given JSON string source into a Config struct.
// The value of fileName can be either the path to a JSON
// file or a path to a JSON string found in Consul's Key
// Value storage (using the format consul:path/to/JSON/string).
// If the value of fileName is empty, the config is loaded
// from the environment instead.
func NewConfig(fileName string) (*Config, error) {
	if fileName == "" {
		return LoadConfigFromEnv(), nil
	}
	var c Config
	if strings.HasPrefix(fileName, "consul:") {
		kv, err := NewConsulKV()
		if err != nil {
			return nil, err
		}
		return &c, LoadJSONFromConsulKV(kv, fileName, &c)
	}
	return &c, LoadJSONFile(fileName, &c)
}
