package metrics

import (
	"expvar"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/dogstatsd"
	"github.com/go-kit/kit/metrics/graphite"
	"github.com/go-kit/kit/metrics/provider"
	"github.com/go-kit/kit/metrics/statsd"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Type acts as an 'enum' type to represent
// the available metrics providers
type Type string

const (
	// Statsd is used by config to indicate use of the statsdProvider.
	Statsd Type = "statsd"
	// DogStatsd is used by config to indicate use of the dogstatsdProvider.
	DogStatsd Type = "dogstatsd"
	// Prometheus is used by config to indicate use of the prometheusProvider.
	Prometheus Type = "prometheus"
	// Graphite is used by config to indicate use of the graphiteProvider.
	Graphite Type = "graphite"
	// Expvar is used by config to indicate use of the expvarProvider.
	Expvar Type = "expvar"
	// Discard is used by config to indicate use of the discardProvider.
	Discard Type = "discard"
)

// Metrics config can be used to configure and instantiate a new
// go-kit/kit/metrics/provider.Provider for the listener and sink.
type Metrics struct {
	Type Type `envconfig:"METRICS_TYPE"`

	// Prefix will be prefixed onto
	// any metric name.
	Prefix string `envconfig:"METRICS_PREFIX"`

	// Namespace is used by prometheus.
	Namespace string `envconfig:"METRICS_NAMESPACE"`
	// Subsystem is used by prometheus.
	Subsystem string `envconfig:"METRICS_SUBSYSTEM"`

	// Used by statsd, graphite and dogstatsd
	Interval time.Duration `envconfig:"METRICS_INTERVAL"`

	// Used by statsd, graphite and dogstatsd.
	Addr string `envconfig:"METRICS_ADDR"`
	// Used by statsd, graphite and dogstatsd to dial a connection.
	// If empty, will default to "udp".
	Network string `envconfig:"METRICS_NETWORK"`

	// Path is where pull based providers are served. If empty, it
	// defaults to "/debug/vars" for expvar and "/metrics" otherwise.
	Path string `envconfig:"METRICS_PATH"`

	// Used by graphite only.
	// If none provided, kit/log/NewNopLogger will be used.
	Logger log.Logger `ignored:"true" json:"-"`
}

// LoadFromEnv will attempt to load a Metrics object
// from environment variables. Malformed values are an error.
func LoadFromEnv() (Metrics, error) {
	var mets Metrics
	if err := envconfig.Process("", &mets); err != nil {
		return mets, errors.Wrap(err, "unable to load metrics config")
	}
	return mets, nil
}

// NewProvider will use the values in the Metrics config object
// to generate a new go-kit/metrics/provider.Provider implementation.
// If no type is given, a no-op implementation will be used.
func (cfg Metrics) NewProvider() (provider.Provider, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Second * 30
	}
	if cfg.Network == "" {
		cfg.Network = "udp"
	}
	switch cfg.Type {
	case Statsd:
		tick := time.NewTicker(cfg.Interval)
		stsd := statsd.New(cfg.Prefix, cfg.Logger)
		go stsd.SendLoop(tick.C, cfg.Network, cfg.Addr)
		return provider.NewStatsdProvider(stsd, tick.Stop), nil
	case DogStatsd:
		tick := time.NewTicker(cfg.Interval)
		stsd := dogstatsd.New(cfg.Prefix, cfg.Logger)
		go stsd.SendLoop(tick.C, cfg.Network, cfg.Addr)
		return provider.NewDogstatsdProvider(stsd, tick.Stop), nil
	case Graphite:
		tick := time.NewTicker(cfg.Interval)
		grpht := graphite.New(cfg.Prefix, cfg.Logger)
		go grpht.SendLoop(tick.C, cfg.Network, cfg.Addr)
		return provider.NewGraphiteProvider(grpht, tick.Stop), nil
	case Prometheus:
		return provider.NewPrometheusProvider(cfg.Namespace, cfg.Subsystem), nil
	case Expvar:
		return provider.NewExpvarProvider(), nil
	case Discard, "":
		return provider.NewDiscardProvider(), nil
	default:
		return nil, errors.Errorf("unknown metrics type %q", cfg.Type)
	}
}

// HandlerPath is where Handler should be mounted: Path when set, otherwise
// /debug/vars for expvar and /metrics for everything else.
func (cfg Metrics) HandlerPath() string {
	switch {
	case cfg.Path != "":
		return cfg.Path
	case cfg.Type == Expvar:
		return "/debug/vars"
	default:
		return "/metrics"
	}
}

// Handler returns the HTTP handler that exposes metrics for scraping, if
// the configured provider is pull based. Push based providers return nil.
func (cfg Metrics) Handler() http.Handler {
	switch cfg.Type {
	case Prometheus:
		return promhttp.Handler()
	case Expvar:
		return expvar.Handler()
	default:
		return nil
	}
}
