package config

import (
	"io"
	"net/http"
	"os"

	"github.com/NYTimes/logrotate"
	"github.com/gorilla/handlers"
)

// Server holds info required to serve the stream over HTTP.
type Server struct {
	// HTTPPort is the port the server will serve HTTP over.
	HTTPPort int `envconfig:"HTTP_PORT"`
	// HTTPAccessLog is the location of the http access log. If it is empty,
	// no access logging will be done. "stdout" logs to standard out.
	HTTPAccessLog *string `envconfig:"HTTP_ACCESS_LOG"`
	// ReadTimeout can be used to override the default http server timeout of 10s.
	// The string should be formatted like a time.Duration string.
	ReadTimeout *string `envconfig:"HTTP_READ_TIMEOUT"`
	// StreamPath will override the default websocket route of /svc/v1/stream.
	StreamPath *string `envconfig:"HTTP_STREAM_PATH"`
}

// LoadServerFromEnv will attempt to load a Server object
// from environment variables. If not populated, nil
// is returned.
func LoadServerFromEnv() *Server {
	var server Server
	LoadEnvConfig(&server)
	if server.HTTPPort != 0 || server.HTTPAccessLog != nil {
		return &server
	}
	return nil
}

// NewAccessLogMiddleware will wrap a logrotate-aware Apache-style access log handler
// around the given http.Handler if an access log location is provided by the config,
// or optionally send access logs to stdout.
func NewAccessLogMiddleware(logLocation *string, handler http.Handler) (http.Handler, error) {
	if logLocation == nil {
		return handler, nil
	}
	var lw io.Writer
	var err error
	if *logLocation == "stdout" {
		lw = os.Stdout
	} else {
		lw, err = logrotate.NewFile(*logLocation)
		if err != nil {
			return nil, err
		}
	}
	return handlers.CombinedLoggingHandler(lw, handler), nil
}
