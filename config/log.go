package config

import (
	"os"

	"github.com/NYTimes/logrotate"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus logger writing to a logrotate-aware file at
// location, or to stderr when location is empty. File output is JSON
// formatted. An empty level means "info".
func NewLogger(location, level string) (*logrus.Logger, error) {
	lg := logrus.New()
	if location != "" {
		lf, err := logrotate.NewFile(location)
		if err != nil {
			return nil, errors.Wrap(err, "unable to access log file")
		}
		lg.Out = lf
		// json output when writing to file
		lg.Formatter = &logrus.JSONFormatter{}
	} else {
		lg.Out = os.Stderr
	}

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	lg.Level = lvl
	return lg, nil
}

// NewLogger calls the package level NewLogger with the Log and LogLevel values of
// cfg, either of which may be nil.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	var location, level string
	if c.Log != nil {
		location = *c.Log
	}
	if c.LogLevel != nil {
		level = *c.LogLevel
	}
	return NewLogger(location, level)
}
