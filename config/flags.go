package config

import "flag"

// DefaultConfigLocation is the default filepath for JSON config files.
const DefaultConfigLocation = "/opt/nyt/etc/conf.json"

// SetLogOverride will check the '-log' command line flag for any values
// and override the given string pointer if it is set.
// If the flag is set to "dev", the given log var will be set to "".
func SetLogOverride(log *string) {
	logCLI := flag.String("log", "", "Application log location")
	flag.Parse()
	overrideLog(log, *logCLI)
}

// SetFlagOverrides will check the '-log' and '-config' command line flags
// and override the given string pointers with any values found.
func SetFlagOverrides(log, config *string) {
	logCLI := flag.String("log", "", "Application log location")
	configCLI := flag.String("config", "", "Location of a JSON config file or a consul:path/to/key")
	flag.Parse()

	overrideLog(log, *logCLI)
	if *configCLI != "" {
		*config = *configCLI
	}
}

// if a user passes in 'dev' log flag, override the
// App log to signal for stderr logging.
func overrideLog(log *string, cli string) {
	if cli == "" {
		return
	}
	*log = cli
	if cli == "dev" {
		*log = ""
	}
}
