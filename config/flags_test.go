package config

import (
	"flag"
	"os"
	"testing"
)

func TestSetFlagOverridesUnset(t *testing.T) {
	// setup new flagset
	flag.CommandLine = flag.NewFlagSet("", flag.ExitOnError)
	os.Args = []string{""}
	// test with no flags set
	givenLog := "log.log"
	wantLog := givenLog
	givenConfig := "dftConfig.json"
	wantConfig := givenConfig

	SetFlagOverrides(&givenLog, &givenConfig)

	if givenLog != wantLog {
		t.Errorf("expected log value to be unchanged, but it was %q", givenLog)
	}
	if givenConfig != wantConfig {
		t.Errorf("expected config value to be unchanged, but it was %q", givenConfig)
	}
}

func TestSetFlagOverridesSet(t *testing.T) {
	// setup new flagset
	flag.CommandLine = flag.NewFlagSet("", flag.ExitOnError)
	givenLog := "log.log"
	wantLog := "cli.log"
	givenConfig := "dftConfig.json"
	wantConfig := "consul:hubstream/conf"

	os.Args = []string{"", "-log", wantLog, "-config", wantConfig}
	SetFlagOverrides(&givenLog, &givenConfig)

	if givenLog != wantLog {
		t.Errorf("expected log value to be %q, but it was %q", wantLog, givenLog)
	}
	if givenConfig != wantConfig {
		t.Errorf("expected config value to be %q, but it was %q", wantConfig, givenConfig)
	}
}

func TestSetLogOverrideDev(t *testing.T) {
	// setup new flagset
	flag.CommandLine = flag.NewFlagSet("", flag.ExitOnError)
	givenLog := "/var/log/hubstream.log"

	os.Args = []string{"", "-log", "dev"}
	SetLogOverride(&givenLog)

	if givenLog != "" {
		t.Errorf("expected the dev flag to clear the log location, but it was %q", givenLog)
	}
}
