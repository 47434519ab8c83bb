package main

//
// Configuration
//
// We read the configuration from the environment, then from the
// optional TOML file, and then from the command line flags. Each
// source overrides the non-empty settings of the previous one.
//

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/shlex"
)

// Config contains the torch configuration.
type Config struct {
	// ExtraArgs contains extra arguments for tor.
	ExtraArgs string `toml:"extra_args"`

	// Library is the tor library: one of auto, exec and embedded.
	Library string `toml:"library"`

	// Metrics is the endpoint where to serve prometheus metrics.
	Metrics string `toml:"metrics"`

	// PIDFile is the file where we write the pids of the children.
	PIDFile string `toml:"pid_file"`

	// Strategy is the launcher strategy.
	Strategy string `toml:"strategy"`

	// TorBinary is the tor binary used by the exec library.
	TorBinary string `toml:"tor_binary"`
}

// These are the environment variables we read.
const (
	extraArgsEnv = "TORCH_EXTRA_ARGS"
	libraryEnv   = "TORCH_LIBRARY"
	strategyEnv  = "TORCH_STRATEGY"
	torBinaryEnv = "TORCH_TOR_BINARY"
)

// configFromEnv reads the configuration from the environment.
func configFromEnv(getenv func(key string) string) *Config {
	return &Config{
		ExtraArgs: getenv(extraArgsEnv),
		Library:   getenv(libraryEnv),
		Metrics:   "",
		PIDFile:   "",
		Strategy:  getenv(strategyEnv),
		TorBinary: getenv(torBinaryEnv),
	}
}

// errUnknownConfigKeys indicates that the config file contains keys we don't know.
var errUnknownConfigKeys = errors.New("unknown configuration keys")

// loadConfigFile reads the configuration from a TOML file.
func loadConfigFile(path string) (*Config, error) {
	config := &Config{}
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("%s: %w: %s", path, errUnknownConfigKeys, strings.Join(keys, ", "))
	}
	return config, nil
}

// merge overrides c's settings with the non-empty settings of other.
func (c *Config) merge(other *Config) {
	override := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	override(&c.ExtraArgs, other.ExtraArgs)
	override(&c.Library, other.Library)
	override(&c.Metrics, other.Metrics)
	override(&c.PIDFile, other.PIDFile)
	override(&c.Strategy, other.Strategy)
	override(&c.TorBinary, other.TorBinary)
}

// loadConfig builds the configuration from the environment, the
// optional config file and the given command line flags.
func (p *program) loadConfig(flags *Config) (*Config, error) {
	config := configFromEnv(p.getenv)
	if p.configFile != "" {
		fileConfig, err := loadConfigFile(p.configFile)
		if err != nil {
			return nil, err
		}
		config.merge(fileConfig)
	}
	config.merge(flags)
	return config, nil
}

// torArgs returns the tor argv given the command line arguments.
func (c *Config) torArgs(args []string) ([]string, error) {
	argv := append([]string{}, args...)
	if len(argv) <= 0 {
		argv = append(argv, "tor")
	}
	extra, err := shlex.Split(c.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("cannot parse extra args: %w", err)
	}
	return append(argv, extra...), nil
}
