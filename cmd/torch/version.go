package main

import (
	"fmt"

	"github.com/apex/log"
	"github.com/ooni/torch/internal/launcher"
	"github.com/spf13/cobra"
)

// registerVersion registers the version subcommand.
func registerVersion(rootCmd *cobra.Command, p *program) {
	options := &Config{}
	subCmd := &cobra.Command{
		Use:   "version",
		Short: "Prints tor's provider version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.version(options)
		},
	}
	rootCmd.AddCommand(subCmd)
	flags := subCmd.Flags()

	flags.StringVar(
		&options.Library,
		"library",
		"",
		"tor library to use (one of: auto, embedded, exec)",
	)

	flags.StringVar(
		&options.TorBinary,
		"tor-binary",
		"",
		"execute a specific tor binary",
	)
}

// version implements the version subcommand.
func (p *program) version(options *Config) error {
	config, err := p.loadConfig(options)
	if err != nil {
		return err
	}
	library, err := newLibrary(p.logger, config)
	if err != nil {
		return err
	}
	l := launcher.New(&launcher.Config{Library: library, Logger: p.logger})
	version := l.Version()
	fmt.Fprintln(p.stdout, version)

	p.logger.WithFields(log.Fields{
		"type":     "table",
		"library":  fmt.Sprintf("%T", library),
		"strategy": l.Strategy().String(),
		"tor":      version,
	}).Debug("version")
	return nil
}
