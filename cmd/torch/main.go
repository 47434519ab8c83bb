// Command torch starts tor using the launcher package.
//
// Usage:
//
//	torch run [flags] [-- tor arguments]
//	torch version
//
// When the forked strategy is in use, torch executes itself again
// with a marker environment variable and the child runs tor.
package main

import (
	"io"
	"os"

	"github.com/apex/log"
	"github.com/ooni/torch/internal/launcher"
	"github.com/ooni/torch/internal/log/handlers/cli"
	"github.com/ooni/torch/internal/runtimex"
	"github.com/spf13/cobra"
)

// verboseEnv tells children created by the forked strategy to be verbose.
const verboseEnv = "TORCH_VERBOSE"

func main() {
	os.Exit(mainWithExitCode(os.Args[1:], os.Stdout, os.Stderr))
}

// program contains the state shared by all the subcommands.
type program struct {
	// configFile is the OPTIONAL TOML configuration file.
	configFile string

	// exitCode is the code returned by mainWithExitCode.
	exitCode int

	// getenv is the function to read environment variables.
	getenv func(key string) string

	// logger is the logger to use.
	logger *log.Logger

	// stdout is where we write the commands output.
	stdout io.Writer

	// verbose controls the log level.
	verbose bool
}

// newLogger creates the logger used by torch.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := &log.Logger{Level: log.InfoLevel, Handler: cli.New(w)}
	if verbose {
		logger.Level = log.DebugLevel
	}
	return logger
}

// mainWithExitCode runs torch with the given arguments and returns
// the process exit code.
func mainWithExitCode(args []string, stdout, stderr io.Writer) int {
	if launcher.IsChild() {
		return runChild(os.Getenv, stderr)
	}

	p := &program{
		exitCode: 0,
		getenv:   os.Getenv,
		logger:   newLogger(stderr, false),
		stdout:   stdout,
	}

	rootCmd := &cobra.Command{
		Use:           "torch",
		Short:         "torch starts tor in-process, in a child process or in the background",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if p.verbose {
				p.logger.Level = log.DebugLevel
			}
		},
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(
		&p.configFile,
		"config",
		"",
		"read configuration from the given TOML file",
	)
	flags.BoolVarP(
		&p.verbose,
		"verbose",
		"v",
		false,
		"increase verbosity level",
	)
	runtimex.Try0(rootCmd.MarkPersistentFlagFilename("config", "toml"))

	registerRun(rootCmd, p)
	registerVersion(rootCmd, p)

	if err := rootCmd.Execute(); err != nil {
		p.logger.Warnf("torch: %s", err.Error())
		return 1
	}
	return p.exitCode
}

// runChild runs tor inside a child created by the forked strategy. The
// parent passes the configuration through the environment.
func runChild(getenv func(key string) string, stderr io.Writer) int {
	logger := newLogger(stderr, getenv(verboseEnv) == "1")
	config := configFromEnv(getenv)
	library, err := newLibrary(logger, config)
	if err != nil {
		logger.Warnf("torch: %s", err.Error())
		return launcher.ExitFailure
	}
	return launcher.RunChild(library, logger)
}
