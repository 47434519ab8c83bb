package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ooni/torch/internal/launcher"
	"github.com/ooni/torch/internal/model"
	"github.com/ooni/torch/internal/pidfile"
	"github.com/ooni/torch/internal/runtimex"
	"github.com/ooni/torch/internal/stdredirect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// runOptions contains the options of the run subcommand.
type runOptions struct {
	Config

	// Detach causes torch to exit without waiting for the children
	// created by the forked strategy.
	Detach bool

	// Syslog causes torch to redirect its standard streams to syslog.
	Syslog bool
}

// registerRun registers the run subcommand.
func registerRun(rootCmd *cobra.Command, p *program) {
	options := &runOptions{}
	subCmd := &cobra.Command{
		Use:   "run [flags] [-- tor arguments]",
		Short: "Runs tor with the given arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := p.run(options, args)
			p.exitCode = code
			return err
		},
	}
	rootCmd.AddCommand(subCmd)
	flags := subCmd.Flags()

	flags.BoolVar(
		&options.Detach,
		"detach",
		false,
		"do not wait for tor to exit when using the forked strategy",
	)

	flags.StringVar(
		&options.ExtraArgs,
		"extra-args",
		"",
		"extra arguments for tor as a shell-quoted string",
	)

	flags.StringVar(
		&options.Library,
		"library",
		"",
		"tor library to use (one of: auto, embedded, exec)",
	)

	flags.StringVar(
		&options.Metrics,
		"metrics",
		"",
		"serve prometheus metrics at the given address",
	)

	flags.StringVar(
		&options.PIDFile,
		"pid-file",
		"",
		"write the pids of tor child processes into the given file",
	)
	runtimex.Try0(subCmd.MarkFlagFilename("pid-file"))

	flags.StringVar(
		&options.Strategy,
		"strategy",
		"",
		"launch strategy to use (one of: auto, direct, forked, threaded)",
	)

	flags.BoolVar(
		&options.Syslog,
		"syslog",
		false,
		"redirect the standard output and error to syslog",
	)

	flags.StringVar(
		&options.TorBinary,
		"tor-binary",
		"",
		"execute a specific tor binary",
	)
}

// run implements the run subcommand and returns the exit code.
func (p *program) run(options *runOptions, args []string) (int, error) {
	config, err := p.loadConfig(&options.Config)
	if err != nil {
		return 1, err
	}
	strategy, err := launcher.ParseStrategy(config.Strategy)
	if err != nil {
		return 1, fmt.Errorf("%w: %s", err, config.Strategy)
	}
	argv, err := config.torArgs(args)
	if err != nil {
		return 1, err
	}
	library, err := newLibrary(p.logger, config)
	if err != nil {
		return 1, err
	}

	if options.Syslog {
		if err := redirectToSyslog(); err != nil {
			return 1, err
		}
	}

	if config.Metrics != "" {
		stop, err := serveMetrics(p.logger, config.Metrics)
		if err != nil {
			return 1, err
		}
		defer stop()
	}

	l := launcher.New(&launcher.Config{
		ChildEnv: childEnv(library, p.verbose),
		Library:  library,
		Logger:   p.logger,
		Strategy: strategy,
	})
	p.logger.Infof("torch: starting tor using the %s strategy", l.Strategy())

	code := l.Start(argv)
	switch l.Strategy() {
	case launcher.StrategyForked:
		if code != 0 {
			return code, nil
		}
		return p.superviseChildren(l, config, options.Detach)

	case launcher.StrategyThreaded:
		code, err := l.Wait(context.Background())
		if err != nil {
			return 1, err
		}
		return code, nil

	default:
		return code, nil
	}
}

// superviseChildren manages the children created by the forked strategy
// and returns the exit code of the first child.
func (p *program) superviseChildren(l *launcher.Launcher, config *Config, detach bool) (int, error) {
	children := l.Children()
	pids := children.Pids()

	if config.PIDFile != "" {
		pf, err := pidfile.New(config.PIDFile)
		if err != nil {
			return 1, err
		}
		if err := pf.Write(pids...); err != nil {
			return 1, err
		}
		p.logger.Debugf("torch: written pids to %s", pf.Path())
		if detach {
			// print what other tools will read from the pid file
			if pids, err = pf.Read(); err != nil {
				return 1, err
			}
		} else {
			defer func() {
				if err := pf.Remove(); err != nil {
					p.logger.Warnf("torch: cannot remove %s: %s", pf.Path(), err.Error())
				}
			}()
		}
	}

	if detach {
		for _, pid := range pids {
			fmt.Fprintln(p.stdout, pid)
		}
		return 0, nil
	}

	// forward signals to the children and let tor decide how to shut down
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigch)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go forwardSignals(ctx, p.logger, sigch, children.Signal)

	exits, err := children.WaitAll(context.Background())
	if err != nil {
		return 1, err
	}
	children.Forget()
	if len(exits) <= 0 {
		return 0, nil
	}
	return exits[0].Code, nil
}

// forwardSignals forwards the signals received on sigch using forward
// until the context is done.
func forwardSignals(ctx context.Context, logger model.Logger,
	sigch <-chan os.Signal, forward func(sig os.Signal) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigch:
			logger.Infof("torch: forwarding %s to tor", sig.String())
			if err := forward(sig); err != nil {
				logger.Warnf("torch: cannot forward %s: %s", sig.String(), err.Error())
			}
		}
	}
}

// redirectToSyslog redirects our standard streams, and hence the ones
// of tor, to syslog.
func redirectToSyslog() error {
	sink, err := stdredirect.NewSyslogSink()
	if err != nil {
		return err
	}
	redirector := &stdredirect.Redirector{Sink: sink}
	return redirector.Init()
}

// serveMetrics serves prometheus metrics in the background and returns
// the function to stop the server.
func serveMetrics(logger model.Logger, address string) (func(), error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warnf("torch: metrics server: %s", err.Error())
		}
	}()
	logger.Infof("torch: serving prometheus metrics at http://%s/metrics", listener.Addr().String())
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warnf("torch: cannot shutdown the metrics server: %s", err.Error())
		}
	}
	return stop, nil
}
