package main

import (
	"sync"

	"github.com/apex/log"
	"github.com/ooni/torch/internal/launcher"
	"github.com/ooni/torch/internal/model"
	"github.com/ooni/torch/internal/stdredirect"
	"github.com/ooni/torch/internal/torapi"
)

// unknownVersion is the version we report without a tor library.
const unknownVersion = "unknown"

var (
	// torLauncher is the launcher used by the exported functions.
	torLauncher *launcher.Launcher

	// torLauncherErr is the error that occurred creating torLauncher.
	torLauncherErr error

	// torLauncherOnce initializes torLauncher.
	torLauncherOnce sync.Once
)

// libraryStrategy returns the strategy we use inside a shared library.
func libraryStrategy() launcher.Strategy {
	if launcher.DefaultStrategy() == launcher.StrategyThreaded {
		return launcher.StrategyThreaded
	}
	return launcher.StrategyDirect
}

// newLibrary returns embedded tor, when available, and otherwise
// executes the tor binary selected by the environment.
func newLibrary(logger model.Logger) (model.TorLibrary, error) {
	if library, good := torapi.Embedded(logger); good {
		return library, nil
	}
	return torapi.NewExecLibrary(logger, nil, torapi.ExecDepsStdlib{})
}

// getLauncher returns the process-wide launcher.
func getLauncher() (*launcher.Launcher, error) {
	torLauncherOnce.Do(func() {
		library, err := newLibrary(log.Log)
		if err != nil {
			torLauncherErr = err
			return
		}
		torLauncher = launcher.New(&launcher.Config{
			Library:  library,
			Logger:   log.Log,
			Strategy: libraryStrategy(),
		})
	})
	return torLauncher, torLauncherErr
}

// torInit redirects the standard streams where needed.
func torInit() int {
	if err := stdredirect.MaybeInitPlatform(); err != nil {
		log.Warnf("libtorch: %s", err.Error())
		return launcher.ExitFailure
	}
	return 0
}

// torStart starts tor with the given argv.
func torStart(args []string) int {
	l, err := getLauncher()
	if err != nil {
		log.Warnf("libtorch: %s", err.Error())
		return launcher.ExitFailure
	}
	return l.Start(args)
}

// torIsRunning returns whether tor is running in the background.
func torIsRunning() bool {
	l, err := getLauncher()
	return err == nil && l.Running()
}

// torVersion returns tor's provider version.
func torVersion() string {
	l, err := getLauncher()
	if err != nil {
		return unknownVersion
	}
	return l.Version()
}
