package main

import (
	"errors"
	"fmt"

	"github.com/ooni/torch/internal/model"
	"github.com/ooni/torch/internal/torapi"
)

// errNoEmbeddedTor indicates that this build does not embed tor.
var errNoEmbeddedTor = errors.New("this build does not embed tor")

// errUnknownLibrary indicates that we don't know a library name.
var errUnknownLibrary = errors.New("unknown tor library")

// newLibrary creates the [model.TorLibrary] selected by the config. The
// auto library prefers embedded tor and otherwise executes a tor binary.
func newLibrary(logger model.Logger, config *Config) (model.TorLibrary, error) {
	switch config.Library {
	case "", "auto":
		if library, good := torapi.Embedded(logger); good {
			return library, nil
		}
		return newExecLibrary(logger, config)
	case "embedded":
		library, good := torapi.Embedded(logger)
		if !good {
			return nil, errNoEmbeddedTor
		}
		return library, nil
	case "exec":
		return newExecLibrary(logger, config)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownLibrary, config.Library)
	}
}

func newExecLibrary(logger model.Logger, config *Config) (model.TorLibrary, error) {
	options := &torapi.ExecOptions{TorBinary: config.TorBinary}
	return torapi.NewExecLibrary(logger, options, torapi.ExecDepsStdlib{})
}

// childEnv returns the environment telling a child created by the forked
// strategy how to recreate the same library.
func childEnv(library model.TorLibrary, verbose bool) (env []string) {
	switch library := library.(type) {
	case *torapi.ExecLibrary:
		env = append(env, libraryEnv+"=exec", torBinaryEnv+"="+library.Binary())
	default:
		env = append(env, libraryEnv+"=embedded")
	}
	if verbose {
		env = append(env, verboseEnv+"=1")
	}
	return
}
