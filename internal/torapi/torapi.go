// Package torapi contains implementations of [model.TorLibrary].
//
// We have three backends. The libtor backend links against tor's static
// library using cgo and is enabled by the torch_libtor build tag. On Android
// and iOS we otherwise use berty.tech/go-libtor. Everywhere else, we run an
// external tor binary using the github.com/cretz/bine process package.
//
// Use [Embedded] to obtain the embedded backend, if any, and [NewExecLibrary]
// to obtain the external binary backend.
package torapi

//
// SPDX-License-Identifier: MIT
//
// Adapted from https://github.com/cretz/bine.
//

import (
	"context"
	"errors"
	"os/exec"

	"github.com/cretz/bine/process"
	"github.com/ooni/torch/internal/model"
)

// These are the exit codes we return when tor could not even start.
const (
	// ExitBadCommandLine is returned by SetCommandLine when we
	// cannot create a process for the given arguments.
	ExitBadCommandLine = 1

	// ExitNotConfigured is returned by Run when SetCommandLine
	// was not called or did not succeed.
	ExitNotConfigured = 1

	// ExitStartFailed is returned by Run when we cannot start tor.
	ExitStartFailed = 1
)

// ErrCannotCreateConfiguration indicates that tor could not allocate
// a new configuration.
var ErrCannotCreateConfiguration = errors.New("torapi: cannot create tor configuration")

// ErrNoCreator indicates that [CreatorLibrary] has a nil Creator.
var ErrNoCreator = errors.New("torapi: no process creator")

// CreatorLibrary is a [model.TorLibrary] using a bine [process.Creator]. The
// creator receives the arguments following argv[0], which is what both
// process.NewCreator and the embedded creators expect.
//
// The zero value is invalid; please, fill the fields marked as MANDATORY.
type CreatorLibrary struct {
	// Creator is the MANDATORY creator.
	Creator process.Creator

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// Version is the OPTIONAL function returning the provider version.
	Version func() string
}

var _ model.TorLibrary = &CreatorLibrary{}

// NewConfiguration implements model.TorLibrary.
func (cl *CreatorLibrary) NewConfiguration() (model.TorConfiguration, error) {
	if cl.Creator == nil {
		return nil, ErrNoCreator
	}
	cc := &creatorConfiguration{
		cancel:  nil,
		creator: cl.Creator,
		logger:  model.ValidLoggerOrDefault(cl.Logger),
		proc:    nil,
	}
	return cc, nil
}

// ProviderVersion implements model.TorLibrary.
func (cl *CreatorLibrary) ProviderVersion() string {
	if cl.Version == nil {
		return unknownVersion
	}
	return cl.Version()
}

// unknownVersion is the version we return when we don't know better.
const unknownVersion = "unknown"

// creatorConfiguration is the [model.TorConfiguration] of [CreatorLibrary].
type creatorConfiguration struct {
	// cancel cancels the context used to create proc.
	cancel context.CancelFunc

	// creator is the process creator.
	creator process.Creator

	// logger is the logger to use.
	logger model.Logger

	// proc is the process created by SetCommandLine.
	proc process.Process
}

// SetCommandLine implements model.TorConfiguration.
func (cc *creatorConfiguration) SetCommandLine(argv []string) int {
	if len(argv) < 1 {
		cc.logger.Warn("torapi: empty command line")
		return ExitBadCommandLine
	}
	cc.release()
	ctx, cancel := context.WithCancel(context.Background())
	proc, err := cc.creator.New(ctx, argv[1:]...)
	if err != nil {
		cancel()
		cc.logger.Warnf("torapi: cannot create process: %s", err.Error())
		return ExitBadCommandLine
	}
	cc.cancel, cc.proc = cancel, proc
	return 0
}

// Run implements model.TorConfiguration.
func (cc *creatorConfiguration) Run() int {
	if cc.proc == nil {
		cc.logger.Warn("torapi: run without a valid command line")
		return ExitNotConfigured
	}
	if err := cc.proc.Start(); err != nil {
		cc.logger.Warnf("torapi: cannot start tor: %s", err.Error())
		return ExitStartFailed
	}
	return exitCodeFromError(cc.proc.Wait())
}

// Free implements model.TorConfiguration.
func (cc *creatorConfiguration) Free() {
	cc.release()
}

func (cc *creatorConfiguration) release() {
	if cc.cancel != nil {
		cc.cancel()
	}
	cc.cancel, cc.proc = nil, nil
}

// exitCodeFromError maps the error returned by process.Process.Wait to an
// exit code. We can only recover the real exit code for external processes.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
