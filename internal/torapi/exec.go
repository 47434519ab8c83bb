package torapi

//
// Running tor as an external binary
//

import (
	"bytes"
	"os"
	"strings"
	"sync"

	"github.com/cretz/bine/process"
	"github.com/ooni/torch/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/sys/execabs"
)

// ExecDeps contains the runtime dependencies of [NewExecLibrary].
type ExecDeps interface {
	// Getenv must behave like os.Getenv.
	Getenv(key string) string

	// LookPath must behave like execabs.LookPath.
	LookPath(file string) (string, error)

	// Output must behave like cmd.Output.
	Output(cmd *execabs.Cmd) ([]byte, error)
}

// ExecDepsStdlib implements [ExecDeps] using the standard library.
type ExecDepsStdlib struct{}

var _ ExecDeps = ExecDepsStdlib{}

// Getenv implements ExecDeps.
func (ExecDepsStdlib) Getenv(key string) string {
	return os.Getenv(key)
}

// LookPath implements ExecDeps.
func (ExecDepsStdlib) LookPath(file string) (string, error) {
	return execabs.LookPath(file)
}

// Output implements ExecDeps.
func (ExecDepsStdlib) Output(cmd *execabs.Cmd) ([]byte, error) {
	return cmd.Output()
}

// ExecOptions contains options for [NewExecLibrary].
type ExecOptions struct {
	// TorBinary OPTIONALLY allows to override the binary to execute.
	TorBinary string
}

// TorBinaryEnv is the environment variable containing the path of the
// tor binary to use when [ExecOptions] does not name one.
const TorBinaryEnv = "TORCH_TOR_BINARY"

// ExecLibrary is a [model.TorLibrary] running an external tor binary.
//
// Please, use the [NewExecLibrary] factory to construct.
type ExecLibrary struct {
	// binary is the absolute path of the tor binary.
	binary string

	// creator is the library doing the heavy lifting.
	creator *CreatorLibrary

	// deps contains the dependencies.
	deps ExecDeps

	// logger is the logger to use.
	logger model.Logger

	// versionOnce ensures we query the version just once.
	versionOnce sync.Once

	// version is the cached version.
	version string
}

var _ model.TorLibrary = &ExecLibrary{}

// NewExecLibrary creates a new [*ExecLibrary].
//
// We use the following algorithm to decide which binary to execute:
//
// 1. if options.TorBinary is specified, we use it;
//
// 2. if the TORCH_TOR_BINARY environment variable exists and is
// not empty, we use its value as the tor binary;
//
// 3. otherwise we use "tor".
//
// In all cases we use execabs.LookPath to make sure we're going to
// execute a binary that we can actually find.
func NewExecLibrary(logger model.Logger, options *ExecOptions, deps ExecDeps) (*ExecLibrary, error) {
	logger = model.ValidLoggerOrDefault(logger)
	if options == nil {
		options = &ExecOptions{}
	}
	binary, err := lookupTorBinary(deps, options)
	if err != nil {
		return nil, errors.Wrap(err, "torapi: cannot find tor binary")
	}
	logger.Debugf("torapi: using tor binary: %s", binary)
	el := &ExecLibrary{
		binary: binary,
		creator: &CreatorLibrary{
			Creator: process.NewCreator(binary),
			Logger:  logger,
			Version: nil,
		},
		deps:        deps,
		logger:      logger,
		versionOnce: sync.Once{},
		version:     "",
	}
	return el, nil
}

// Binary returns the absolute path of the tor binary we execute.
func (el *ExecLibrary) Binary() string {
	return el.binary
}

// NewConfiguration implements model.TorLibrary.
func (el *ExecLibrary) NewConfiguration() (model.TorConfiguration, error) {
	return el.creator.NewConfiguration()
}

// ProviderVersion implements model.TorLibrary.
//
// We run `tor --version` once and cache the result. When that fails,
// we return "unknown", since the version query has no error path.
func (el *ExecLibrary) ProviderVersion() string {
	el.versionOnce.Do(func() {
		cmd := &execabs.Cmd{
			Path: el.binary,
			Args: []string{el.binary, "--version"},
		}
		output, err := el.deps.Output(cmd)
		if err != nil {
			el.logger.Warnf("torapi: %s --version: %s", el.binary, err.Error())
			el.version = unknownVersion
			return
		}
		el.version = parseVersionOutput(output)
	})
	return el.version
}

// parseVersionOutput converts the first line emitted by `tor --version`, which
// reads like "Tor version 0.4.8.13.", to the format used by tor's provider
// version, which reads like "tor 0.4.8.13".
func parseVersionOutput(output []byte) string {
	line, _, _ := bytes.Cut(output, []byte("\n"))
	value := strings.TrimSpace(string(line))
	if rest, found := strings.CutPrefix(value, "Tor version "); found {
		return "tor " + strings.TrimSuffix(rest, ".")
	}
	if value == "" {
		return unknownVersion
	}
	return value
}

func lookupTorBinary(deps ExecDeps, options *ExecOptions) (string, error) {
	// 1
	if options.TorBinary != "" {
		return deps.LookPath(options.TorBinary)
	}

	// 2
	if binary := deps.Getenv(TorBinaryEnv); binary != "" {
		return deps.LookPath(binary)
	}

	// 3
	return deps.LookPath("tor")
}
