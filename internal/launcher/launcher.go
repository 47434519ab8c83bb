// Package launcher starts tor using tor's embeddable API.
//
// A [*Launcher] runs tor's blocking entry point using one of three
// strategies. The direct strategy runs tor on the calling goroutine. The
// forked strategy runs tor inside a child process. The threaded strategy
// runs tor in the background on a goroutine locked to its OS thread.
//
// The default strategy depends on the target platform: mobile platforms
// forbid spawning processes, therefore they use the threaded strategy;
// windows uses the direct strategy; all the other systems use the
// forked strategy. See [DefaultStrategy].
package launcher

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ooni/torch/internal/model"
	"github.com/ooni/torch/internal/reaper"
	"github.com/ooni/torch/internal/runtimex"
)

// ExitFailure is the status returned when we fail before tor could run.
const ExitFailure = -1

// Strategy is the strategy used to run tor.
type Strategy int

const (
	// StrategyAuto selects [DefaultStrategy].
	StrategyAuto = Strategy(iota)

	// StrategyDirect runs tor on the calling goroutine.
	StrategyDirect

	// StrategyForked runs tor inside a child process.
	StrategyForked

	// StrategyThreaded runs tor on a background goroutine.
	StrategyThreaded
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyForked:
		return "forked"
	case StrategyThreaded:
		return "threaded"
	default:
		return "auto"
	}
}

// ErrUnknownStrategy indicates that we don't know a strategy name.
var ErrUnknownStrategy = errors.New("launcher: unknown strategy")

// ParseStrategy parses the name of a [Strategy].
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return StrategyAuto, nil
	case "direct":
		return StrategyDirect, nil
	case "forked":
		return StrategyForked, nil
	case "threaded":
		return StrategyThreaded, nil
	default:
		return StrategyAuto, ErrUnknownStrategy
	}
}

// DefaultStrategy returns the strategy used by this platform.
func DefaultStrategy() Strategy {
	return defaultStrategy
}

// Config contains config for [New].
type Config struct {
	// ChildEnv OPTIONALLY contains extra environment variables for
	// the child processes created by the forked strategy.
	ChildEnv []string

	// Deps OPTIONALLY overrides the forked strategy dependencies.
	Deps Deps

	// Library is the MANDATORY tor library.
	Library model.TorLibrary

	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// OnExit is the OPTIONAL callback invoked by the threaded strategy
	// with tor's exit code when tor returns.
	OnExit func(code int)

	// Strategy is the OPTIONAL strategy to use.
	Strategy Strategy
}

// Launcher starts tor. Please, use [New] to construct.
type Launcher struct {
	// children contains the children created by the forked strategy.
	children *reaper.Registry

	// childEnv contains extra environment variables for children.
	childEnv []string

	// deps contains the forked strategy dependencies.
	deps Deps

	// library is the tor library.
	library model.TorLibrary

	// logger is the logger to use.
	logger model.Logger

	// mu protects task.
	mu sync.Mutex

	// onExit is the OPTIONAL threaded strategy callback.
	onExit func(code int)

	// state is the threaded strategy state.
	state atomic.Int32

	// strategy is the strategy we're using.
	strategy Strategy

	// task is the current or last threaded strategy task.
	task *task
}

// New creates a new [*Launcher]. This function panics if config.Library is nil.
func New(config *Config) *Launcher {
	runtimex.PanicIfNil(config.Library, "launcher: config.Library is nil")
	strategy := config.Strategy
	if strategy == StrategyAuto {
		strategy = DefaultStrategy()
	}
	deps := config.Deps
	if deps == nil {
		deps = DepsStdlib{}
	}
	logger := model.ValidLoggerOrDefault(config.Logger)
	return &Launcher{
		children: reaper.NewRegistry(logger),
		childEnv: config.ChildEnv,
		deps:     deps,
		library:  config.Library,
		logger:   logger,
		onExit:   config.OnExit,
		strategy: strategy,
	}
}

// Strategy returns the strategy in use.
func (l *Launcher) Strategy() Strategy {
	return l.strategy
}

// Children returns the registry of the child processes we created.
func (l *Launcher) Children() *reaper.Registry {
	return l.children
}

// Start starts tor with the given argv, which MUST include argv[0], and
// returns a status code. The meaning of the status depends on the strategy:
//
// - direct: tor's exit code, or [ExitFailure] when we could not create
// tor's configuration;
//
// - forked: zero when the child process started, [ExitFailure] otherwise;
//
// - threaded: always zero, including when tor is already running, in
// which case this function does nothing. Use [Launcher.Wait] or
// Config.OnExit to learn about tor's exit code.
func (l *Launcher) Start(args []string) int {
	switch l.strategy {
	case StrategyForked:
		return l.startForked(args)
	case StrategyThreaded:
		return l.startThreaded(args)
	default:
		return l.startDirect(args)
	}
}

// Version returns tor's provider version.
func (l *Launcher) Version() string {
	return l.library.ProviderVersion()
}

func (l *Launcher) startDirect(args []string) int {
	metricStartsCount.WithLabelValues(StrategyDirect.String(), "launched").Inc()
	code := runDirect(l.library, args, l.logger)
	observeExit(StrategyDirect, code)
	return code
}
