package launcher

//
// Forked strategy
//
// The Go runtime cannot fork(2) safely, so we create the child process
// by executing ourselves again with a marker environment variable. The
// program's main must call [IsChild] and [RunChild] early on.
//

import (
	"os"

	"github.com/ooni/torch/internal/model"
	"golang.org/x/sys/execabs"
)

// ChildEnvVariable is the environment variable marking the child.
const ChildEnvVariable = "TORCH_LAUNCHER_CHILD"

// Deps contains the forked strategy runtime dependencies.
type Deps interface {
	// Environ must behave like os.Environ.
	Environ() []string

	// Executable must behave like os.Executable.
	Executable() (string, error)

	// StartCmd invokes the cmd.Start.
	StartCmd(cmd *execabs.Cmd) error
}

// DepsStdlib implements [Deps] using the standard library.
type DepsStdlib struct{}

var _ Deps = DepsStdlib{}

// Environ implements Deps.
func (DepsStdlib) Environ() []string {
	return os.Environ()
}

// Executable implements Deps.
func (DepsStdlib) Executable() (string, error) {
	return os.Executable()
}

// StartCmd implements Deps.
func (DepsStdlib) StartCmd(cmd *execabs.Cmd) error {
	return cmd.Start()
}

func (l *Launcher) startForked(args []string) int {
	exe, err := l.deps.Executable()
	if err != nil {
		l.logger.Warnf("launcher: cannot find our own executable: %s", err.Error())
		metricStartsCount.WithLabelValues(StrategyForked.String(), "failed").Inc()
		return ExitFailure
	}

	// Note: we keep our own argv[0] so that multi-call binaries
	// dispatching on argv[0] end up in the same main.
	env := append([]string{}, l.deps.Environ()...)
	env = append(env, l.childEnv...)
	env = append(env, ChildEnvVariable+"=1")
	cmd := &execabs.Cmd{
		Path:   exe,
		Args:   append([]string{os.Args[0]}, args...),
		Env:    env,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	l.logger.Debugf("launcher: + %s", cmd.String())
	if err := l.deps.StartCmd(cmd); err != nil {
		l.logger.Warnf("launcher: failed to start child process: %s", err.Error())
		metricStartsCount.WithLabelValues(StrategyForked.String(), "failed").Inc()
		return ExitFailure
	}

	pid := cmd.Process.Pid
	l.logger.Infof("launcher: tor child process: %d", pid)
	if err := l.children.Track(pid, cmd.Process); err != nil {
		l.logger.Warnf("launcher: cannot track pid %d: %s", pid, err.Error())
	}
	metricStartsCount.WithLabelValues(StrategyForked.String(), "launched").Inc()
	return 0
}

// IsChild returns whether this process is a child created by the
// forked strategy and should therefore call [RunChild].
func IsChild() bool {
	return os.Getenv(ChildEnvVariable) == "1"
}

// RunChild runs tor inside a child process created by the forked strategy
// using the process command line arguments and returns tor's exit code. The
// caller should exit immediately using this code.
func RunChild(library model.TorLibrary, logger model.Logger) int {
	logger = model.ValidLoggerOrDefault(logger)
	// make sure our own children do not inherit the marker
	_ = os.Unsetenv(ChildEnvVariable)
	code := runDirect(library, os.Args[1:], logger)
	observeExit(StrategyForked, code)
	return code
}

// MaybeRunChild calls [RunChild] and exits if [IsChild] is true and
// otherwise returns without doing anything.
func MaybeRunChild(library model.TorLibrary, logger model.Logger) {
	if IsChild() {
		os.Exit(RunChild(library, logger))
	}
}
