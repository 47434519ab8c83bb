package launcher

//
// Threaded strategy
//

import (
	"context"
	"errors"
	"runtime"
	"strings"
)

// These are the values of Launcher.state.
const (
	stateIdle = int32(iota)
	stateRunning
)

// task is a background execution of tor.
type task struct {
	// args is our private copy of argv. We clear it once tor
	// returns, thus releasing the memory.
	args []string

	// code is tor's exit code. Only valid after done is closed.
	code int

	// done is closed when tor returns.
	done chan any
}

// newTask creates a new [*task] owning a deep copy of args.
func newTask(args []string) *task {
	owned := make([]string, 0, len(args))
	for _, arg := range args {
		owned = append(owned, strings.Clone(arg))
	}
	return &task{
		args: owned,
		code: 0,
		done: make(chan any),
	}
}

// Running returns whether tor is running under the threaded strategy.
func (l *Launcher) Running() bool {
	return l.state.Load() == stateRunning
}

func (l *Launcher) startThreaded(args []string) int {
	// Note: the compare-and-swap ensures that only one caller can start
	// tor. Concurrent callers see tor running and return immediately.
	if !l.state.CompareAndSwap(stateIdle, stateRunning) {
		l.logger.Info("launcher: tor is already running")
		metricStartsCount.WithLabelValues(StrategyThreaded.String(), "already_running").Inc()
		return 0
	}

	defer l.mu.Unlock()
	l.mu.Lock()

	// join with the previous task, if any. The previous task marks itself
	// as idle right before closing done, so we won't block for long.
	if prev := l.task; prev != nil {
		<-prev.done
	}

	t := newTask(args)
	l.task = t
	metricRunningGauge.Set(1)
	metricStartsCount.WithLabelValues(StrategyThreaded.String(), "launched").Inc()
	go l.runTask(t)
	return 0
}

func (l *Launcher) runTask(t *task) {
	// make sure we lock to an OS thread otherwise the goroutine can get
	// preempted midway and tor may observe a different thread
	//
	// See https://github.com/ooni/probe/issues/2406#issuecomment-1479138677
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	code := runDirect(l.library, t.args, l.logger)
	if code != 0 {
		l.logger.Warnf("launcher: tor exited with code %d", code)
	}
	observeExit(StrategyThreaded, code)

	t.args = nil
	t.code = code
	metricRunningGauge.Set(0)
	l.state.Store(stateIdle)
	close(t.done)

	if l.onExit != nil {
		l.onExit(code)
	}
}

// ErrNotStarted indicates that the threaded strategy has not started tor yet.
var ErrNotStarted = errors.New("launcher: tor not started")

// Wait waits for the current or last tor started using the threaded
// strategy to return and returns its exit code.
func (l *Launcher) Wait(ctx context.Context) (int, error) {
	l.mu.Lock()
	t := l.task
	l.mu.Unlock()
	if t == nil {
		return 0, ErrNotStarted
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.done:
		return t.code, nil
	}
}
