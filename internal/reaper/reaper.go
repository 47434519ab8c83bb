// Package reaper keeps track of child processes and reaps them.
//
// Every tracked child has its own goroutine waiting for it to exit, so
// no terminated child lingers as a zombie. Unlike a SIGCHLD handler, a
// [Registry] only touches the processes it has been told about.
package reaper

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"

	"github.com/ooni/torch/internal/model"
)

// Process is the view of a child process used by [Registry]. The
// [*os.Process] type implements this interface.
type Process interface {
	// Signal sends a signal to the process.
	Signal(sig os.Signal) error

	// Wait waits for the process to exit.
	Wait() (*os.ProcessState, error)
}

var _ Process = &os.Process{}

// Exit describes how a tracked child terminated.
type Exit struct {
	// Pid is the child process ID.
	Pid int

	// Code is the exit code or -1 when the process was killed
	// by a signal or we could not wait for it.
	Code int

	// Err is the error returned by Wait, if any.
	Err error
}

// child is a tracked child process.
type child struct {
	done chan any
	exit Exit
	proc Process
}

// Registry tracks child processes. The zero value is invalid; please,
// use [NewRegistry] to construct.
type Registry struct {
	children map[int]*child
	logger   model.Logger
	mu       sync.Mutex
}

// NewRegistry creates a new [*Registry].
func NewRegistry(logger model.Logger) *Registry {
	return &Registry{
		children: map[int]*child{},
		logger:   model.ValidLoggerOrDefault(logger),
		mu:       sync.Mutex{},
	}
}

// ErrAlreadyTracked indicates that a pid is already being tracked.
var ErrAlreadyTracked = errors.New("reaper: pid already tracked")

// Track starts tracking the given child and reaps it in the background.
func (r *Registry) Track(pid int, proc Process) error {
	defer r.mu.Unlock()
	r.mu.Lock()
	if c, found := r.children[pid]; found && !c.exited() {
		return ErrAlreadyTracked
	}
	c := &child{
		done: make(chan any),
		exit: Exit{Pid: pid},
		proc: proc,
	}
	r.children[pid] = c
	go r.reap(c)
	return nil
}

func (r *Registry) reap(c *child) {
	state, err := c.proc.Wait()
	c.exit.Err = err
	c.exit.Code = -1
	if state != nil {
		c.exit.Code = state.ExitCode()
	}
	switch {
	case err != nil:
		r.logger.Warnf("reaper: wait for pid %d: %s", c.exit.Pid, err.Error())
	case c.exit.Code != 0:
		r.logger.Warnf("reaper: pid %d exited: %s", c.exit.Pid, state.String())
	default:
		r.logger.Debugf("reaper: pid %d exited: %s", c.exit.Pid, state.String())
	}
	close(c.done)
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ErrNoSuchChild indicates that a pid is not being tracked.
var ErrNoSuchChild = errors.New("reaper: no such child")

// Wait waits for the given child to terminate and returns its [Exit].
func (r *Registry) Wait(ctx context.Context, pid int) (*Exit, error) {
	r.mu.Lock()
	c, found := r.children[pid]
	r.mu.Unlock()
	if !found {
		return nil, ErrNoSuchChild
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		exit := c.exit
		return &exit, nil
	}
}

// WaitAll waits for all the children tracked so far to terminate and
// returns their [Exit] sorted by pid.
func (r *Registry) WaitAll(ctx context.Context) ([]*Exit, error) {
	exits := []*Exit{}
	for _, pid := range r.Pids() {
		exit, err := r.Wait(ctx, pid)
		if err != nil {
			return nil, err
		}
		exits = append(exits, exit)
	}
	return exits, nil
}

// Pids returns the sorted pids of all the tracked children.
func (r *Registry) Pids() []int {
	return r.pids(func(c *child) bool {
		return true
	})
}

// Pending returns the sorted pids of the children that are still running.
func (r *Registry) Pending() []int {
	return r.pids(func(c *child) bool {
		return !c.exited()
	})
}

func (r *Registry) pids(filter func(c *child) bool) []int {
	defer r.mu.Unlock()
	r.mu.Lock()
	out := []int{}
	for pid, c := range r.children {
		if filter(c) {
			out = append(out, pid)
		}
	}
	sort.Ints(out)
	return out
}

// Forget stops remembering children that have already been reaped.
func (r *Registry) Forget() {
	defer r.mu.Unlock()
	r.mu.Lock()
	for pid, c := range r.children {
		if c.exited() {
			delete(r.children, pid)
		}
	}
}

// Signal sends the given signal to every child that is still running.
func (r *Registry) Signal(sig os.Signal) error {
	var errs []error
	for _, pid := range r.Pending() {
		r.mu.Lock()
		c := r.children[pid]
		r.mu.Unlock()
		if c == nil {
			continue
		}
		r.logger.Debugf("reaper: sending %s to pid %d", sig.String(), pid)
		if err := c.proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
