// Package stdredirect redirects the standard output and the standard
// error of the current process to a [Sink].
//
// On Android, the standard streams of an app go nowhere. We replace
// file descriptors 1 and 2 with pipes and forward whatever tor writes
// to logcat. Use [MaybeInitPlatform] to do that only where needed.
package stdredirect

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Tag is the tag we use when writing to the [Sink].
const Tag = "torch"

// BufferSize is the maximum number of bytes we forward with a single write.
const BufferSize = 32 << 10

// Priority is the priority of a message.
type Priority int

const (
	// PriorityInfo is the priority of what we read from the standard output.
	PriorityInfo = Priority(iota)

	// PriorityError is the priority of what we read from the standard error.
	PriorityError
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	if p == PriorityError {
		return "error"
	}
	return "info"
}

// Sink receives the redirected bytes.
type Sink interface {
	// Write writes a message. The implementation MUST NOT retain
	// the message after it has returned.
	Write(prio Priority, tag string, message []byte)
}

// Deps contains the redirector runtime dependencies.
type Deps interface {
	// Pipe must behave like os.Pipe.
	Pipe() (r *os.File, w *os.File, err error)

	// Dup returns a new file descriptor referring to fd.
	Dup(fd int) (int, error)

	// Dup2 makes newfd a copy of oldfd.
	Dup2(oldfd, newfd int) error

	// CloseFd closes a file descriptor returned by Dup.
	CloseFd(fd int) error
}

// DepsStdlib implements [Deps] using the standard library.
type DepsStdlib struct{}

var _ Deps = DepsStdlib{}

// Pipe implements Deps.
func (DepsStdlib) Pipe() (*os.File, *os.File, error) {
	return os.Pipe()
}

// Dup implements Deps.
func (DepsStdlib) Dup(fd int) (int, error) {
	return dup(fd)
}

// Dup2 implements Deps.
func (DepsStdlib) Dup2(oldfd, newfd int) error {
	return dup2(oldfd, newfd)
}

// CloseFd implements Deps.
func (DepsStdlib) CloseFd(fd int) error {
	return closefd(fd)
}

// ErrUnsupported indicates that we cannot redirect on this platform.
var ErrUnsupported = errors.New("stdredirect: not supported on this platform")

// ErrNoSink indicates that the [Redirector] has no [Sink].
var ErrNoSink = errors.New("stdredirect: no sink")

// Redirector redirects the standard output and error. The zero value
// is invalid because you need to set the Sink. Please, initialize the
// MANDATORY fields and then call [Redirector.Init].
type Redirector struct {
	// Deps OPTIONALLY overrides the runtime dependencies.
	Deps Deps

	// Sink is the MANDATORY sink.
	Sink Sink

	err     error
	once    sync.Once
	writers []*os.File
}

// stream is a standard stream we redirect.
type stream struct {
	fd   int
	name string
	prio Priority
}

var streams = []stream{{
	fd:   1,
	name: "stdout",
	prio: PriorityInfo,
}, {
	fd:   2,
	name: "stderr",
	prio: PriorityError,
}}

// Init starts redirecting. Calling Init more than once is safe: only the
// first call redirects and every call returns the same error. On success,
// two background goroutines forward the streams for the whole lifetime
// of the process. On failure, the standard streams are left untouched.
func (r *Redirector) Init() error {
	r.once.Do(func() {
		r.err = r.init()
	})
	return r.err
}

func (r *Redirector) init() error {
	if r.Sink == nil {
		return ErrNoSink
	}
	deps := r.Deps
	if deps == nil {
		deps = DepsStdlib{}
	}

	// create all the pipes before touching the standard streams
	var readers, writers []*os.File
	closePipes := func() {
		for _, fp := range append(readers, writers...) {
			fp.Close()
		}
	}
	for _, s := range streams {
		rd, wr, err := deps.Pipe()
		if err != nil {
			closePipes()
			return fmt.Errorf("stdredirect: cannot create %s pipe: %w", s.name, err)
		}
		readers, writers = append(readers, rd), append(writers, wr)
	}

	// save the current streams so we can restore them on failure
	var saved []int
	closeSaved := func() {
		for _, fd := range saved {
			deps.CloseFd(fd)
		}
	}
	for _, s := range streams {
		fd, err := deps.Dup(s.fd)
		if err != nil {
			closeSaved()
			closePipes()
			return fmt.Errorf("stdredirect: cannot save %s: %w", s.name, err)
		}
		saved = append(saved, fd)
	}

	for idx, s := range streams {
		if err := deps.Dup2(int(writers[idx].Fd()), s.fd); err != nil {
			for prev := 0; prev < idx; prev++ {
				deps.Dup2(saved[prev], streams[prev].fd)
			}
			closeSaved()
			closePipes()
			return fmt.Errorf("stdredirect: cannot redirect %s: %w", s.name, err)
		}
	}
	closeSaved()

	// Note: we keep the write ends referenced otherwise their
	// finalizers would close the file descriptors
	r.writers = writers
	for idx, s := range streams {
		go pump(readers[idx], r.Sink, s.prio)
	}
	return nil
}

// pump forwards what it reads from rd to sink until reading fails.
func pump(rd *os.File, sink Sink, prio Priority) {
	defer rd.Close()
	buffer := make([]byte, BufferSize)
	for {
		count, err := rd.Read(buffer)
		if count > 0 {
			sink.Write(prio, Tag, buffer[:count])
		}
		if err != nil {
			return
		}
	}
}
