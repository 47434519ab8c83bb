//go:build unix && !android && cgo

package stdredirect

/*
#include <stdlib.h>
#include <syslog.h>

static void torch_openlog(void) {
	openlog("torch", LOG_PID, LOG_DAEMON);
}

static void torch_syslog(int level, const char *message) {
	syslog(level, "%s", message);
}
*/
import "C"

import (
	"strings"
	"sync"
	"unsafe"
)

// syslogSink is a [Sink] writing into syslog(3).
type syslogSink struct{}

var syslogOnce sync.Once

// NewSyslogSink returns a [Sink] writing into the system log.
func NewSyslogSink() (Sink, error) {
	syslogOnce.Do(func() {
		C.torch_openlog()
	})
	return syslogSink{}, nil
}

var syslogLevels = map[Priority]C.int{
	PriorityInfo:  C.LOG_INFO,
	PriorityError: C.LOG_ERR,
}

// Write implements Sink. The tag is the ident we passed to openlog.
func (syslogSink) Write(prio Priority, tag string, message []byte) {
	level, found := syslogLevels[prio]
	if !found {
		level = C.LOG_ERR
	}
	for _, line := range strings.Split(strings.TrimRight(string(message), "\n"), "\n") {
		cstr := C.CString(line)
		C.torch_syslog(level, cstr)
		C.free(unsafe.Pointer(cstr))
	}
}
