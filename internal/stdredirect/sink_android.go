//go:build android && cgo

package stdredirect

/*
#cgo LDFLAGS: -llog
#include <android/log.h>
#include <stdlib.h>
*/
import "C"

import "unsafe"

// LogcatSink is a [Sink] writing into Android's logcat.
type LogcatSink struct{}

var _ Sink = LogcatSink{}

// Write implements Sink.
func (LogcatSink) Write(prio Priority, tag string, message []byte) {
	ctag := C.CString(tag)
	defer C.free(unsafe.Pointer(ctag))
	ctext := C.CString(string(message))
	defer C.free(unsafe.Pointer(ctext))
	C.__android_log_write(logcatPriority(prio), ctag, ctext)
}

func logcatPriority(prio Priority) C.int {
	if prio == PriorityError {
		return C.ANDROID_LOG_ERROR
	}
	return C.ANDROID_LOG_INFO
}
