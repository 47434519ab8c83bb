// Command libtorch builds torch as a C shared library.
//
// Build with:
//
//	go build -buildmode=c-shared -o libtorch.so ./cmd/libtorch
//
// The library exports:
//
//	int TOR_init(void);
//	int TOR_start(int argc, char *argv[]);
//	int TOR_is_running(void);
//	const char *TOR_version(void);
//
// The string returned by TOR_version is owned by the library and
// the caller MUST NOT free it.
//
// A shared library cannot execute its host program again, therefore
// TOR_start uses the threaded strategy on mobile and the direct
// strategy everywhere else.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"
)

func main() {}

//export TOR_init
func TOR_init() C.int {
	return C.int(torInit())
}

//export TOR_start
func TOR_start(argc C.int, argv **C.char) C.int {
	var args []string
	if argc > 0 && argv != nil {
		for _, arg := range unsafe.Slice(argv, int(argc)) {
			args = append(args, C.GoString(arg))
		}
	}
	return C.int(torStart(args))
}

//export TOR_is_running
func TOR_is_running() C.int {
	if torIsRunning() {
		return 1
	}
	return 0
}

var (
	// cversion is the C copy of the version, which we never free.
	cversion *C.char

	// cversionOnce initializes cversion.
	cversionOnce sync.Once
)

//export TOR_version
func TOR_version() *C.char {
	cversionOnce.Do(func() {
		cversion = C.CString(torVersion())
	})
	return cversion
}
