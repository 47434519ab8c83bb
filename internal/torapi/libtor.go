//go:build torch_libtor

package torapi

//
// Embedding tor by linking against libtor.a.
//
// SPDX-License-Identifier: MIT
//
// Adapted from https://github.com/cretz/bine
//

//
// #cgo linux,amd64,!android CFLAGS: -I${SRCDIR}/linux/amd64/include
// #cgo linux,amd64,!android LDFLAGS: -L${SRCDIR}/linux/amd64/lib -ltor -levent -lssl -lcrypto -lz -lm
// #cgo linux,arm64,!android CFLAGS: -I${SRCDIR}/linux/arm64/include
// #cgo linux,arm64,!android LDFLAGS: -L${SRCDIR}/linux/arm64/lib -ltor -levent -lssl -lcrypto -lz -lm
//
// #cgo android,arm CFLAGS: -I${SRCDIR}/android/arm/include
// #cgo android,arm LDFLAGS: -L${SRCDIR}/android/arm/lib -ltor -levent -lssl -lcrypto -lz -lm
// #cgo android,arm64 CFLAGS: -I${SRCDIR}/android/arm64/include
// #cgo android,arm64 LDFLAGS: -L${SRCDIR}/android/arm64/lib -ltor -levent -lssl -lcrypto -lz -lm
// #cgo android,386 CFLAGS: -I${SRCDIR}/android/386/include
// #cgo android,386 LDFLAGS: -L${SRCDIR}/android/386/lib -ltor -levent -lssl -lcrypto -lz -lm
// #cgo android,amd64 CFLAGS: -I${SRCDIR}/android/amd64/include
// #cgo android,amd64 LDFLAGS: -L${SRCDIR}/android/amd64/lib -ltor -levent -lssl -lcrypto -lz -lm
//
// #include <stdlib.h>
//
// #include <tor_api.h>
//
// /* Note: we need to define inline helpers because we cannot index C arrays in Go. */
//
// static char **cstringArrayNew(size_t size) {
//     char **argv = calloc(size, sizeof(char *));
//     if (argv == NULL) {
//         abort();
//     }
//     return argv;
// }
//
// static void cstringArraySet(char **argv, size_t index, char *entry) {
//     argv[index] = entry;
// }
//
// static void cstringArrayFree(char **argv, size_t size) {
//     for (size_t idx = 0; idx < size; idx++) {
//         free(argv[idx]);
//     }
//     free(argv);
// }
//
import "C"

import "github.com/ooni/torch/internal/model"

// Embedded returns the [model.TorLibrary] running tor inside this
// process, if such a library is available for this build.
func Embedded(logger model.Logger) (model.TorLibrary, bool) {
	return &libtorLibrary{logger: model.ValidLoggerOrDefault(logger)}, true
}

// libtorLibrary is the [model.TorLibrary] calling into libtor.a.
type libtorLibrary struct {
	logger model.Logger
}

// NewConfiguration implements model.TorLibrary.
func (ll *libtorLibrary) NewConfiguration() (model.TorConfiguration, error) {
	config := C.tor_main_configuration_new()
	if config == nil {
		return nil, ErrCannotCreateConfiguration
	}
	lc := &libtorConfiguration{
		argc:   0,
		argv:   nil,
		config: config,
		logger: ll.logger,
	}
	return lc, nil
}

// ProviderVersion implements model.TorLibrary.
func (ll *libtorLibrary) ProviderVersion() string {
	return C.GoString(C.tor_api_get_provider_version())
}

// maxArguments is an arbitrary low limit to make C.int and C.size_t casts always work.
const maxArguments = 256

// libtorConfiguration wraps a tor_main_configuration_t.
type libtorConfiguration struct {
	// argc is the number of entries in argv.
	argc C.size_t

	// argv is the C copy of the command line.
	argv **C.char

	// config is the tor configuration.
	config *C.struct_tor_main_configuration_t

	// logger is the logger to use.
	logger model.Logger
}

// SetCommandLine implements model.TorConfiguration.
func (lc *libtorConfiguration) SetCommandLine(argv []string) int {
	if len(argv) > maxArguments {
		lc.logger.Warnf("torapi: too many arguments: %d", len(argv))
		return ExitBadCommandLine
	}
	lc.releaseArgv()

	// Note: here we allocate argc + 1 because a "null pointer always follows
	// the last element: argv[argc] is this null pointer."
	//
	// See https://www.gnu.org/software/libc/manual/html_node/Program-Arguments.html
	argc := C.size_t(len(argv))
	cargv := C.cstringArrayNew(argc + 1)
	for idx, entry := range argv {
		C.cstringArraySet(cargv, C.size_t(idx), C.CString(entry))
	}

	// The configuration keeps a WEAK REFERENCE to argv, which therefore
	// must stay alive until we free the configuration.
	lc.argc, lc.argv = argc, cargv
	return int(C.tor_main_configuration_set_command_line(lc.config, C.int(argc), cargv))
}

// Run implements model.TorConfiguration.
func (lc *libtorConfiguration) Run() int {
	return int(C.tor_run_main(lc.config))
}

// Free implements model.TorConfiguration.
func (lc *libtorConfiguration) Free() {
	if lc.config != nil {
		C.tor_main_configuration_free(lc.config)
		lc.config = nil
	}
	lc.releaseArgv()
}

func (lc *libtorConfiguration) releaseArgv() {
	if lc.argv != nil {
		C.cstringArrayFree(lc.argv, lc.argc)
		lc.argc, lc.argv = 0, nil
	}
}
