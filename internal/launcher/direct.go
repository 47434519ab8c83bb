package launcher

import (
	"strings"

	"github.com/ooni/torch/internal/model"
)

// runDirect runs tor on the calling goroutine and returns its exit code. We
// always free the configuration before returning.
func runDirect(library model.TorLibrary, argv []string, logger model.Logger) int {
	config, err := library.NewConfiguration()
	if err != nil {
		logger.Warnf("launcher: failed to create tor configuration: %s", err.Error())
		return ExitFailure
	}
	defer config.Free()

	if code := config.SetCommandLine(argv); code != 0 {
		logger.Warnf("launcher: failed to set command-line args for tor: %d", code)
		return code
	}

	logger.Debugf("launcher: running tor: %s", strings.Join(argv, " "))
	return config.Run()
}
