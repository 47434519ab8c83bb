package launcher

import (
	"errors"
	"os"
	"strconv"
	"testing"

	"github.com/ooni/torch/internal/model"
	"github.com/ooni/torch/internal/model/mocks"
)

// failConfigurationEnv instructs the child library to fail creating
// a configuration, like tor would do when it cannot allocate memory.
const failConfigurationEnv = "LAUNCHER_TEST_FAIL_CONFIGURATION"

func TestMain(m *testing.M) {
	// when executed as a child by the forked strategy, run the fake library
	MaybeRunChild(newChildLibrary(), nil)
	os.Exit(m.Run())
}

// newChildLibrary returns the library used by forked children. Running
// the command line "tor exit N" causes the child to exit with code N.
func newChildLibrary() model.TorLibrary {
	return &mocks.TorLibrary{
		MockNewConfiguration: func() (model.TorConfiguration, error) {
			if os.Getenv(failConfigurationEnv) == "1" {
				return nil, errors.New("mocked error")
			}
			var argv []string
			config := &mocks.TorConfiguration{
				MockSetCommandLine: func(v []string) int {
					argv = v
					return 0
				},
				MockRun: func() int {
					if len(argv) == 3 && argv[1] == "exit" {
						code, _ := strconv.Atoi(argv[2])
						return code
					}
					return 0
				},
				MockFree: func() {},
			}
			return config, nil
		},
		MockProviderVersion: func() string {
			return "tor 0.4.8.13"
		},
	}
}
