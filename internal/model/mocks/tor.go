package mocks

import "github.com/ooni/torch/internal/model"

// TorLibrary allows mocking [model.TorLibrary].
type TorLibrary struct {
	MockNewConfiguration func() (model.TorConfiguration, error)

	MockProviderVersion func() string
}

var _ model.TorLibrary = &TorLibrary{}

// NewConfiguration calls MockNewConfiguration.
func (tl *TorLibrary) NewConfiguration() (model.TorConfiguration, error) {
	return tl.MockNewConfiguration()
}

// ProviderVersion calls MockProviderVersion.
func (tl *TorLibrary) ProviderVersion() string {
	return tl.MockProviderVersion()
}

// TorConfiguration allows mocking [model.TorConfiguration].
type TorConfiguration struct {
	MockSetCommandLine func(argv []string) int

	MockRun func() int

	MockFree func()
}

var _ model.TorConfiguration = &TorConfiguration{}

// SetCommandLine calls MockSetCommandLine.
func (tc *TorConfiguration) SetCommandLine(argv []string) int {
	return tc.MockSetCommandLine(argv)
}

// Run calls MockRun.
func (tc *TorConfiguration) Run() int {
	return tc.MockRun()
}

// Free calls MockFree.
func (tc *TorConfiguration) Free() {
	tc.MockFree()
}
