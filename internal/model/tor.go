package model

//
// Tor embeddable API
//

// TorLibrary is the view of tor's embeddable API used by the launcher. It
// mirrors the functions declared by tor's tor_api.h header.
type TorLibrary interface {
	// NewConfiguration is like tor_main_configuration_new. It fails when
	// tor is not able to allocate a new configuration.
	NewConfiguration() (TorConfiguration, error)

	// ProviderVersion is like tor_api_get_provider_version.
	ProviderVersion() string
}

// TorConfiguration is a configuration created by [TorLibrary].
type TorConfiguration interface {
	// SetCommandLine is like tor_main_configuration_set_command_line. The
	// argv MUST include argv[0]. Returns zero on success and a nonzero
	// value when tor rejects the arguments.
	SetCommandLine(argv []string) int

	// Run is like tor_run_main. It blocks until tor exits and returns
	// tor's exit code.
	Run() int

	// Free is like tor_main_configuration_free. You MUST call Free
	// exactly once for every configuration.
	Free()
}
