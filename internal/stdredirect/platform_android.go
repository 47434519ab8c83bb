//go:build android && cgo

package stdredirect

var platformRedirector = &Redirector{
	Sink: LogcatSink{},
}

// MaybeInitPlatform redirects the standard streams to logcat.
func MaybeInitPlatform() error {
	return platformRedirector.Init()
}
