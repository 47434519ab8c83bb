//go:build !unix || android || !cgo

package stdredirect

// NewSyslogSink returns [ErrUnsupported] on this platform.
func NewSyslogSink() (Sink, error) {
	return nil, ErrUnsupported
}
