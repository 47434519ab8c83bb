//go:build !android || !cgo

package stdredirect

// MaybeInitPlatform does nothing on this platform, where the
// standard streams are already visible.
func MaybeInitPlatform() error {
	return nil
}
