//go:build !android && !ios && !torch_libtor

package torapi

import "github.com/ooni/torch/internal/model"

// Embedded returns the [model.TorLibrary] running tor inside this
// process, if such a library is available for this build.
//
// This build does not embed tor, so we always return false.
func Embedded(logger model.Logger) (model.TorLibrary, bool) {
	return nil, false
}
