//go:build (android || ios) && !torch_libtor

package torapi

//
// Embedding tor on mobile using berty.tech/go-libtor.
//

import (
	libtor "berty.tech/go-libtor"
	"github.com/ooni/torch/internal/model"
)

// Embedded returns the [model.TorLibrary] running tor inside this
// process, if such a library is available for this build.
func Embedded(logger model.Logger) (model.TorLibrary, bool) {
	library := &CreatorLibrary{
		Creator: libtor.Creator,
		Logger:  logger,
		Version: libtor.ProviderVersion,
	}
	return library, true
}
