// Package runtimex contains runtime extensions. This package is inspired to
// https://pkg.go.dev/github.com/m-lab/go/rtx, except that it's simpler.
package runtimex

import (
	"errors"
	"fmt"
)

// PanicOnError calls panic() if err is not nil.
func PanicOnError(err error, message string) {
	if err != nil {
		panic(fmt.Errorf("%s: %w", message, err))
	}
}

// ErrAssertionFailed is the error wrapped by the panic emitted by [Assert].
var ErrAssertionFailed = errors.New("runtimex: assertion failed")

// Assert calls panic if assertion is false.
func Assert(assertion bool, message string) {
	if !assertion {
		panic(fmt.Errorf("%w: %s", ErrAssertionFailed, message))
	}
}

// PanicIfNil calls panic if the given interface is nil.
func PanicIfNil(v any, message string) {
	Assert(v != nil, message)
}

// Try0 calls panic if err is not nil.
func Try0(err error) {
	PanicOnError(err, "Try0")
}
