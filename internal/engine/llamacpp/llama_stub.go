//go:build !llama

package llamacpp

import "sessiond/internal/engine"

// Available reports whether the native binding is compiled in.
func Available() bool { return false }

// New reports the native engine as unavailable in builds without the llama tag.
func New() (engine.Engine, error) {
	return nil, engine.ErrUnavailable("llama.cpp engine not built (rebuild with -tags=llama)")
}
