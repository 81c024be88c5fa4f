// Package llamacpp binds the engine contract to llama.cpp through cgo.
//
// The native binding is compiled only with `-tags=llama`; it links against
// libllama.so placed next to the binary (./bin). Without the tag New reports
// the backend as unavailable so callers can fall back to another engine.
package llamacpp

// Name is the engine identifier used in version strings.
const Name = "llama.cpp"
