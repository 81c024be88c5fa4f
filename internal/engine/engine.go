// Package engine defines the contract between the session manager and the
// inference engine that owns weights, tokenization, batched decode and
// sampling math.
//
// Handles returned by an Engine are opaque to callers. A nil handle means
// "absent". Implementations:
//
//   - mock:     deterministic in-process engine used by tests and the default
//     build's "mock" backend.
//   - llamacpp: cgo bindings to llama.h, enabled with `-tags=llama`. Without
//     the tag the package reports the dependency as unavailable.
package engine

import "sessiond/internal/tokens"

// Model is an opaque handle to a loaded model.
type Model any

// Context is an opaque handle to a generation context (KV cache, logits).
type Context any

// Sampler is an opaque handle to a sampler chain.
type Sampler any

// ModelParams configures model construction.
type ModelParams struct {
	GPULayers int
	UseMmap   bool
	UseMlock  bool
}

// ContextParams configures context construction.
type ContextParams struct {
	ContextSize  int
	BatchSize    int
	Threads      int
	ThreadsBatch int
}

// Engine is the inference engine collaborator. Methods that take a handle
// must tolerate being called with handles produced by the same Engine only.
type Engine interface {
	// Name identifies the engine in version strings and logs.
	Name() string

	CreateModel(path string, params ModelParams) (Model, error)
	CreateContext(model Model, params ContextParams) (Context, error)
	FreeModel(model Model)
	FreeContext(ctx Context)

	// Tokenize converts text to tokens, optionally prefixing the
	// beginning-of-sequence marker.
	Tokenize(model Model, text string, addBOS bool) (tokens.Sequence, error)
	// Detokenize converts tokens back to text. Tokens without a text piece
	// are skipped.
	Detokenize(model Model, seq tokens.Sequence) string
	// IsEndOfGeneration reports whether tok is a natural stop token.
	IsEndOfGeneration(model Model, tok tokens.Token) bool

	// ContextSize returns the window size of ctx in tokens.
	ContextSize(ctx Context) int
	// Decode evaluates a batch, extending the context. A non-zero status
	// is a failure; its value is engine-specific.
	Decode(ctx Context, batch *Batch) int
	// ClearMemory drops every retained key/value entry of ctx.
	ClearMemory(ctx Context)

	NewSamplerChain() (Sampler, error)
	AddStage(s Sampler, stage Stage) error
	ResetSampler(s Sampler)
	FreeSampler(s Sampler)
	// Sample draws the next token from the logits of the last decoded
	// batch entry that requested output. Negative means no valid token.
	Sample(s Sampler, ctx Context) tokens.Token
}
