// Package session owns the lifecycle of one loaded model and its generation
// context and drives the token-by-token decode loop. It is structured into
// small files by concern:
//
//   - session.go: Session type, Options, constructor, status accessors.
//   - config.go: GenerationConfig and its defaults.
//   - errors.go: Error kinds and predicates (IsModelLoad, IsDecode, ...).
//   - load.go: LoadModel/UnloadModel/Close.
//   - generate.go: Generate/GenerateStream state machine and cancellation.
//   - events.go: EventPublisher and the in-memory publisher used by tests.
//   - metrics.go: Prometheus collectors for loads and generations.
//
// Concurrency: one mutex per session serializes load and generation.
// IsGenerating and CancelGeneration are lock-free and may be called from any
// goroutine while a generation runs. Token callbacks run synchronously on the
// goroutine that called GenerateStream.
package session
