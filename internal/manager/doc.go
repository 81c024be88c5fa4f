// Package manager hosts generation sessions for the HTTP layer and the CLI.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - errors.go: error types and helpers (IsSessionNotFound, IsModelNotFound, IsTooBusy).
//   - helpers.go: model resolution and request-to-config mapping.
//   - sessions.go: session create/close/load/unload/cancel through arena handles.
//   - infer.go: Generate entry point and NDJSON streaming.
//   - status_report.go: Status/session snapshot reporting helpers.
//
// Sessions are addressed by registry.Handle values. The arena lock is held
// only to resolve a handle; every session operation then runs under that
// session's own lock, so a long generation never blocks other sessions.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (New/NewWithConfig, Ready, ListModels, Status,
// CreateSession, Generate, ...).
package manager
