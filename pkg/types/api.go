package types

// GenerationConfig carries optional generation settings. Nil fields keep the
// server or session default.
type GenerationConfig struct {
	// example: 2048
	ContextSize *int `json:"context_size,omitempty" yaml:"context_size,omitempty" toml:"context_size,omitempty" example:"2048"`
	// example: 512
	BatchSize *int `json:"batch_size,omitempty" yaml:"batch_size,omitempty" toml:"batch_size,omitempty" example:"512"`
	// example: 4
	Threads *int `json:"threads,omitempty" yaml:"threads,omitempty" toml:"threads,omitempty" example:"4"`
	// example: 4
	ThreadsBatch *int `json:"threads_batch,omitempty" yaml:"threads_batch,omitempty" toml:"threads_batch,omitempty" example:"4"`
	// Sampling temperature; 0 disables the temperature stage.
	// example: 0.7
	Temperature *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability; 1 disables the stage.
	// example: 0.9
	TopP *float32 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty" example:"0.9"`
	// Top-K candidates; 0 disables the stage.
	// example: 40
	TopK *int `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty" example:"40"`
	// Repetition penalty; 1 disables the stage.
	// example: 1.1
	RepeatPenalty *float32 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty" toml:"repeat_penalty,omitempty" example:"1.1"`
	// Maximum number of new tokens.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty" example:"128"`
	// example: true
	UseMmap *bool `json:"use_mmap,omitempty" yaml:"use_mmap,omitempty" toml:"use_mmap,omitempty" example:"true"`
	// example: false
	UseMlock *bool `json:"use_mlock,omitempty" yaml:"use_mlock,omitempty" toml:"use_mlock,omitempty" example:"false"`
	// example: 0
	GPULayers *int `json:"gpu_layers,omitempty" yaml:"gpu_layers,omitempty" toml:"gpu_layers,omitempty" example:"0"`
	// Seed; negative derives one from the clock.
	// example: 42
	Seed *int `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty" example:"42"`
}

// CreateSessionRequest optionally loads a model into the new session.
type CreateSessionRequest struct {
	// Model id from GET /models.
	// example: tinyllama.Q4_K_M.gguf
	Model string `json:"model,omitempty" example:"tinyllama.Q4_K_M.gguf"`
	// Model file path; takes precedence over Model.
	Path   string            `json:"path,omitempty"`
	Config *GenerationConfig `json:"config,omitempty"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	// Opaque session handle.
	// example: 4294967296
	Handle uint64 `json:"handle" example:"4294967296"`
}

// LoadModelRequest is the body of POST /sessions/{handle}/model.
type LoadModelRequest struct {
	// Model id from GET /models.
	// example: tinyllama.Q4_K_M.gguf
	Model string `json:"model,omitempty" example:"tinyllama.Q4_K_M.gguf"`
	// Model file path; takes precedence over Model.
	Path   string            `json:"path,omitempty"`
	Config *GenerationConfig `json:"config,omitempty"`
}

// GenerateRequest is the body of POST /sessions/{handle}/generate.
type GenerateRequest struct {
	// Required prompt text.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Stream tokens as NDJSON lines instead of one JSON object.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Per-call overrides applied on top of the loaded config.
	Config *GenerationConfig `json:"config,omitempty"`
}

// GenerateResponse is returned by a non-streaming generate call.
type GenerateResponse struct {
	// example: The ocean breathes slow
	Text string `json:"text" example:"The ocean breathes slow"`
	// Number of tokens generated.
	// example: 12
	Tokens int `json:"tokens" example:"12"`
	// eog, max_tokens or cancelled.
	// example: eog
	FinishReason string `json:"finish_reason" example:"eog"`
	// Whether the prompt was truncated to fit the context.
	Truncated bool `json:"truncated"`
}

// GenerationStats summarizes the last generation of a session.
type GenerationStats struct {
	RunID          string `json:"run_id"`
	PromptTokens   int    `json:"prompt_tokens"`
	Generated      int    `json:"generated"`
	Truncated      bool   `json:"truncated"`
	ReusablePrefix int    `json:"reusable_prefix"`
	Outcome        string `json:"outcome"`
	DurationMS     int64  `json:"duration_ms"`
}

// SessionStatus is returned by GET /sessions/{handle}.
type SessionStatus struct {
	// example: 4294967296
	Handle     uint64           `json:"handle" example:"4294967296"`
	Engine     string           `json:"engine" example:"mock"`
	Loaded     bool             `json:"loaded"`
	Generating bool             `json:"generating"`
	ModelPath  string           `json:"model_path,omitempty"`
	LastError  string           `json:"last_error,omitempty"`
	Last       *GenerationStats `json:"last,omitempty"`
}

// SessionsResponse lists live sessions.
type SessionsResponse struct {
	Sessions []SessionStatus `json:"sessions"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// VersionResponse is returned by GET /version.
type VersionResponse struct {
	// example: 0.1.1 (llama.cpp)
	Version string `json:"version" example:"0.1.1 (llama.cpp)"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Version string including the engine name.
	// example: 0.1.1 (llama.cpp)
	Version string `json:"version" example:"0.1.1 (llama.cpp)"`
	// Engine backing new sessions.
	// example: llama.cpp
	Engine string `json:"engine" example:"llama.cpp"`
	// Live sessions.
	Sessions []SessionStatus `json:"sessions"`
	// Maximum live sessions before creates are rejected with 429.
	// example: 16
	MaxSessions int `json:"max_sessions" example:"16"`
	// Number of models in the registry.
	// example: 3
	ModelsCount int `json:"models_count" example:"3"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of successful model loads.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total number of generation calls.
	// example: 40
	GenerationsTotal uint64 `json:"generations_total" example:"40"`
}
