package session

import (
	"sessiond/internal/engine"
	"sessiond/internal/sampler"
)

// Defaults applied by DefaultGenerationConfig.
const (
	defaultContextSize   = 2048
	defaultBatchSize     = 512
	defaultThreads       = 4
	defaultTemperature   = 0.7
	defaultTopP          = 0.9
	defaultTopK          = 40
	defaultRepeatPenalty = 1.1
	defaultMaxTokens     = 512
)

// GenerationConfig holds load-time and per-call generation settings.
//
// ContextSize, Threads, ThreadsBatch, UseMmap, UseMlock and GPULayers only
// take effect in LoadModel. When passed as a per-call override, the sampling
// fields and MaxTokens apply, and BatchSize is capped at the loaded value.
type GenerationConfig struct {
	ContextSize   int     `json:"context_size" yaml:"context_size" toml:"context_size"`
	BatchSize     int     `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Threads       int     `json:"threads" yaml:"threads" toml:"threads"`
	ThreadsBatch  int     `json:"threads_batch" yaml:"threads_batch" toml:"threads_batch"`
	Temperature   float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP          float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK          int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	RepeatPenalty float32 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	MaxTokens     int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	UseMmap       bool    `json:"use_mmap" yaml:"use_mmap" toml:"use_mmap"`
	UseMlock      bool    `json:"use_mlock" yaml:"use_mlock" toml:"use_mlock"`
	GPULayers     int     `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	// Seed < 0 derives the seed from the clock at sampler construction.
	Seed int `json:"seed" yaml:"seed" toml:"seed"`
}

// DefaultGenerationConfig returns the stock configuration.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		ContextSize:   defaultContextSize,
		BatchSize:     defaultBatchSize,
		Threads:       defaultThreads,
		ThreadsBatch:  defaultThreads,
		Temperature:   defaultTemperature,
		TopP:          defaultTopP,
		TopK:          defaultTopK,
		RepeatPenalty: defaultRepeatPenalty,
		MaxTokens:     defaultMaxTokens,
		UseMmap:       true,
		UseMlock:      false,
		GPULayers:     0,
		Seed:          -1,
	}
}

func (c GenerationConfig) modelParams() engine.ModelParams {
	return engine.ModelParams{GPULayers: c.GPULayers, UseMmap: c.UseMmap, UseMlock: c.UseMlock}
}

func (c GenerationConfig) contextParams() engine.ContextParams {
	return engine.ContextParams{
		ContextSize:  c.ContextSize,
		BatchSize:    c.BatchSize,
		Threads:      c.Threads,
		ThreadsBatch: c.ThreadsBatch,
	}
}

func (c GenerationConfig) samplerConfig() sampler.Config {
	return sampler.Config{
		Temperature:   c.Temperature,
		TopP:          c.TopP,
		TopK:          c.TopK,
		RepeatPenalty: c.RepeatPenalty,
		Seed:          c.Seed,
	}
}

// overrideOn returns c with load-time fields taken from loaded.
func (c GenerationConfig) overrideOn(loaded GenerationConfig) GenerationConfig {
	out := c
	out.ContextSize = loaded.ContextSize
	out.Threads = loaded.Threads
	out.ThreadsBatch = loaded.ThreadsBatch
	out.UseMmap = loaded.UseMmap
	out.UseMlock = loaded.UseMlock
	out.GPULayers = loaded.GPULayers
	if out.BatchSize <= 0 || (loaded.BatchSize > 0 && out.BatchSize > loaded.BatchSize) {
		out.BatchSize = loaded.BatchSize
	}
	return out
}
