// Package sampler turns a declarative sampling configuration into the ordered
// stage list of an engine sampler chain.
//
// The order is fixed: penalties -> top-k -> top-p -> temperature -> dist.
// Filters run first, scaling second, the seeded draw last. A stage whose
// setting is neutral is left out of the chain.
package sampler

import (
	"fmt"
	"time"

	"sessiond/internal/engine"
)

// PenaltyLastN is the number of recent tokens the repetition penalty sees.
const PenaltyLastN = 64

// Config is the sampling subset of a generation config.
type Config struct {
	Temperature   float32
	TopP          float32
	TopK          int
	RepeatPenalty float32
	// Seed < 0 derives the seed from the clock.
	Seed int
}

// Clock returns the current time. Injected so seed derivation is testable.
type Clock func() time.Time

// ResolveSeed maps a configured seed to the value handed to the dist stage.
// Negative seeds resolve to the current Unix time, which makes that case
// non-reproducible.
func ResolveSeed(seed int, now Clock) uint32 {
	if seed >= 0 {
		return uint32(seed)
	}
	if now == nil {
		now = time.Now
	}
	return uint32(now().Unix())
}

// Plan returns the ordered stages for cfg.
func Plan(cfg Config, now Clock) []engine.Stage {
	stages := make([]engine.Stage, 0, 5)
	if cfg.RepeatPenalty != 1.0 {
		stages = append(stages, engine.Stage{
			Kind:   engine.StagePenalties,
			LastN:  PenaltyLastN,
			Repeat: cfg.RepeatPenalty,
		})
	}
	if cfg.TopK > 0 {
		stages = append(stages, engine.Stage{Kind: engine.StageTopK, K: cfg.TopK})
	}
	if cfg.TopP < 1.0 {
		stages = append(stages, engine.Stage{Kind: engine.StageTopP, P: cfg.TopP, MinKeep: 1})
	}
	if cfg.Temperature > 0 {
		stages = append(stages, engine.Stage{Kind: engine.StageTemperature, Temperature: cfg.Temperature})
	}
	stages = append(stages, engine.Stage{Kind: engine.StageDist, Seed: ResolveSeed(cfg.Seed, now)})
	return stages
}

// Build creates a sampler chain on eng holding the stages in Plan order. On
// failure any partially built chain is freed.
func Build(eng engine.Engine, cfg Config, now Clock) (engine.Sampler, []engine.Stage, error) {
	chain, err := eng.NewSamplerChain()
	if err != nil {
		return nil, nil, fmt.Errorf("create sampler chain: %w", err)
	}
	if chain == nil {
		return nil, nil, fmt.Errorf("create sampler chain: engine returned no handle")
	}
	stages := Plan(cfg, now)
	for _, st := range stages {
		if err := eng.AddStage(chain, st); err != nil {
			eng.FreeSampler(chain)
			return nil, nil, fmt.Errorf("add %s stage: %w", st.Kind, err)
		}
	}
	return chain, stages, nil
}
