package engine

import "fmt"

// StageKind identifies one step of a sampler chain.
type StageKind int

const (
	StagePenalties StageKind = iota + 1
	StageTopK
	StageTopP
	StageTemperature
	StageDist
)

func (k StageKind) String() string {
	switch k {
	case StagePenalties:
		return "penalties"
	case StageTopK:
		return "top_k"
	case StageTopP:
		return "top_p"
	case StageTemperature:
		return "temperature"
	case StageDist:
		return "dist"
	default:
		return fmt.Sprintf("stage(%d)", int(k))
	}
}

// Stage is a declarative sampler step. Only the fields relevant to Kind are
// read.
type Stage struct {
	Kind StageKind

	// StagePenalties
	LastN   int
	Repeat  float32
	Freq    float32
	Present float32

	// StageTopK
	K int

	// StageTopP
	P       float32
	MinKeep int

	// StageTemperature
	Temperature float32

	// StageDist
	Seed uint32
}

func (s Stage) String() string {
	switch s.Kind {
	case StagePenalties:
		return fmt.Sprintf("penalties(last_n=%d, repeat=%.2f)", s.LastN, s.Repeat)
	case StageTopK:
		return fmt.Sprintf("top_k(%d)", s.K)
	case StageTopP:
		return fmt.Sprintf("top_p(%.2f)", s.P)
	case StageTemperature:
		return fmt.Sprintf("temperature(%.2f)", s.Temperature)
	case StageDist:
		return fmt.Sprintf("dist(seed=%d)", s.Seed)
	default:
		return s.Kind.String()
	}
}
