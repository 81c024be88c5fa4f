package mock

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"sessiond/internal/engine"
	"sessiond/internal/tokens"
)

type candidate struct {
	id    tokens.Token
	logit float64
	p     float64
}

type chain struct {
	stages  []engine.Stage
	history tokens.Sequence
	rng     *rand.Rand
	seed    uint32
	freed   bool
}

// ChainStages returns the stages installed on a mock sampler chain in order.
func ChainStages(s engine.Sampler) []engine.Stage {
	c, ok := s.(*chain)
	if !ok || c == nil {
		return nil
	}
	return append([]engine.Stage(nil), c.stages...)
}

// NewSamplerChain implements engine.Engine.
func (e *Engine) NewSamplerChain() (engine.Sampler, error) {
	e.mu.Lock()
	e.counters.SamplersCreated++
	e.mu.Unlock()
	return &chain{}, nil
}

// AddStage implements engine.Engine.
func (e *Engine) AddStage(s engine.Sampler, st engine.Stage) error {
	if e.opts.FailAddStage != nil {
		return e.opts.FailAddStage
	}
	c, ok := s.(*chain)
	if !ok || c == nil || c.freed {
		return errors.New("mock: invalid sampler handle")
	}
	switch st.Kind {
	case engine.StagePenalties, engine.StageTopK, engine.StageTopP, engine.StageTemperature:
	case engine.StageDist:
		c.seed = st.Seed
		c.rng = newRNG(st.Seed)
	default:
		return fmt.Errorf("mock: unknown stage %v", st.Kind)
	}
	c.stages = append(c.stages, st)
	return nil
}

// ResetSampler implements engine.Engine. History is dropped and the
// distribution stage is re-seeded.
func (e *Engine) ResetSampler(s engine.Sampler) {
	c, ok := s.(*chain)
	if !ok || c == nil {
		return
	}
	c.history = c.history[:0]
	if c.rng != nil {
		c.rng = newRNG(c.seed)
	}
}

// FreeSampler implements engine.Engine.
func (e *Engine) FreeSampler(s engine.Sampler) {
	c, ok := s.(*chain)
	if !ok || c == nil || c.freed {
		return
	}
	c.freed = true
	e.mu.Lock()
	e.counters.SamplersFreed++
	e.mu.Unlock()
}

// Sample implements engine.Engine. It returns -1 when the context has no
// logits to sample from.
func (e *Engine) Sample(s engine.Sampler, ctx engine.Context) tokens.Token {
	c, ok := s.(*chain)
	cx, ok2 := ctx.(*context)
	if !ok || !ok2 || c == nil || cx == nil || c.freed || !cx.logitsReady {
		return -1
	}
	cands := e.logits(cx)
	for _, st := range c.stages {
		switch st.Kind {
		case engine.StagePenalties:
			applyPenalties(cands, c.history, st)
		case engine.StageTopK:
			cands = topK(cands, st.K)
		case engine.StageTopP:
			cands = topP(cands, float64(st.P), st.MinKeep)
		case engine.StageTemperature:
			applyTemperature(cands, float64(st.Temperature))
		}
	}
	tok := c.pick(cands)
	c.history = append(c.history, tok)
	return tok
}

// logits scores the whole vocabulary for the next position of cx.
func (e *Engine) logits(cx *context) []candidate {
	n := e.vocabSize()
	var last tokens.Token
	if len(cx.memory) > 0 {
		last = cx.memory[len(cx.memory)-1]
	}
	var boost tokens.Token = -1
	switch {
	case cx.generated < len(e.reply):
		boost = e.reply[cx.generated]
	case !e.opts.NoEOS:
		boost = EOS
	}
	cands := make([]candidate, 0, n)
	for i := 0; i < n; i++ {
		id := tokens.Token(i)
		if id == BOS {
			continue
		}
		// Interior special ids are unused apart from EOS and Newline.
		if id < firstWordID && id != EOS && id != Newline {
			continue
		}
		if id == EOS && e.opts.NoEOS {
			continue
		}
		l := noise(last, len(cx.memory), id)
		if id == boost {
			l += replyBias
		}
		cands = append(cands, candidate{id: id, logit: l})
	}
	return cands
}

// noise maps (previous token, position, candidate) to [0, 1).
func noise(prev tokens.Token, pos int, id tokens.Token) float64 {
	x := uint64(uint32(prev))<<40 ^ uint64(uint32(pos))<<20 ^ uint64(uint32(id))
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return float64(x>>11) / float64(1<<53)
}

func newRNG(seed uint32) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x5e55_10ad))
}

func applyPenalties(cands []candidate, history tokens.Sequence, st engine.Stage) {
	window := history
	if st.LastN >= 0 && len(window) > st.LastN {
		window = window[len(window)-st.LastN:]
	}
	if len(window) == 0 {
		return
	}
	counts := make(map[tokens.Token]int, len(window))
	for _, t := range window {
		counts[t]++
	}
	for i := range cands {
		n, ok := counts[cands[i].id]
		if !ok {
			continue
		}
		if st.Repeat != 0 && st.Repeat != 1 {
			if cands[i].logit > 0 {
				cands[i].logit /= float64(st.Repeat)
			} else {
				cands[i].logit *= float64(st.Repeat)
			}
		}
		cands[i].logit -= float64(n)*float64(st.Freq) + float64(st.Present)
	}
}

func sortByLogit(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].logit > cands[j].logit })
}

func topK(cands []candidate, k int) []candidate {
	if k <= 0 || k >= len(cands) {
		return cands
	}
	sortByLogit(cands)
	return cands[:k]
}

func softmax(cands []candidate) {
	if len(cands) == 0 {
		return
	}
	maxL := math.Inf(-1)
	for _, c := range cands {
		if c.logit > maxL {
			maxL = c.logit
		}
	}
	var sum float64
	for i := range cands {
		cands[i].p = math.Exp(cands[i].logit - maxL)
		sum += cands[i].p
	}
	for i := range cands {
		cands[i].p /= sum
	}
}

func topP(cands []candidate, p float64, minKeep int) []candidate {
	if p >= 1 || len(cands) == 0 {
		return cands
	}
	if minKeep < 1 {
		minKeep = 1
	}
	sortByLogit(cands)
	softmax(cands)
	var cum float64
	for i := range cands {
		cum += cands[i].p
		if cum >= p && i+1 >= minKeep {
			return cands[:i+1]
		}
	}
	return cands
}

func applyTemperature(cands []candidate, t float64) {
	if t <= 0 {
		return
	}
	for i := range cands {
		cands[i].logit /= t
	}
}

// pick draws from the distribution, or takes the argmax without a dist stage.
func (c *chain) pick(cands []candidate) tokens.Token {
	if len(cands) == 0 {
		return -1
	}
	if c.rng == nil {
		sortByLogit(cands)
		return cands[0].id
	}
	softmax(cands)
	r := c.rng.Float64()
	var cum float64
	for _, cd := range cands {
		cum += cd.p
		if r < cum {
			return cd.id
		}
	}
	return cands[len(cands)-1].id
}
