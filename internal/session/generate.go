package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sessiond/internal/engine"
	"sessiond/internal/sampler"
	"sessiond/internal/tokens"
	"sessiond/internal/truncate"
)

// genRun holds the per-call scratch state of one generation.
type genRun struct {
	seq     uint64
	batch   *engine.Batch
	scratch engine.Sampler
	stats   GenerationStats
}

// release frees per-call scratch. The session sampler is never touched.
func (r *genRun) release(eng engine.Engine) {
	if r.scratch != nil {
		eng.FreeSampler(r.scratch)
		r.scratch = nil
	}
	if r.batch != nil {
		r.batch.Release()
		r.batch = nil
	}
}

// CancelGeneration asks the running generation to stop before its next
// token. It does not wait and is a no-op when nothing is generating.
//
// The request is tagged with the sequence number of the call it observed, so
// a cancel racing with the end of one call never stops the next one.
func (s *Session) CancelGeneration() {
	seq := s.genSeq.Load()
	if s.generating.Load() {
		s.cancelSeq.Store(seq)
	}
}

func (s *Session) cancelled(ctx context.Context, seq uint64) bool {
	return s.cancelSeq.Load() == seq || ctx.Err() != nil
}

// Generate runs GenerateStream and returns the concatenated token text. On
// error the text produced before the failure is returned alongside it.
func (s *Session) Generate(ctx context.Context, prompt string, cfg *GenerationConfig) (string, error) {
	var b strings.Builder
	err := s.GenerateStream(ctx, prompt, func(piece string) { b.WriteString(piece) }, cfg)
	return b.String(), err
}

// GenerateStream tokenizes prompt, fits it into the context window and
// decodes tokens one at a time, passing each token's text to onToken in
// order. It returns nil when generation stops at end-of-generation, after
// MaxTokens tokens, or on cancellation (CancelGeneration or ctx). A non-nil
// cfg overrides the loaded sampling settings for this call only.
func (s *Session) GenerateStream(ctx context.Context, prompt string, onToken func(string), cfg *GenerationConfig) error {
	_, err := s.GenerateStreamStats(ctx, prompt, onToken, cfg)
	return err
}

// GenerateStreamStats is GenerateStream returning the stats of this call.
// Unlike Status().Last they cannot be replaced by a later call on the same
// session. Stats are zero when the call is rejected before it starts.
func (s *Session) GenerateStreamStats(ctx context.Context, prompt string, onToken func(string), cfg *GenerationConfig) (GenerationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLastError("")
	if onToken == nil {
		return GenerationStats{}, s.fail(invalidState("token callback is nil"))
	}
	if !s.loaded.Load() || s.model == nil {
		return GenerationStats{}, s.fail(invalidState("no model loaded"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// seq is bumped before generating is raised: a CancelGeneration that sees
	// generating also sees this call's seq or a later one.
	seq := s.genSeq.Add(1)
	s.generating.Store(true)
	run := &genRun{seq: seq, stats: GenerationStats{RunID: "gen_" + uuid.NewString()}}
	start := s.clock()
	defer func() {
		s.generating.Store(false)
		run.release(s.eng)
	}()

	s.publish(EventGenerateStart, map[string]any{"run": run.stats.RunID, "override": cfg != nil})
	outcome, err := s.generate(ctx, prompt, onToken, cfg, run)
	run.stats.Outcome = outcome
	run.stats.Duration = s.clock().Sub(start)
	s.finish(run.stats, err)
	if err != nil {
		return run.stats, s.fail(err)
	}
	return run.stats, nil
}

func (s *Session) generate(ctx context.Context, prompt string, onToken func(string), override *GenerationConfig, run *genRun) (Outcome, error) {
	cfg := s.cfg
	smpl := s.smpl
	if override != nil {
		cfg = override.overrideOn(s.cfg)
		scratch, _, err := sampler.Build(s.eng, cfg.samplerConfig(), s.clock)
		if err != nil {
			return OutcomeError, &Error{Kind: KindInternal, Msg: "failed to configure sampler", Err: err}
		}
		run.scratch = scratch
		smpl = scratch
	}
	if err := s.checkReady(smpl); err != nil {
		return OutcomeError, err
	}

	promptToks, err := s.eng.Tokenize(s.model, prompt, true)
	if err != nil || len(promptToks) == 0 {
		return OutcomeError, &Error{Kind: KindTokenization, Msg: "failed to tokenize prompt", Err: err}
	}

	window := s.eng.ContextSize(s.ctx)
	maxTokens := cfg.MaxTokens
	if maxTokens < 0 {
		maxTokens = 0
	}
	maxPrompt := window - maxTokens - promptSafetyMargin
	if len(promptToks) > maxPrompt {
		if maxPrompt < minPromptTokens {
			return OutcomeError, &Error{Kind: KindContextTooSmall, Msg: contextTooSmallMsg(window, maxTokens, maxPrompt)}
		}
		res := truncate.Policy{}.Apply(promptToks, maxPrompt)
		s.log.Warn().
			Int("prompt_tokens", len(promptToks)).
			Int("max_prompt", maxPrompt).
			Int("kept_start", res.KeptStart).
			Int("kept_end", res.KeptEnd()).
			Int("cut", res.CutPoint).
			Bool("boundary", res.Boundary).
			Msg("prompt truncated to fit context")
		promptToks = res.Tokens
		run.stats.Truncated = true
		truncationsTotal.Inc()
	}
	run.stats.PromptTokens = len(promptToks)

	if len(s.lastPrompt) > 0 {
		run.stats.ReusablePrefix = tokens.LongestCommonPrefix(s.lastPrompt, promptToks)
		s.log.Debug().Int("reusable_prefix", run.stats.ReusablePrefix).Int("prompt_tokens", len(promptToks)).Msg("prompt prefix shared with previous call")
	}
	s.eng.ClearMemory(s.ctx)
	s.eng.ResetSampler(smpl)
	s.lastPrompt = promptToks.Clone()

	chunk := cfg.BatchSize
	if chunk <= 0 || chunk > len(promptToks) {
		chunk = len(promptToks)
	}
	run.batch = engine.NewBatch(chunk)
	batch := run.batch

	for start := 0; start < len(promptToks); start += chunk {
		if s.cancelled(ctx, run.seq) {
			return OutcomeCancelled, nil
		}
		end := start + chunk
		if end > len(promptToks) {
			end = len(promptToks)
		}
		batch.Clear()
		for i := start; i < end; i++ {
			batch.Add(promptToks[i], i, i == len(promptToks)-1)
		}
		if status := s.eng.Decode(s.ctx, batch); status != 0 {
			return OutcomeError, &Error{Kind: KindDecode, Msg: "failed to decode prompt", Code: status}
		}
	}
	promptTokensTotal.Add(float64(len(promptToks)))

	pos := len(promptToks)
	for run.stats.Generated < maxTokens {
		if s.cancelled(ctx, run.seq) {
			return OutcomeCancelled, nil
		}
		if err := s.checkReady(smpl); err != nil {
			return OutcomeError, err
		}
		tok := s.eng.Sample(smpl, s.ctx)
		if tok < 0 || s.eng.IsEndOfGeneration(s.model, tok) {
			return OutcomeEndOfGeneration, nil
		}
		onToken(s.eng.Detokenize(s.model, tokens.Sequence{tok}))
		run.stats.Generated++
		generatedTokensTotal.Inc()

		batch.Clear()
		batch.Add(tok, pos, true)
		pos++
		if status := s.eng.Decode(s.ctx, batch); status != 0 {
			return OutcomeError, &Error{Kind: KindDecode, Msg: "failed to decode token", Code: status}
		}
	}
	return OutcomeMaxTokens, nil
}

// checkReady reports a KindInternal error when the sampler, context or model
// is gone.
func (s *Session) checkReady(smpl engine.Sampler) error {
	if smpl == nil || s.ctx == nil || s.model == nil {
		return &Error{Kind: KindInternal, Msg: "sampler or context not initialized"}
	}
	return nil
}

// finish records the stats of a completed call.
func (s *Session) finish(stats GenerationStats, err error) {
	generationsTotal.WithLabelValues(string(stats.Outcome)).Inc()
	generationDuration.WithLabelValues(string(stats.Outcome)).Observe(stats.Duration.Seconds())

	s.infoMu.Lock()
	cp := stats
	s.last = &cp
	s.infoMu.Unlock()

	fields := map[string]any{
		"run":           stats.RunID,
		"outcome":       string(stats.Outcome),
		"prompt_tokens": stats.PromptTokens,
		"generated":     stats.Generated,
		"truncated":     stats.Truncated,
	}
	if err != nil {
		fields["error"] = err.Error()
		s.log.Error().Err(err).Str("run", stats.RunID).Int("generated", stats.Generated).Msg("generation failed")
	} else {
		s.log.Info().Str("run", stats.RunID).Str("outcome", string(stats.Outcome)).Int("prompt_tokens", stats.PromptTokens).Int("generated", stats.Generated).Dur("dur", stats.Duration).Msg("generation done")
	}
	s.publish(EventGenerateDone, fields)
}

func contextTooSmallMsg(window, maxTokens, maxPrompt int) string {
	return fmt.Sprintf("context window too small: %d tokens leave %d for the prompt after reserving %d for generation (need at least %d)",
		window, maxPrompt, maxTokens, minPromptTokens)
}
