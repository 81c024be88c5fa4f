package session

import (
	"strings"

	"sessiond/internal/sampler"
)

// LoadModel replaces any loaded model with the one at path. On failure the
// session is left empty and the error is a ModelLoad error carrying path.
func (s *Session) LoadModel(path string, cfg GenerationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLastError("")
	if s.closed {
		return s.fail(invalidState("session closed"))
	}
	if s.eng == nil {
		return s.fail(&Error{Kind: KindInternal, Msg: "no engine configured"})
	}
	s.UnloadModel()

	start := s.clock()
	s.publish(EventLoadStart, map[string]any{"path": path})
	s.log.Info().Str("path", path).Int("ctx", cfg.ContextSize).Int("batch", cfg.BatchSize).Int("gpu_layers", cfg.GPULayers).Msg("loading model")

	loadFailed := func(err *Error) error {
		modelLoadsTotal.WithLabelValues("error").Inc()
		s.publish(EventLoadFailed, map[string]any{"path": path, "error": err.Error()})
		s.log.Error().Err(err).Str("path", path).Msg("model load failed")
		return s.fail(err)
	}

	if strings.TrimSpace(path) == "" {
		return loadFailed(&Error{Kind: KindModelLoad, Msg: "model path is empty"})
	}
	model, err := s.eng.CreateModel(path, cfg.modelParams())
	if err != nil || model == nil {
		return loadFailed(&Error{Kind: KindModelLoad, Msg: "failed to load model", Path: path, Err: err})
	}
	ctx, err := s.eng.CreateContext(model, cfg.contextParams())
	if err != nil || ctx == nil {
		s.eng.FreeModel(model)
		return loadFailed(&Error{Kind: KindModelLoad, Msg: "failed to create context", Path: path, Err: err})
	}
	smpl, stages, err := sampler.Build(s.eng, cfg.samplerConfig(), s.clock)
	if err != nil {
		s.eng.FreeContext(ctx)
		s.eng.FreeModel(model)
		return loadFailed(&Error{Kind: KindModelLoad, Msg: "failed to create sampler", Path: path, Err: err})
	}

	s.model, s.ctx, s.smpl = model, ctx, smpl
	s.cfg = cfg
	s.lastPrompt = nil
	s.loaded.Store(true)

	s.infoMu.Lock()
	s.modelPath = path
	s.infoCfg = cfg
	s.infoMu.Unlock()

	modelLoadsTotal.WithLabelValues("ok").Inc()
	dur := s.clock().Sub(start)
	s.publish(EventLoadDone, map[string]any{"path": path, "context_size": s.eng.ContextSize(ctx), "duration_ms": dur.Milliseconds()})
	if e := s.log.Debug(); e.Enabled() {
		names := make([]string, len(stages))
		for i, st := range stages {
			names[i] = st.String()
		}
		e.Strs("sampler", names).Msg("sampler chain")
	}
	s.log.Info().Str("path", path).Dur("dur", dur).Msg("model loaded")
	return nil
}

// UnloadModel frees the sampler, context and model, in that order. Safe to
// call on an empty session. It does not take the session lock: callers must
// have exclusive access, either by holding it (LoadModel) or by knowing no
// generation can run. Use Unload from concurrent code.
func (s *Session) UnloadModel() {
	if s.eng == nil {
		return
	}
	had := s.model != nil
	if s.smpl != nil {
		s.eng.FreeSampler(s.smpl)
		s.smpl = nil
	}
	if s.ctx != nil {
		s.eng.FreeContext(s.ctx)
		s.ctx = nil
	}
	if s.model != nil {
		s.eng.FreeModel(s.model)
		s.model = nil
	}
	s.lastPrompt = nil
	s.loaded.Store(false)

	s.infoMu.Lock()
	path := s.modelPath
	s.modelPath = ""
	s.infoMu.Unlock()

	if had {
		s.publish(EventUnload, map[string]any{"path": path})
		s.log.Info().Str("path", path).Msg("model unloaded")
	}
}

// Unload cancels any in-flight generation, waits for it to return and frees
// the loaded model.
func (s *Session) Unload() {
	s.CancelGeneration()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UnloadModel()
}

// Close unloads the model and marks the session closed. Further loads fail
// with an InvalidState error. Close is idempotent.
func (s *Session) Close() {
	s.CancelGeneration()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.UnloadModel()
	s.closed = true
	s.publish(EventClose, nil)
}
