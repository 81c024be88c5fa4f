package manager

import (
	"strings"

	"sessiond/internal/common/fsutil"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// RefreshModels rescans ModelsDir and replaces the registry.
func (m *Manager) RefreshModels() error {
	if m.modelsDir == "" {
		return nil
	}
	models, err := registry.LoadDir(m.modelsDir)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.registry = models
	m.mu.Unlock()
	return nil
}

// resolveModel maps a load request to a model file path. An explicit path
// wins; otherwise the id is looked up in the registry, rescanning ModelsDir
// once on a miss. A model value naming an existing file is accepted as a path.
func (m *Manager) resolveModel(model, path string) (string, error) {
	if p := strings.TrimSpace(path); p != "" {
		return fsutil.ExpandHome(p)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return "", ErrModelNotFound("(unspecified)")
	}
	if mdl, ok := registry.Find(m.ListModels(), model); ok {
		return mdl.Path, nil
	}
	if m.modelsDir != "" {
		if err := m.RefreshModels(); err != nil {
			m.log.Warn().Err(err).Str("dir", m.modelsDir).Msg("models rescan failed")
		} else if mdl, ok := registry.Find(m.ListModels(), model); ok {
			return mdl.Path, nil
		}
	}
	if p, err := fsutil.ExpandHome(model); err == nil && fsutil.IsModelFile(p) {
		return p, nil
	}
	return "", ErrModelNotFound(model)
}

// mergeConfig applies the non-nil fields of o on top of base.
func mergeConfig(base session.GenerationConfig, o *types.GenerationConfig) session.GenerationConfig {
	out := base
	if o == nil {
		return out
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float32, src *float32) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&out.ContextSize, o.ContextSize)
	setInt(&out.BatchSize, o.BatchSize)
	setInt(&out.Threads, o.Threads)
	setInt(&out.ThreadsBatch, o.ThreadsBatch)
	setFloat(&out.Temperature, o.Temperature)
	setFloat(&out.TopP, o.TopP)
	setInt(&out.TopK, o.TopK)
	setFloat(&out.RepeatPenalty, o.RepeatPenalty)
	setInt(&out.MaxTokens, o.MaxTokens)
	setBool(&out.UseMmap, o.UseMmap)
	setBool(&out.UseMlock, o.UseMlock)
	setInt(&out.GPULayers, o.GPULayers)
	setInt(&out.Seed, o.Seed)
	return out
}

// MergeConfig is mergeConfig for callers outside the package (cmd).
func MergeConfig(base session.GenerationConfig, o *types.GenerationConfig) session.GenerationConfig {
	return mergeConfig(base, o)
}
