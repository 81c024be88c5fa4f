package manager

import (
	"os"
	"path/filepath"
	"testing"

	"sessiond/internal/engine/mock"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// createModelFile writes an empty model file and returns its path.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return p
}

// newTestManager returns a manager over a mock engine with one model
// "tiny.gguf" registered from a temp models dir.
func newTestManager(t *testing.T, opts mock.Options, cfg ManagerConfig) (*Manager, *mock.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	createModelFile(t, dir, "tiny.gguf")
	reg, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	opts.RequireFile = true
	eng := mock.New(opts)
	cfg.Engine = eng
	cfg.Registry = reg
	cfg.ModelsDir = dir
	if cfg.Defaults == nil {
		d := session.DefaultGenerationConfig()
		d.ContextSize = 512
		d.MaxTokens = 32
		d.Seed = 1
		cfg.Defaults = &d
	}
	m := NewWithConfig(cfg)
	t.Cleanup(m.Close)
	return m, eng, dir
}

func mustCreate(t *testing.T, m *Manager, req types.CreateSessionRequest) registry.Handle {
	t.Helper()
	h, err := m.CreateSession(req)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return h
}

func intPtr(v int) *int { return &v }
