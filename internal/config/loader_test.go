package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: :9999
models_dir: /tmp
model: tiny.gguf
backend: mock
log_level: debug
max_body_bytes: 2048
cors:
  enabled: true
  origins: ["http://localhost"]
generation:
  context_size: 4096
  temperature: 0.2
  seed: 7
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp" || cfg.Model != "tiny.gguf" || cfg.Backend != "mock" || cfg.LogLevel != "debug" || cfg.MaxBodyBytes != 2048 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.Origins) != 1 {
		t.Fatalf("unexpected cors: %+v", cfg.CORS)
	}
	g := cfg.Generation
	if g.ContextSize == nil || *g.ContextSize != 4096 || g.Temperature == nil || *g.Temperature != 0.2 || g.Seed == nil || *g.Seed != 7 {
		t.Fatalf("unexpected generation: %+v", g)
	}
	if g.TopK != nil || g.MaxTokens != nil {
		t.Fatalf("unset fields must stay nil: %+v", g)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","models_dir":"/m","backend":"llama","generation":{"max_tokens":64}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.Backend != "llama" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Generation.MaxTokens == nil || *cfg.Generation.MaxTokens != 64 {
		t.Fatalf("unexpected generation: %+v", cfg.Generation)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\nmax_sessions=3\n\n[generation]\ntop_k=20\nuse_mmap=false\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.MaxSessions != 3 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	g := cfg.Generation
	if g.TopK == nil || *g.TopK != 20 || g.UseMmap == nil || *g.UseMmap {
		t.Fatalf("unexpected generation: %+v", g)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	if _, err := Load(writeTempFile(t, d, "cfg.txt", "not supported")); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := Load(writeTempFile(t, d, "bad.json", "{")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(writeTempFile(t, d, "backend.yaml", "backend: cuda\n")); err == nil {
		t.Fatalf("expected backend validation error")
	}
	if _, err := Load(writeTempFile(t, d, "neg.yaml", "max_body_bytes: -1\n")); err == nil {
		t.Fatalf("expected negative value error")
	}
}
