package session

import (
	"strings"
	"testing"
	"time"

	"sessiond/internal/engine"
	"sessiond/internal/engine/mock"
)

func fixedClock() time.Time { return time.Unix(1_700_000_000, 0) }

// newTestSession returns a session over a fresh mock engine.
func newTestSession(t *testing.T, opts mock.Options) (*Session, *mock.Engine, *MemoryPublisher) {
	t.Helper()
	eng := mock.New(opts)
	pub := NewMemoryPublisher()
	s := New(Options{Engine: eng, ID: "test", Publisher: pub, Clock: fixedClock})
	return s, eng, pub
}

// hookEngine wraps the mock so a test can change its behaviour after load.
type hookEngine struct {
	*mock.Engine
	failAddStage error
	afterDecode  func(call int)
	decodes      int
}

func (e *hookEngine) AddStage(smpl engine.Sampler, st engine.Stage) error {
	if e.failAddStage != nil {
		return e.failAddStage
	}
	return e.Engine.AddStage(smpl, st)
}

func (e *hookEngine) Decode(ctx engine.Context, batch *engine.Batch) int {
	status := e.Engine.Decode(ctx, batch)
	e.decodes++
	if e.afterDecode != nil {
		e.afterDecode(e.decodes)
	}
	return status
}

func newHookSession(t *testing.T, opts mock.Options) (*Session, *hookEngine) {
	t.Helper()
	eng := &hookEngine{Engine: mock.New(opts)}
	s := New(Options{Engine: eng, ID: "hook", Clock: fixedClock})
	return s, eng
}

// testConfig is the default config with a fixed seed and a small window.
func testConfig() GenerationConfig {
	cfg := DefaultGenerationConfig()
	cfg.ContextSize = 512
	cfg.BatchSize = 64
	cfg.MaxTokens = 32
	cfg.Seed = 42
	return cfg
}

func mustLoad(t *testing.T, s *Session, cfg GenerationConfig) {
	t.Helper()
	if err := s.LoadModel("/models/test.gguf", cfg); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
}

// words returns n distinct space separated words.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w" + itoa(i)
	}
	return strings.Join(parts, " ")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
