package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sessiond/internal/engine"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/internal/version"
	"sessiond/pkg/types"
)

type Manager struct {
	eng    engine.Engine
	engErr error

	// mu guards registry and serializes session creation against the limit.
	mu        sync.RWMutex
	registry  []types.Model
	modelsDir string

	sessions    *registry.Arena[*session.Session]
	maxSessions int
	defaults    session.GenerationConfig

	log       zerolog.Logger
	sessLog   *zerolog.Logger
	publisher session.EventPublisher

	startTime        time.Time
	loadsTotal       atomic.Uint64
	generationsTotal atomic.Uint64
}

// New constructs a Manager over eng with a static model registry.
func New(eng engine.Engine, reg []types.Model) *Manager {
	// Delegate to NewWithConfig to centralize defaults and option parsing
	return NewWithConfig(ManagerConfig{Engine: eng, Registry: reg})
}

// Ready reports whether sessions can be served.
func (m *Manager) Ready() bool { return m.eng != nil }

// EngineName returns the engine identifier, or "" without an engine.
func (m *Manager) EngineName() string {
	if m.eng == nil {
		return ""
	}
	return m.eng.Name()
}

// Version returns the version string, e.g. "0.1.1 (llama.cpp)".
func (m *Manager) Version() string { return version.String(m.EngineName()) }

// Defaults returns the base generation config.
func (m *Manager) Defaults() session.GenerationConfig { return m.defaults }

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// Close closes every live session.
func (m *Manager) Close() {
	for _, s := range m.sessions.Drain() {
		if s != nil {
			s.Close()
		}
	}
}

func (m *Manager) unavailable() error {
	if m.engErr != nil {
		return m.engErr
	}
	return ErrDependencyUnavailable("no inference engine configured")
}
