package manager

import (
	"time"

	"github.com/rs/zerolog"

	"sessiond/internal/engine"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxSessions = 16
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Engine backs every session. A nil engine leaves the manager unready;
	// loads fail with a dependency-unavailable error.
	Engine engine.Engine
	// EngineErr explains a nil Engine (e.g. backend not compiled in).
	EngineErr error
	Registry  []types.Model
	// ModelsDir is rescanned when a model id is not in Registry.
	ModelsDir string
	// Defaults is the base generation config; nil fields of request
	// overrides keep these values.
	Defaults    *session.GenerationConfig
	MaxSessions int
	Logger      *zerolog.Logger
	Publisher   session.EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		eng:       cfg.Engine,
		engErr:    cfg.EngineErr,
		registry:  append([]types.Model(nil), cfg.Registry...),
		modelsDir: cfg.ModelsDir,
		publisher: cfg.Publisher,
	}
	// Apply defaults if unset
	if cfg.Defaults != nil {
		m.defaults = *cfg.Defaults
	} else {
		m.defaults = session.DefaultGenerationConfig()
	}
	if cfg.MaxSessions <= 0 {
		m.maxSessions = defaultMaxSessions
	} else {
		m.maxSessions = cfg.MaxSessions
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
		m.sessLog = cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	m.sessions = registry.NewArena[*session.Session]()
	m.startTime = time.Now()
	return m
}
