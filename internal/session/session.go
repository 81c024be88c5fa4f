package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sessiond/internal/engine"
	"sessiond/internal/sampler"
	"sessiond/internal/tokens"
)

// Prompt budget constants. The prompt may use the window minus the requested
// generation minus promptSafetyMargin; below minPromptTokens the window is
// considered too small to truncate into.
const (
	promptSafetyMargin = 16
	minPromptTokens    = 64
)

// Options configures a Session.
type Options struct {
	// Engine performs tokenization, decode and sampling. Required.
	Engine engine.Engine
	// ID labels logs and events.
	ID string
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
	// Publisher defaults to dropping events.
	Publisher EventPublisher
	// Clock defaults to time.Now. It seeds samplers configured with seed < 0.
	Clock sampler.Clock
}

// Outcome describes how a generation call ended.
type Outcome string

const (
	OutcomeEndOfGeneration Outcome = "eog"
	OutcomeMaxTokens       Outcome = "max_tokens"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeError           Outcome = "error"
)

// GenerationStats summarizes the most recent generation call.
type GenerationStats struct {
	// RunID identifies the call in logs and events.
	RunID        string
	PromptTokens int
	Generated    int
	Truncated    bool
	// ReusablePrefix is the number of leading prompt tokens shared with the
	// previous call. Informational only; memory is always cleared.
	ReusablePrefix int
	Outcome        Outcome
	Duration       time.Duration
}

// Status is a point-in-time projection of a session.
type Status struct {
	ID         string
	Engine     string
	Loaded     bool
	Generating bool
	ModelPath  string
	LastError  string
	Config     GenerationConfig
	Last       *GenerationStats
}

// Session owns at most one model, context and sampler chain.
type Session struct {
	id    string
	eng   engine.Engine
	log   zerolog.Logger
	pub   EventPublisher
	clock sampler.Clock

	// mu serializes LoadModel, Unload and generation. Handle fields below are
	// only touched with mu held, or by UnloadModel under caller exclusivity.
	mu         sync.Mutex
	model      engine.Model
	ctx        engine.Context
	smpl       engine.Sampler
	cfg        GenerationConfig
	lastPrompt tokens.Sequence
	closed     bool

	loaded     atomic.Bool
	generating atomic.Bool
	genSeq     atomic.Uint64
	cancelSeq  atomic.Uint64

	// infoMu guards the fields read by status accessors while a generation
	// holds mu.
	infoMu    sync.Mutex
	modelPath string
	infoCfg   GenerationConfig
	lastErr   string
	last      *GenerationStats
}

// New returns an empty session.
func New(opts Options) *Session {
	s := &Session{
		id:    opts.ID,
		eng:   opts.Engine,
		pub:   opts.Publisher,
		clock: opts.Clock,
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "session").Str("session", opts.ID).Logger()
	} else {
		s.log = zerolog.Nop()
	}
	if s.pub == nil {
		s.pub = noopPublisher{}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// ID returns the session label.
func (s *Session) ID() string { return s.id }

// IsModelLoaded reports whether a model and context are live.
func (s *Session) IsModelLoaded() bool { return s.loaded.Load() }

// IsGenerating reports whether a generation call is in flight.
func (s *Session) IsGenerating() bool { return s.generating.Load() }

// LastError returns the message of the most recent failed operation, or ""
// when the most recent operation succeeded.
func (s *Session) LastError() string {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.lastErr
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	st := Status{
		ID:         s.id,
		Loaded:     s.loaded.Load(),
		Generating: s.generating.Load(),
		ModelPath:  s.modelPath,
		LastError:  s.lastErr,
		Config:     s.infoCfg,
	}
	if s.eng != nil {
		st.Engine = s.eng.Name()
	}
	if s.last != nil {
		cp := *s.last
		st.Last = &cp
	}
	return st
}

func (s *Session) setLastError(msg string) {
	s.infoMu.Lock()
	s.lastErr = msg
	s.infoMu.Unlock()
}

// fail records err as the last error and returns it.
func (s *Session) fail(err error) error {
	s.setLastError(err.Error())
	return err
}

func (s *Session) publish(name string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	s.pub.Publish(Event{Name: name, Session: s.id, Fields: fields})
}
