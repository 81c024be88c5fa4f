package manager

import (
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// CreateSession allocates a session and, when the request names a model,
// loads it. A failed initial load closes the session again.
func (m *Manager) CreateSession(req types.CreateSessionRequest) (registry.Handle, error) {
	if m.eng == nil {
		return 0, m.unavailable()
	}
	m.mu.Lock()
	if m.sessions.Len() >= m.maxSessions {
		m.mu.Unlock()
		return 0, tooBusyError{limit: m.maxSessions}
	}
	h := m.sessions.Insert(nil)
	s := session.New(session.Options{
		Engine:    m.eng,
		ID:        h.String(),
		Logger:    m.sessLog,
		Publisher: m.publisher,
	})
	m.sessions.Replace(h, s)
	m.mu.Unlock()

	m.publisher.Publish(session.Event{Name: EventSessionCreate, Session: h.String(), Fields: map[string]any{}})
	m.log.Debug().Str("session", h.String()).Msg("session created")

	if req.Model != "" || req.Path != "" {
		if err := m.LoadModel(h, types.LoadModelRequest{Model: req.Model, Path: req.Path, Config: req.Config}); err != nil {
			_ = m.CloseSession(h)
			return 0, err
		}
	}
	return h, nil
}

// get resolves a handle. Slots reserved by CreateSession but not yet filled
// read as missing.
func (m *Manager) get(h registry.Handle) (*session.Session, error) {
	s, ok := m.sessions.Get(h)
	if !ok || s == nil {
		return nil, sessionNotFoundError{handle: h.String()}
	}
	return s, nil
}

// Session returns the session behind h.
func (m *Manager) Session(h registry.Handle) (*session.Session, error) { return m.get(h) }

// CloseSession removes h and releases its model. The handle is stale
// afterwards.
func (m *Manager) CloseSession(h registry.Handle) error {
	s, ok := m.sessions.Remove(h)
	if !ok || s == nil {
		return sessionNotFoundError{handle: h.String()}
	}
	s.Close()
	m.publisher.Publish(session.Event{Name: EventSessionClose, Session: h.String(), Fields: map[string]any{}})
	m.log.Debug().Str("session", h.String()).Msg("session closed")
	return nil
}

// LoadModel resolves the requested model and loads it into session h with
// the manager defaults overlaid by req.Config.
func (m *Manager) LoadModel(h registry.Handle, req types.LoadModelRequest) error {
	s, err := m.get(h)
	if err != nil {
		return err
	}
	path, err := m.resolveModel(req.Model, req.Path)
	if err != nil {
		return err
	}
	if err := s.LoadModel(path, mergeConfig(m.defaults, req.Config)); err != nil {
		return err
	}
	m.loadsTotal.Add(1)
	return nil
}

// UnloadModel cancels any generation on h and frees its model.
func (m *Manager) UnloadModel(h registry.Handle) error {
	s, err := m.get(h)
	if err != nil {
		return err
	}
	s.Unload()
	return nil
}

// Cancel requests cancellation of the generation running on h.
func (m *Manager) Cancel(h registry.Handle) error {
	s, err := m.get(h)
	if err != nil {
		return err
	}
	s.CancelGeneration()
	return nil
}
