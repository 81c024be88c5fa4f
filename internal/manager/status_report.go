package manager

import (
	"time"

	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

func toSessionStatus(h registry.Handle, st session.Status) types.SessionStatus {
	out := types.SessionStatus{
		Handle:     uint64(h),
		Engine:     st.Engine,
		Loaded:     st.Loaded,
		Generating: st.Generating,
		ModelPath:  st.ModelPath,
		LastError:  st.LastError,
	}
	if st.Last != nil {
		out.Last = &types.GenerationStats{
			RunID:          st.Last.RunID,
			PromptTokens:   st.Last.PromptTokens,
			Generated:      st.Last.Generated,
			Truncated:      st.Last.Truncated,
			ReusablePrefix: st.Last.ReusablePrefix,
			Outcome:        string(st.Last.Outcome),
			DurationMS:     st.Last.Duration.Milliseconds(),
		}
	}
	return out
}

// SessionStatus returns the status of session h.
func (m *Manager) SessionStatus(h registry.Handle) (types.SessionStatus, error) {
	s, err := m.get(h)
	if err != nil {
		return types.SessionStatus{}, err
	}
	return toSessionStatus(h, s.Status()), nil
}

// ListSessions returns the status of every live session in handle order.
func (m *Manager) ListSessions() []types.SessionStatus {
	out := make([]types.SessionStatus, 0, m.sessions.Len())
	m.sessions.Each(func(h registry.Handle, s *session.Session) {
		if s != nil {
			out = append(out, toSessionStatus(h, s.Status()))
		}
	})
	return out
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	models := len(m.registry)
	m.mu.RUnlock()
	now := time.Now()
	return types.StatusResponse{
		Version:          m.Version(),
		Engine:           m.EngineName(),
		Sessions:         m.ListSessions(),
		MaxSessions:      m.maxSessions,
		ModelsCount:      models,
		UptimeSeconds:    int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:   now.Unix(),
		LoadsTotal:       m.loadsTotal.Load(),
		GenerationsTotal: m.generationsTotal.Load(),
	}
}
