package manager

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// doneLine is the final NDJSON line of a streamed generation.
type doneLine struct {
	Done         bool   `json:"done"`
	Tokens       int    `json:"tokens"`
	FinishReason string `json:"finish_reason,omitempty"`
	Truncated    bool   `json:"truncated"`
	Error        string `json:"error,omitempty"`
}

// Generate runs a generation on session h and writes the result to w. With
// req.Stream it writes one {"token":...} NDJSON line per token and a final
// {"done":true,...} line; otherwise a single GenerateResponse object.
//
// Errors that occur before anything was written are returned with w
// untouched so the caller can map them to a status code. A failure after
// tokens were streamed is reported in the done line and also returned.
func (m *Manager) Generate(ctx context.Context, h registry.Handle, req types.GenerateRequest, w io.Writer, flusher func()) error {
	s, err := m.get(h)
	if err != nil {
		return err
	}
	var override *session.GenerationConfig
	if req.Config != nil {
		c := mergeConfig(s.Status().Config, req.Config)
		override = &c
	}
	m.generationsTotal.Add(1)

	if !req.Stream {
		var b strings.Builder
		stats, err := s.GenerateStreamStats(ctx, req.Prompt, func(piece string) { b.WriteString(piece) }, override)
		if err != nil {
			return err
		}
		return json.NewEncoder(w).Encode(types.GenerateResponse{
			Text:         b.String(),
			Tokens:       stats.Generated,
			FinishReason: string(stats.Outcome),
			Truncated:    stats.Truncated,
		})
	}

	var (
		n        int
		writeErr error
	)
	onTok := func(tok string) {
		if writeErr != nil {
			return
		}
		if _, e := w.Write(tokenLineJSON(tok)); e != nil {
			// client went away; stop generating
			writeErr = e
			s.CancelGeneration()
			return
		}
		n++
		if flusher != nil {
			flusher()
		}
	}
	stats, err := s.GenerateStreamStats(ctx, req.Prompt, onTok, override)
	if writeErr != nil {
		return writeErr
	}
	if err != nil && n == 0 {
		return err
	}
	end := doneLine{Done: true, Tokens: n, FinishReason: string(stats.Outcome), Truncated: stats.Truncated}
	if err != nil {
		end.Error = err.Error()
	}
	jb, _ := json.Marshal(end)
	if _, werr := w.Write(append(jb, '\n')); werr != nil && err == nil {
		return werr
	}
	if flusher != nil {
		flusher()
	}
	return err
}

// tokenLineJSON formats a token NDJSON line using json.Marshal for correctness.
func tokenLineJSON(tok string) []byte {
	type tokenMsg struct {
		Token string `json:"token"`
	}
	b, _ := json.Marshal(tokenMsg{Token: tok})
	return append(b, '\n')
}
