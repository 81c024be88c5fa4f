package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessiond/internal/registry"
	"sessiond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Version() string

	CreateSession(req types.CreateSessionRequest) (registry.Handle, error)
	CloseSession(h registry.Handle) error
	SessionStatus(h registry.Handle) (types.SessionStatus, error)
	ListSessions() []types.SessionStatus
	LoadModel(h registry.Handle, req types.LoadModelRequest) error
	UnloadModel(h registry.Handle) error
	Generate(ctx context.Context, h registry.Handle, req types.GenerateRequest, w io.Writer, flush func()) error
	Cancel(h registry.Handle) error
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(corsMiddleware())
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// Compression only for the small JSON endpoints; generate streams.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ListModels()})
		})

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, types.VersionResponse{Version: svc.Version()})
		})

		r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, types.SessionsResponse{Sessions: svc.ListSessions()})
		})
	})

	r.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		start := time.Now()
		h, err := svc.CreateSession(req)
		if err != nil {
			logEnd(r, "create session", start, writeError(w, err), err)
			return
		}
		writeJSON(w, http.StatusCreated, types.CreateSessionResponse{Handle: uint64(h)})
		logEnd(r, "create session", start, http.StatusCreated, nil)
	})

	r.Route("/sessions/{handle}", func(r chi.Router) {
		r.Get("/", withHandle(func(w http.ResponseWriter, r *http.Request, h registry.Handle) {
			st, err := svc.SessionStatus(h)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, st)
		}))

		r.Delete("/", withHandle(func(w http.ResponseWriter, r *http.Request, h registry.Handle) {
			start := time.Now()
			if err := svc.CloseSession(h); err != nil {
				logEnd(r, "close session", start, writeError(w, err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			logEnd(r, "close session", start, http.StatusNoContent, nil)
		}))

		r.Post("/model", withHandle(func(w http.ResponseWriter, r *http.Request, h registry.Handle) {
			var req types.LoadModelRequest
			if !decodeJSON(w, r, &req, false) {
				return
			}
			if strings.TrimSpace(req.Model) == "" && strings.TrimSpace(req.Path) == "" {
				writeJSONError(w, http.StatusBadRequest, "model or path is required")
				return
			}
			start := time.Now()
			if err := svc.LoadModel(h, req); err != nil {
				logEnd(r, "load model", start, writeError(w, err), err)
				return
			}
			st, err := svc.SessionStatus(h)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, st)
			logEnd(r, "load model", start, http.StatusOK, nil)
		}))

		r.Delete("/model", withHandle(func(w http.ResponseWriter, r *http.Request, h registry.Handle) {
			start := time.Now()
			if err := svc.UnloadModel(h); err != nil {
				logEnd(r, "unload model", start, writeError(w, err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			logEnd(r, "unload model", start, http.StatusNoContent, nil)
		}))

		r.Post("/cancel", withHandle(func(w http.ResponseWriter, r *http.Request, h registry.Handle) {
			if err := svc.Cancel(h); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		}))

		r.Post("/generate", withHandle(func(w http.ResponseWriter, r *http.Request, h registry.Handle) {
			handleGenerate(svc, w, r, h)
		}))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func handleGenerate(svc Service, w http.ResponseWriter, r *http.Request, h registry.Handle) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	if req.Stream {
		w.Header().Set("Content-Type", "application/x-ndjson")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	start := time.Now()
	cw := &countingWriter{w: w}
	writer := io.Writer(cw)
	lvl := requestLogLevel(r)
	if lvl >= LevelDebug && req.Stream {
		writer = io.MultiWriter(cw, &loggingLineWriter{session: h.String()})
	}
	if lvl >= LevelInfo {
		if zlog != nil {
			z := zlog.Info().Str("path", r.URL.Path).Str("session", h.String()).Bool("stream", req.Stream)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("generate start")
		} else {
			log.Printf("generate start path=%s session=%s", r.URL.Path, h)
		}
	}

	ctx, cancel := generateContext(r)
	defer cancel()
	err := svc.Generate(ctx, h, req, writer, flush)
	status := http.StatusOK
	if err != nil {
		switch {
		case r.Context().Err() != nil || serverBaseCtx.Err() != nil:
			// client disconnect or shutdown; nothing left to tell
		case cw.n > 0:
			// the error is already in the stream
		default:
			status = writeError(w, err)
		}
	}
	logEnd(r, "generate", start, status, err)
}

// countingWriter records whether any response bytes went out so an error
// after the first token is not followed by a second status line.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// withHandle parses the {handle} URL param.
func withHandle(fn func(http.ResponseWriter, *http.Request, registry.Handle)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := registry.ParseHandle(chi.URLParam(r, "handle"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		fn(w, r, h)
	}
}

// decodeJSON enforces the JSON content type and body limit and decodes into
// v. With allowEmpty an empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if allowEmpty && r.ContentLength == 0 {
		return true
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logEnd logs the outcome of a mutating request at the request's log level.
func logEnd(r *http.Request, op string, start time.Time, status int, err error) {
	lvl := requestLogLevel(r)
	if lvl == LevelOff || (lvl == LevelError && err == nil) {
		return
	}
	session := chi.URLParam(r, "handle")
	if zlog == nil {
		log.Printf("%s end session=%s status=%d dur=%s err=%v", op, session, status, time.Since(start), err)
		return
	}
	z := zlog.Info()
	if err != nil {
		z = zlog.Error().Err(err)
	}
	z = z.Str("op", op).Int("status", status).Dur("dur", time.Since(start))
	if session != "" {
		z = z.Str("session", session)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg(op + " end")
}
