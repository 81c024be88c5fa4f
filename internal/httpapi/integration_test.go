package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sessiond/internal/engine/mock"
	"sessiond/internal/manager"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// newIntegrationServer serves a real manager over the mock engine with one
// registered model, tiny.gguf.
func newIntegrationServer(t *testing.T, opts mock.Options, maxSessions int) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tiny.gguf"), []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	reg, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	opts.RequireFile = true
	defaults := session.DefaultGenerationConfig()
	defaults.ContextSize = 512
	defaults.MaxTokens = 16
	defaults.Seed = 7
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Engine:      mock.New(opts),
		Registry:    reg,
		ModelsDir:   dir,
		Defaults:    &defaults,
		MaxSessions: maxSessions,
	})
	srv := httptest.NewServer(NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		mgr.Close()
	})
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	var resp *http.Response
	var err error
	if body == "" {
		resp, err = http.Post(url, "application/json", nil)
	} else {
		resp, err = http.Post(url, "application/json", strings.NewReader(body))
	}
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func createSession(t *testing.T, base, body string) uint64 {
	t.Helper()
	resp := post(t, base+"/sessions", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d", resp.StatusCode)
	}
	var cr types.CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return cr.Handle
}

func TestIntegration_StreamedGeneration(t *testing.T) {
	srv := newIntegrationServer(t, mock.Options{Reply: "one two three"}, 0)
	h := createSession(t, srv.URL, `{"model":"tiny"}`)

	resp := post(t, fmt.Sprintf("%s/sessions/%d/generate", srv.URL, h), `{"prompt":"count","stream":true}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status=%d", resp.StatusCode)
	}
	var toks []string
	var done map[string]any
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var line map[string]any
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		if tok, ok := line["token"].(string); ok {
			toks = append(toks, tok)
			continue
		}
		done = line
	}
	if strings.Join(toks, "") != " one two three" {
		t.Fatalf("tokens=%q", toks)
	}
	if done == nil || done["done"] != true || done["finish_reason"] != "eog" {
		t.Fatalf("done line=%v", done)
	}

	st, err := http.Get(fmt.Sprintf("%s/sessions/%d", srv.URL, h))
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	defer st.Body.Close()
	var ss types.SessionStatus
	_ = json.NewDecoder(st.Body).Decode(&ss)
	if !ss.Loaded || ss.Generating || ss.Last == nil || ss.Last.Generated != 3 {
		t.Fatalf("session status %+v", ss)
	}
}

func TestIntegration_GenerateUnloadedIs409(t *testing.T) {
	srv := newIntegrationServer(t, mock.Options{}, 0)
	h := createSession(t, srv.URL, "")
	resp := post(t, fmt.Sprintf("%s/sessions/%d/generate", srv.URL, h), `{"prompt":"hi"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestIntegration_ContextTooSmallIs422(t *testing.T) {
	srv := newIntegrationServer(t, mock.Options{}, 0)
	h := createSession(t, srv.URL, `{"model":"tiny","config":{"context_size":80}}`)
	resp := post(t, fmt.Sprintf("%s/sessions/%d/generate", srv.URL, h), `{"prompt":"`+strings.Repeat("w ", 200)+`"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestIntegration_SessionLimitIs429(t *testing.T) {
	srv := newIntegrationServer(t, mock.Options{}, 1)
	createSession(t, srv.URL, "")
	resp := post(t, srv.URL+"/sessions", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestIntegration_LoadMissingModelIs404(t *testing.T) {
	srv := newIntegrationServer(t, mock.Options{}, 0)
	h := createSession(t, srv.URL, "")
	resp := post(t, fmt.Sprintf("%s/sessions/%d/model", srv.URL, h), `{"model":"nope"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestIntegration_LoadBadPathIs400(t *testing.T) {
	srv := newIntegrationServer(t, mock.Options{}, 0)
	h := createSession(t, srv.URL, "")
	resp := post(t, fmt.Sprintf("%s/sessions/%d/model", srv.URL, h), `{"path":"/does/not/exist.gguf"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestIntegration_StaleHandleAfterClose(t *testing.T) {
	srv := newIntegrationServer(t, mock.Options{}, 0)
	h := createSession(t, srv.URL, "")
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/sessions/%d", srv.URL, h), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close status=%d", resp.StatusCode)
	}
	createSession(t, srv.URL, "")
	get, err := http.Get(fmt.Sprintf("%s/sessions/%d", srv.URL, h))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusNotFound {
		t.Fatalf("stale handle status=%d", get.StatusCode)
	}
}
