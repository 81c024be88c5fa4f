package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sessiond/internal/engine/mock"
	"sessiond/internal/httpapi"
	"sessiond/internal/manager"
	"sessiond/internal/registry"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// createTempModelsDir creates a temporary directory populated with small .gguf files
// and returns the directory path and the list of model IDs (filenames).
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// newServerForDir serves a manager over a mock engine configured by opts.
func newServerForDir(t *testing.T, modelsDir string, opts mock.Options, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager, *mock.Engine) {
	t.Helper()
	reg, err := registry.LoadDir(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	opts.RequireFile = true
	eng := mock.New(opts)
	if cfg.Defaults == nil {
		d := session.DefaultGenerationConfig()
		// leaves 240 prompt tokens; cancel tests stop long before the limit
		d.ContextSize = 512
		d.MaxTokens = 256
		d.Seed = 5
		cfg.Defaults = &d
	}
	cfg.Engine = eng
	cfg.Registry = reg
	cfg.ModelsDir = modelsDir
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		mgr.Close()
	})
	return srv, mgr, eng
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPostJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	resp, err := http.Post(url, "application/json", rd)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func createSession(t *testing.T, base, model string) uint64 {
	t.Helper()
	resp, b := httpPostJSON(t, base+"/sessions", types.CreateSessionRequest{Model: model})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status=%d body=%s", resp.StatusCode, b)
	}
	var cr types.CreateSessionResponse
	if err := json.Unmarshal(b, &cr); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	return cr.Handle
}

func sessionURL(base string, h uint64, suffix string) string {
	return fmt.Sprintf("%s/sessions/%d%s", base, h, suffix)
}

func sessionStatus(t *testing.T, base string, h uint64) types.SessionStatus {
	t.Helper()
	resp, b := httpGet(t, sessionURL(base, h, ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d body=%s", resp.StatusCode, b)
	}
	var st types.SessionStatus
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}
