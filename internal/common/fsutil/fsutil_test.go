package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	// Set a deterministic HOME for the duration of this test so we never skip.
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	// ~/subdir
	sub := "test-sub"
	exp, err := ExpandHome("~/" + sub)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS == "windows" {
		if filepath.Base(exp) != sub {
			t.Fatalf("unexpected expanded path: %q", exp)
		}
	} else {
		expected := filepath.Join(home, sub)
		if exp != expected {
			t.Fatalf("expected %q, got %q", expected, exp)
		}
	}
}

func TestAbsPath(t *testing.T) {
	got, err := AbsPath("models")
	if err != nil {
		t.Fatalf("AbsPath: %v", err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "models" {
		t.Fatalf("unexpected abs path %q", got)
	}
}

func TestIsModelFile(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "tiny.Q4_K_M.GGUF")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{model, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.gguf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cases := map[string]bool{
		model:                           true,
		other:                           false,
		filepath.Join(dir, "dir.gguf"):  false,
		filepath.Join(dir, "gone.gguf"): false,
	}
	for p, want := range cases {
		if got := IsModelFile(p); got != want {
			t.Fatalf("IsModelFile(%q) = %v, want %v", p, got, want)
		}
	}
	if !PathExists(model) || PathExists(filepath.Join(dir, "gone.gguf")) {
		t.Fatalf("PathExists mismatch")
	}
}
