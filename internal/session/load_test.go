package session

import (
	"context"
	"errors"
	"testing"

	"sessiond/internal/engine/mock"
)

func TestLoadModel_TwiceLeavesOneLiveSet(t *testing.T) {
	s, eng, _ := newTestSession(t, mock.Options{})
	mustLoad(t, s, testConfig())
	mustLoad(t, s, testConfig())
	if eng.LiveModels() != 1 || eng.LiveContexts() != 1 {
		t.Fatalf("expected one live model/context, got models=%d contexts=%d", eng.LiveModels(), eng.LiveContexts())
	}
	c := eng.Counters()
	if c.SamplersCreated-c.SamplersFreed != 1 {
		t.Fatalf("expected one live sampler, counters=%+v", c)
	}
	s.Unload()
	c = eng.Counters()
	if eng.LiveModels() != 0 || eng.LiveContexts() != 0 || c.SamplersCreated != c.SamplersFreed {
		t.Fatalf("expected nothing live after unload, counters=%+v", c)
	}
	if s.IsModelLoaded() {
		t.Fatalf("expected unloaded session")
	}
}

func TestLoadModel_ContextFailureFreesModel(t *testing.T) {
	s, eng, pub := newTestSession(t, mock.Options{FailCreateContext: errors.New("no memory")})
	err := s.LoadModel("/models/x.gguf", testConfig())
	if !IsModelLoad(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Path != "/models/x.gguf" {
		t.Fatalf("expected path on error, got %#v", err)
	}
	if eng.LiveModels() != 0 {
		t.Fatalf("model leaked after context failure")
	}
	if s.IsModelLoaded() {
		t.Fatalf("session must stay empty")
	}
	if s.LastError() == "" {
		t.Fatalf("expected last error to be recorded")
	}
	names := pub.Names()
	if len(names) != 2 || names[0] != EventLoadStart || names[1] != EventLoadFailed {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestLoadModel_ModelFailure(t *testing.T) {
	s, eng, _ := newTestSession(t, mock.Options{FailCreateModel: errors.New("bad gguf")})
	if err := s.LoadModel("/models/x.gguf", testConfig()); !IsModelLoad(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	if c := eng.Counters(); c.ContextsCreated != 0 {
		t.Fatalf("context must not be created after model failure")
	}
}

func TestLoadModel_FailureAfterSuccessLeavesEmpty(t *testing.T) {
	s, eng, _ := newTestSession(t, mock.Options{RequireFile: true})
	if err := s.LoadModel("/does/not/exist.gguf", testConfig()); !IsModelLoad(err) {
		t.Fatalf("expected load error, got %v", err)
	}
	if s.IsModelLoaded() || eng.LiveModels() != 0 {
		t.Fatalf("expected empty session")
	}
}

func TestLoadModel_SamplerFailureFreesEverything(t *testing.T) {
	s, eng, _ := newTestSession(t, mock.Options{FailAddStage: errors.New("stage")})
	if err := s.LoadModel("/models/x.gguf", testConfig()); !IsModelLoad(err) {
		t.Fatalf("expected load error, got %v", err)
	}
	if eng.LiveModels() != 0 || eng.LiveContexts() != 0 {
		t.Fatalf("handles leaked: %+v", eng.Counters())
	}
}

func TestLoadModel_SuccessClearsLastError(t *testing.T) {
	s, _, _ := newTestSession(t, mock.Options{})
	if _, err := s.Generate(context.Background(), "hi", nil); err == nil {
		t.Fatalf("expected error on unloaded session")
	}
	mustLoad(t, s, testConfig())
	if s.LastError() != "" {
		t.Fatalf("last error not cleared: %q", s.LastError())
	}
	st := s.Status()
	if !st.Loaded || st.ModelPath != "/models/test.gguf" || st.Engine != "mock" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestUnloadModel_Idempotent(t *testing.T) {
	s, eng, pub := newTestSession(t, mock.Options{})
	s.UnloadModel()
	mustLoad(t, s, testConfig())
	s.UnloadModel()
	s.UnloadModel()
	c := eng.Counters()
	if c.ModelsFreed != 1 || c.ContextsFreed != 1 {
		t.Fatalf("expected single free, counters=%+v", c)
	}
	unloads := 0
	for _, n := range pub.Names() {
		if n == EventUnload {
			unloads++
		}
	}
	if unloads != 1 {
		t.Fatalf("expected one unload event, got %d", unloads)
	}
}

func TestClose_RejectsFurtherLoads(t *testing.T) {
	s, eng, pub := newTestSession(t, mock.Options{})
	mustLoad(t, s, testConfig())
	s.Close()
	s.Close()
	if eng.LiveModels() != 0 {
		t.Fatalf("close must free the model")
	}
	if err := s.LoadModel("/models/test.gguf", testConfig()); !IsInvalidState(err) {
		t.Fatalf("expected invalid state after close, got %v", err)
	}
	names := pub.Names()
	if names[len(names)-1] != EventClose {
		t.Fatalf("expected close event last, got %v", names)
	}
}
