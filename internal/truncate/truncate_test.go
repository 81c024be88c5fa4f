package truncate

import (
	"math/rand/v2"
	"testing"

	"sessiond/internal/tokens"
)

func seqRange(n int, base tokens.Token) tokens.Sequence {
	s := make(tokens.Sequence, n)
	for i := range s {
		s[i] = base + tokens.Token(i)
	}
	return s
}

func TestTruncate_IdentityWithinBudget(t *testing.T) {
	for n := 0; n <= 200; n += 7 {
		s := seqRange(n, 100)
		out := Truncate(s, 200)
		if len(out) != len(s) {
			t.Fatalf("n=%d: len=%d, want %d", n, len(out), len(s))
		}
		for i := range s {
			if out[i] != s[i] {
				t.Fatalf("n=%d: identity violated at %d", n, i)
			}
		}
	}
}

func TestApply_NotTruncatedFlag(t *testing.T) {
	r := Policy{}.Apply(seqRange(10, 100), 10)
	if r.Truncated {
		t.Fatalf("expected Truncated=false for in-budget input")
	}
}

func TestTruncate_PreservesHeadAndSuffix(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 500; iter++ {
		maxTokens := 64 + rng.IntN(900)
		n := maxTokens + 1 + rng.IntN(2000)
		s := make(tokens.Sequence, n)
		for i := range s {
			// Mostly ordinary tokens; a sprinkling of boundary-like ids.
			if rng.IntN(40) == 0 {
				s[i] = tokens.Token(rng.IntN(DefaultBoundaryThreshold))
			} else {
				s[i] = tokens.Token(100 + rng.IntN(30000))
			}
		}
		r := Policy{}.Apply(s, maxTokens)
		out := r.Tokens
		if len(out) > maxTokens {
			t.Fatalf("iter %d: len=%d exceeds max %d", iter, len(out), maxTokens)
		}
		keepStart := max(DefaultMinKeepStart, maxTokens*DefaultKeepStartPercent/100)
		if r.KeptStart != keepStart {
			t.Fatalf("iter %d: KeptStart=%d, want %d", iter, r.KeptStart, keepStart)
		}
		if !out.HasPrefix(s[:keepStart]) {
			t.Fatalf("iter %d: head not preserved", iter)
		}
		if !s.HasSuffix(out[keepStart:]) {
			t.Fatalf("iter %d: tail is not a suffix of the input", iter)
		}
		if out[len(out)-1] != s[len(s)-1] {
			t.Fatalf("iter %d: final token lost", iter)
		}
	}
}

func TestApply_CutsAtBoundary(t *testing.T) {
	// 1000 ordinary tokens with a separator just after the raw cut.
	s := seqRange(1000, 1000)
	maxTokens := 200
	keepStart := max(DefaultMinKeepStart, maxTokens*DefaultKeepStartPercent/100)
	rawCut := len(s) - (maxTokens - keepStart)
	s[rawCut+5] = 13

	r := Policy{}.Apply(s, maxTokens)
	if !r.Boundary || r.CutPoint != rawCut+5 {
		t.Fatalf("expected boundary cut at %d, got cut=%d boundary=%v", rawCut+5, r.CutPoint, r.Boundary)
	}
	if r.Tokens[keepStart] != 13 {
		t.Fatalf("expected tail to begin at the separator, got %d", r.Tokens[keepStart])
	}
	if len(r.Tokens) != maxTokens-5 {
		t.Fatalf("len=%d, want %d", len(r.Tokens), maxTokens-5)
	}
}

func TestApply_NoBoundaryUsesRawCut(t *testing.T) {
	s := seqRange(1000, 1000)
	r := Policy{}.Apply(s, 300)
	if r.Boundary {
		t.Fatalf("unexpected boundary cut")
	}
	if len(r.Tokens) != 300 {
		t.Fatalf("len=%d, want 300", len(r.Tokens))
	}
	if r.KeptEnd() != 300-r.KeptStart {
		t.Fatalf("KeptEnd=%d", r.KeptEnd())
	}
}

func TestApply_TinyBudget(t *testing.T) {
	s := seqRange(100, 1000)
	r := Policy{}.Apply(s, 10)
	if len(r.Tokens) != 10 || !r.Tokens.HasPrefix(s[:10]) {
		t.Fatalf("expected head-only result of 10 tokens, got %v", r.Tokens)
	}
	if out := Truncate(s, 0); len(out) != 0 {
		t.Fatalf("expected empty result for zero budget, got %d tokens", len(out))
	}
}
