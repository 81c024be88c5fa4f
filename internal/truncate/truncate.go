// Package truncate reduces an over-budget prompt to fit the context window.
//
// The policy keeps a head segment verbatim (system/instruction content) and a
// tail segment of recent context, dropping the middle. The tail start is
// nudged onto a likely turn boundary so recent context does not begin
// mid-sentence.
package truncate

import "sessiond/internal/tokens"

// Defaults used by Truncate.
const (
	DefaultMinKeepStart      = 32
	DefaultKeepStartPercent  = 15
	DefaultSearchWindow      = 128
	DefaultBoundaryThreshold = 50
)

// Policy holds the tunables of the head/tail truncation. Zero fields take the
// package defaults.
type Policy struct {
	// MinKeepStart is the smallest head kept regardless of budget.
	MinKeepStart int
	// KeepStartPercent is the share of the budget given to the head.
	KeepStartPercent int
	// SearchWindow is how many tokens past the raw cut are scanned for a
	// boundary.
	SearchWindow int
	// BoundaryThreshold marks token ids below it as separator-like
	// (newlines, role markers in most vocabularies).
	BoundaryThreshold tokens.Token
}

// Result describes one truncation.
type Result struct {
	Tokens tokens.Sequence
	// KeptStart is the number of head tokens preserved.
	KeptStart int
	// CutPoint is the index in the input where the kept tail begins.
	CutPoint int
	// Boundary reports whether CutPoint was moved onto a boundary token.
	Boundary bool
	// Truncated is false when the input already fit and was returned as is.
	Truncated bool
}

// KeptEnd returns the number of tail tokens in the result.
func (r Result) KeptEnd() int { return len(r.Tokens) - r.KeptStart }

func (p Policy) withDefaults() Policy {
	if p.MinKeepStart <= 0 {
		p.MinKeepStart = DefaultMinKeepStart
	}
	if p.KeepStartPercent <= 0 {
		p.KeepStartPercent = DefaultKeepStartPercent
	}
	if p.SearchWindow <= 0 {
		p.SearchWindow = DefaultSearchWindow
	}
	if p.BoundaryThreshold <= 0 {
		p.BoundaryThreshold = DefaultBoundaryThreshold
	}
	return p
}

// Truncate applies the default policy and returns the reduced sequence.
func Truncate(seq tokens.Sequence, maxTokens int) tokens.Sequence {
	return Policy{}.Apply(seq, maxTokens).Tokens
}

// Apply reduces seq to at most maxTokens tokens. Sequences within budget are
// returned unchanged. Otherwise the result is the first keepStart tokens of
// seq followed by a suffix of seq; keepStart is max(MinKeepStart,
// KeepStartPercent% of maxTokens), clamped to maxTokens.
//
// The tail nominally starts keepEnd = maxTokens-keepStart tokens before the
// end. The next SearchWindow positions are scanned for the first token (or
// predecessor) below BoundaryThreshold and the tail starts there instead.
// Moving the cut only forward keeps both the budget and the suffix intact.
func (p Policy) Apply(seq tokens.Sequence, maxTokens int) Result {
	if len(seq) <= maxTokens {
		return Result{Tokens: seq, KeptStart: len(seq), CutPoint: len(seq)}
	}
	if maxTokens <= 0 {
		return Result{Tokens: tokens.Sequence{}, CutPoint: len(seq), Truncated: true}
	}
	p = p.withDefaults()

	keepStart := max(p.MinKeepStart, maxTokens*p.KeepStartPercent/100)
	keepStart = min(keepStart, maxTokens)
	keepEnd := maxTokens - keepStart

	rawCut := len(seq) - keepEnd
	cut := rawCut
	boundary := false
	searchEnd := min(rawCut+p.SearchWindow, len(seq))
	for i := rawCut; i < searchEnd; i++ {
		if seq[i] < p.BoundaryThreshold || (i > keepStart && seq[i-1] < p.BoundaryThreshold) {
			cut = i
			boundary = i != rawCut
			break
		}
	}

	out := make(tokens.Sequence, 0, keepStart+len(seq)-cut)
	out = append(out, seq[:keepStart]...)
	out = append(out, seq[cut:]...)
	return Result{
		Tokens:    out,
		KeptStart: keepStart,
		CutPoint:  cut,
		Boundary:  boundary,
		Truncated: true,
	}
}
