package engine

import "sessiond/internal/tokens"

// Batch is a run of tokens with explicit positions handed to Decode. Logits
// marks the entries whose output probabilities are needed for sampling.
// A Batch is scratch storage reused across Decode calls.
type Batch struct {
	Tokens    []tokens.Token
	Positions []int
	Logits    []bool
}

// NewBatch allocates a batch able to hold capacity entries without growing.
func NewBatch(capacity int) *Batch {
	if capacity < 1 {
		capacity = 1
	}
	return &Batch{
		Tokens:    make([]tokens.Token, 0, capacity),
		Positions: make([]int, 0, capacity),
		Logits:    make([]bool, 0, capacity),
	}
}

// Len returns the number of entries.
func (b *Batch) Len() int { return len(b.Tokens) }

// Clear empties the batch keeping its storage.
func (b *Batch) Clear() {
	b.Tokens = b.Tokens[:0]
	b.Positions = b.Positions[:0]
	b.Logits = b.Logits[:0]
}

// Add appends one entry.
func (b *Batch) Add(tok tokens.Token, pos int, logits bool) {
	b.Tokens = append(b.Tokens, tok)
	b.Positions = append(b.Positions, pos)
	b.Logits = append(b.Logits, logits)
}

// Release drops the batch storage. The batch is empty afterwards.
func (b *Batch) Release() {
	b.Tokens, b.Positions, b.Logits = nil, nil, nil
}
