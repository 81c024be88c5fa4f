// Package mock is a deterministic in-process engine. It implements the full
// engine contract, including a pure-Go sampler chain, over a word-level
// vocabulary. Logits favour a scripted reply so generations are predictable;
// counters and failure hooks make it usable as a test double.
package mock

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"sessiond/internal/engine"
	"sessiond/internal/tokens"
)

// Special token ids. Ids below 50 are separator-like, words start at firstWordID.
const (
	BOS     tokens.Token = 1
	EOS     tokens.Token = 2
	Newline tokens.Token = 13

	firstWordID tokens.Token = 100
)

// DefaultReply is generated when Options.Reply is empty.
const DefaultReply = "Hello! This is a test response from the mock engine. The session is working but no native engine is compiled in."

// replyBias is added to the logit of the scripted next token.
const replyBias = 10

// defaultDecodeFailure is the status returned by an injected decode failure.
const defaultDecodeFailure = -1

// Options configures the mock engine.
type Options struct {
	// Reply is the text the model generates; EOS follows its last word
	// unless NoEOS is set.
	Reply string
	// NoEOS keeps generating noise tokens after the reply.
	NoEOS bool
	// RequireFile makes CreateModel fail when the model path does not exist.
	RequireFile bool

	FailCreateModel   error
	FailCreateContext error
	FailTokenize      error
	// EmptyTokenize makes Tokenize return no tokens.
	EmptyTokenize bool
	FailAddStage  error
	// FailDecodeAt fails the n-th Decode call (1-based). Zero never fails.
	FailDecodeAt int
	// DecodeStatus is returned by the injected failure. Zero means -1.
	DecodeStatus int
	// TokenDelay is slept in every single-token Decode to emulate compute.
	TokenDelay time.Duration
	// OnDecode runs after each successful Decode with the batch size.
	OnDecode func(n int)
}

// Counters instruments handle lifecycles and calls.
type Counters struct {
	ModelsCreated    int
	ModelsFreed      int
	ContextsCreated  int
	ContextsFreed    int
	SamplersCreated  int
	SamplersFreed    int
	ClearMemoryCalls int
	DecodeCalls      int
	DecodedTokens    int
	// DecodeBatches records the size of every Decode call in order.
	DecodeBatches []int
}

// Engine is the mock engine. It is safe for concurrent use by multiple
// sessions; a single context must not be used concurrently.
type Engine struct {
	opts Options

	mu       sync.Mutex
	counters Counters
	words    []string // index = id - firstWordID
	ids      map[string]tokens.Token
	reply    tokens.Sequence
}

var _ engine.Engine = (*Engine)(nil)

type model struct {
	path  string
	freed bool
}

type context struct {
	model     *model
	size      int
	batchSize int
	memory    tokens.Sequence
	// logitsReady is true when the last decoded entry requested output.
	logitsReady bool
	// promptDone is set by the first batch requesting logits; after it,
	// decoded tokens count as generated.
	promptDone bool
	generated  int
	freed      bool
}

// New returns a mock engine.
func New(opts Options) *Engine {
	e := &Engine{opts: opts, ids: make(map[string]tokens.Token)}
	reply := opts.Reply
	if reply == "" && !opts.NoEOS {
		reply = DefaultReply
	}
	for _, w := range strings.Fields(reply) {
		e.reply = append(e.reply, e.wordID(w))
	}
	return e
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "mock" }

// Counters returns a snapshot of the instrumentation counters.
func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.counters
	c.DecodeBatches = append([]int(nil), e.counters.DecodeBatches...)
	return c
}

// LiveModels returns the number of models created and not yet freed.
func (e *Engine) LiveModels() int {
	c := e.Counters()
	return c.ModelsCreated - c.ModelsFreed
}

// LiveContexts returns the number of contexts created and not yet freed.
func (e *Engine) LiveContexts() int {
	c := e.Counters()
	return c.ContextsCreated - c.ContextsFreed
}

// ContextMemory returns a copy of the tokens retained by ctx.
func ContextMemory(ctx engine.Context) tokens.Sequence {
	c, ok := ctx.(*context)
	if !ok || c == nil {
		return nil
	}
	return c.memory.Clone()
}

// wordID returns the id of w, assigning one on first sight. Caller must not
// hold e.mu.
func (e *Engine) wordID(w string) tokens.Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.ids[w]; ok {
		return id
	}
	id := firstWordID + tokens.Token(len(e.words))
	e.words = append(e.words, w)
	e.ids[w] = id
	return id
}

func (e *Engine) vocabSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(firstWordID) + len(e.words)
}

// CreateModel implements engine.Engine.
func (e *Engine) CreateModel(path string, params engine.ModelParams) (engine.Model, error) {
	if e.opts.FailCreateModel != nil {
		return nil, e.opts.FailCreateModel
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("mock: model path is empty")
	}
	if e.opts.RequireFile {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			return nil, fmt.Errorf("mock: model file not found: %s", path)
		}
	}
	e.mu.Lock()
	e.counters.ModelsCreated++
	e.mu.Unlock()
	return &model{path: path}, nil
}

// CreateContext implements engine.Engine.
func (e *Engine) CreateContext(m engine.Model, params engine.ContextParams) (engine.Context, error) {
	if e.opts.FailCreateContext != nil {
		return nil, e.opts.FailCreateContext
	}
	mm, ok := m.(*model)
	if !ok || mm == nil || mm.freed {
		return nil, errors.New("mock: invalid model handle")
	}
	if params.ContextSize <= 0 {
		return nil, fmt.Errorf("mock: invalid context size %d", params.ContextSize)
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = params.ContextSize
	}
	e.mu.Lock()
	e.counters.ContextsCreated++
	e.mu.Unlock()
	return &context{model: mm, size: params.ContextSize, batchSize: batch}, nil
}

// FreeModel implements engine.Engine.
func (e *Engine) FreeModel(m engine.Model) {
	mm, ok := m.(*model)
	if !ok || mm == nil || mm.freed {
		return
	}
	mm.freed = true
	e.mu.Lock()
	e.counters.ModelsFreed++
	e.mu.Unlock()
}

// FreeContext implements engine.Engine.
func (e *Engine) FreeContext(ctx engine.Context) {
	c, ok := ctx.(*context)
	if !ok || c == nil || c.freed {
		return
	}
	c.freed = true
	c.memory = nil
	e.mu.Lock()
	e.counters.ContextsFreed++
	e.mu.Unlock()
}

// Tokenize implements engine.Engine. Words are whitespace separated; line
// breaks become the Newline token.
func (e *Engine) Tokenize(m engine.Model, text string, addBOS bool) (tokens.Sequence, error) {
	if e.opts.FailTokenize != nil {
		return nil, e.opts.FailTokenize
	}
	if e.opts.EmptyTokenize {
		return nil, nil
	}
	var out tokens.Sequence
	if addBOS {
		out = append(out, BOS)
	}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out = append(out, Newline)
		}
		for _, w := range strings.Fields(line) {
			out = append(out, e.wordID(w))
		}
	}
	return out, nil
}

// Detokenize implements engine.Engine. Words render with a leading space.
func (e *Engine) Detokenize(m engine.Model, seq tokens.Sequence) string {
	var b strings.Builder
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range seq {
		switch {
		case t == Newline:
			b.WriteByte('\n')
		case t >= firstWordID && int(t-firstWordID) < len(e.words):
			b.WriteByte(' ')
			b.WriteString(e.words[t-firstWordID])
		}
	}
	return b.String()
}

// IsEndOfGeneration implements engine.Engine.
func (e *Engine) IsEndOfGeneration(m engine.Model, tok tokens.Token) bool {
	return tok == EOS
}

// ContextSize implements engine.Engine.
func (e *Engine) ContextSize(ctx engine.Context) int {
	c, ok := ctx.(*context)
	if !ok || c == nil {
		return 0
	}
	return c.size
}

// Decode implements engine.Engine. Status 1 means the context is full; -1
// covers invalid batches and injected failures.
func (e *Engine) Decode(ctx engine.Context, batch *engine.Batch) int {
	e.mu.Lock()
	e.counters.DecodeCalls++
	call := e.counters.DecodeCalls
	e.mu.Unlock()

	if e.opts.FailDecodeAt > 0 && call == e.opts.FailDecodeAt {
		if e.opts.DecodeStatus != 0 {
			return e.opts.DecodeStatus
		}
		return defaultDecodeFailure
	}
	c, ok := ctx.(*context)
	if !ok || c == nil || c.freed || batch == nil {
		return -1
	}
	n := batch.Len()
	if n == 0 || n > c.batchSize {
		return -1
	}
	for i := 0; i < n; i++ {
		if batch.Positions[i] != len(c.memory) {
			return -1
		}
		if len(c.memory) >= c.size {
			return 1
		}
		c.memory = append(c.memory, batch.Tokens[i])
	}
	if c.promptDone {
		c.generated += n
	}
	c.logitsReady = batch.Logits[n-1]
	if c.logitsReady {
		c.promptDone = true
	}

	e.mu.Lock()
	e.counters.DecodedTokens += n
	e.counters.DecodeBatches = append(e.counters.DecodeBatches, n)
	e.mu.Unlock()

	if n == 1 && e.opts.TokenDelay > 0 {
		time.Sleep(e.opts.TokenDelay)
	}
	if e.opts.OnDecode != nil {
		e.opts.OnDecode(n)
	}
	return 0
}

// ClearMemory implements engine.Engine.
func (e *Engine) ClearMemory(ctx engine.Context) {
	c, ok := ctx.(*context)
	if !ok || c == nil {
		return
	}
	c.memory = c.memory[:0]
	c.logitsReady = false
	c.promptDone = false
	c.generated = 0
	e.mu.Lock()
	e.counters.ClearMemoryCalls++
	e.mu.Unlock()
}
