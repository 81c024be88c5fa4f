//go:build llama

package llamacpp

// cgo link directives for the native engine.
// - rpath of $ORIGIN so the runtime loader finds libllama.so and libggml*.so
//   in the same directory as the built binary (./bin).
// - -L${SRCDIR}/../../../bin so the linker finds libllama.so at link time.

/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../../bin -lllama
#include <stdlib.h>
#include "llama.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"sessiond/internal/engine"
	"sessiond/internal/tokens"
)

var backendOnce sync.Once

// Available reports whether the native binding is compiled in.
func Available() bool { return true }

type llamaEngine struct{}

type model struct {
	ptr   *C.struct_llama_model
	vocab *C.struct_llama_vocab
}

type context struct {
	ptr   *C.struct_llama_context
	batch C.struct_llama_batch
	cap   int
}

type sampler struct {
	ptr *C.struct_llama_sampler
}

// New returns the native engine, initialising the llama backend once per
// process.
func New() (engine.Engine, error) {
	backendOnce.Do(func() { C.llama_backend_init() })
	return llamaEngine{}, nil
}

func (llamaEngine) Name() string { return Name }

func (llamaEngine) CreateModel(path string, params engine.ModelParams) (engine.Model, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	mp := C.llama_model_default_params()
	mp.n_gpu_layers = C.int32_t(params.GPULayers)
	mp.use_mmap = C.bool(params.UseMmap)
	mp.use_mlock = C.bool(params.UseMlock)

	ptr := C.llama_model_load_from_file(cpath, mp)
	if ptr == nil {
		return nil, fmt.Errorf("llama_model_load_from_file failed for %s", path)
	}
	return &model{ptr: ptr, vocab: C.llama_model_get_vocab(ptr)}, nil
}

func (llamaEngine) CreateContext(m engine.Model, params engine.ContextParams) (engine.Context, error) {
	mm, ok := m.(*model)
	if !ok || mm == nil || mm.ptr == nil {
		return nil, errors.New("invalid model handle")
	}
	cp := C.llama_context_default_params()
	cp.n_ctx = C.uint32_t(params.ContextSize)
	cp.n_batch = C.uint32_t(params.BatchSize)
	cp.n_threads = C.int32_t(params.Threads)
	cp.n_threads_batch = C.int32_t(params.ThreadsBatch)

	ptr := C.llama_init_from_model(mm.ptr, cp)
	if ptr == nil {
		return nil, errors.New("llama_init_from_model failed")
	}
	return &context{ptr: ptr}, nil
}

func (llamaEngine) FreeModel(m engine.Model) {
	mm, ok := m.(*model)
	if !ok || mm == nil || mm.ptr == nil {
		return
	}
	C.llama_model_free(mm.ptr)
	mm.ptr, mm.vocab = nil, nil
}

func (llamaEngine) FreeContext(ctx engine.Context) {
	c, ok := ctx.(*context)
	if !ok || c == nil || c.ptr == nil {
		return
	}
	if c.cap > 0 {
		C.llama_batch_free(c.batch)
		c.cap = 0
	}
	C.llama_free(c.ptr)
	c.ptr = nil
}

func (llamaEngine) Tokenize(m engine.Model, text string, addBOS bool) (tokens.Sequence, error) {
	mm, ok := m.(*model)
	if !ok || mm == nil || mm.vocab == nil {
		return nil, errors.New("invalid model handle")
	}
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	tlen := C.int32_t(len(text))

	// A negative result is the required capacity.
	n := C.llama_tokenize(mm.vocab, ctext, tlen, nil, 0, C.bool(addBOS), C.bool(true))
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]C.llama_token, int(n))
	got := C.llama_tokenize(mm.vocab, ctext, tlen, &buf[0], n, C.bool(addBOS), C.bool(true))
	if got < 0 {
		return nil, fmt.Errorf("llama_tokenize failed (%d)", int(got))
	}
	out := make(tokens.Sequence, int(got))
	for i := range out {
		out[i] = tokens.Token(buf[i])
	}
	return out, nil
}

func (llamaEngine) Detokenize(m engine.Model, seq tokens.Sequence) string {
	mm, ok := m.(*model)
	if !ok || mm == nil || mm.vocab == nil {
		return ""
	}
	buf := make([]byte, 256)
	var out []byte
	for _, t := range seq {
		n := C.llama_token_to_piece(mm.vocab, C.llama_token(t), (*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(false))
		if n < 0 {
			buf = make([]byte, int(-n))
			n = C.llama_token_to_piece(mm.vocab, C.llama_token(t), (*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(false))
		}
		if n > 0 {
			out = append(out, buf[:int(n)]...)
		}
	}
	return string(out)
}

func (llamaEngine) IsEndOfGeneration(m engine.Model, tok tokens.Token) bool {
	mm, ok := m.(*model)
	if !ok || mm == nil || mm.vocab == nil {
		return true
	}
	return bool(C.llama_vocab_is_eog(mm.vocab, C.llama_token(tok)))
}

func (llamaEngine) ContextSize(ctx engine.Context) int {
	c, ok := ctx.(*context)
	if !ok || c == nil || c.ptr == nil {
		return 0
	}
	return int(C.llama_n_ctx(c.ptr))
}

// Decode copies b into a native batch owned by the context. The native batch
// grows when b is larger than any batch seen so far.
func (llamaEngine) Decode(ctx engine.Context, b *engine.Batch) int {
	c, ok := ctx.(*context)
	if !ok || c == nil || c.ptr == nil || b == nil || b.Len() == 0 {
		return -1
	}
	n := b.Len()
	if n > c.cap {
		if c.cap > 0 {
			C.llama_batch_free(c.batch)
		}
		c.batch = C.llama_batch_init(C.int32_t(n), 0, 1)
		c.cap = n
	}
	toks := unsafe.Slice(c.batch.token, c.cap)
	pos := unsafe.Slice(c.batch.pos, c.cap)
	nseq := unsafe.Slice(c.batch.n_seq_id, c.cap)
	seqs := unsafe.Slice(c.batch.seq_id, c.cap)
	logits := unsafe.Slice(c.batch.logits, c.cap)
	for i := 0; i < n; i++ {
		toks[i] = C.llama_token(b.Tokens[i])
		pos[i] = C.llama_pos(b.Positions[i])
		nseq[i] = 1
		*seqs[i] = 0
		if b.Logits[i] {
			logits[i] = 1
		} else {
			logits[i] = 0
		}
	}
	c.batch.n_tokens = C.int32_t(n)
	return int(C.llama_decode(c.ptr, c.batch))
}

func (llamaEngine) ClearMemory(ctx engine.Context) {
	c, ok := ctx.(*context)
	if !ok || c == nil || c.ptr == nil {
		return
	}
	C.llama_memory_clear(C.llama_get_memory(c.ptr), C.bool(true))
}

func (llamaEngine) NewSamplerChain() (engine.Sampler, error) {
	ptr := C.llama_sampler_chain_init(C.llama_sampler_chain_default_params())
	if ptr == nil {
		return nil, errors.New("llama_sampler_chain_init failed")
	}
	return &sampler{ptr: ptr}, nil
}

func (llamaEngine) AddStage(s engine.Sampler, st engine.Stage) error {
	sm, ok := s.(*sampler)
	if !ok || sm == nil || sm.ptr == nil {
		return errors.New("invalid sampler handle")
	}
	var stage *C.struct_llama_sampler
	switch st.Kind {
	case engine.StagePenalties:
		stage = C.llama_sampler_init_penalties(C.int32_t(st.LastN), C.float(st.Repeat), C.float(st.Freq), C.float(st.Present))
	case engine.StageTopK:
		stage = C.llama_sampler_init_top_k(C.int32_t(st.K))
	case engine.StageTopP:
		stage = C.llama_sampler_init_top_p(C.float(st.P), C.size_t(st.MinKeep))
	case engine.StageTemperature:
		stage = C.llama_sampler_init_temp(C.float(st.Temperature))
	case engine.StageDist:
		stage = C.llama_sampler_init_dist(C.uint32_t(st.Seed))
	default:
		return fmt.Errorf("unsupported sampler stage %v", st.Kind)
	}
	if stage == nil {
		return fmt.Errorf("init %s stage failed", st.Kind)
	}
	C.llama_sampler_chain_add(sm.ptr, stage)
	return nil
}

func (llamaEngine) ResetSampler(s engine.Sampler) {
	if sm, ok := s.(*sampler); ok && sm != nil && sm.ptr != nil {
		C.llama_sampler_reset(sm.ptr)
	}
}

func (llamaEngine) FreeSampler(s engine.Sampler) {
	sm, ok := s.(*sampler)
	if !ok || sm == nil || sm.ptr == nil {
		return
	}
	C.llama_sampler_free(sm.ptr)
	sm.ptr = nil
}

// Sample draws from the logits of the last output entry (index -1).
func (llamaEngine) Sample(s engine.Sampler, ctx engine.Context) tokens.Token {
	sm, ok := s.(*sampler)
	c, ok2 := ctx.(*context)
	if !ok || !ok2 || sm == nil || c == nil || sm.ptr == nil || c.ptr == nil {
		return -1
	}
	return tokens.Token(C.llama_sampler_sample(sm.ptr, c.ptr, -1))
}
