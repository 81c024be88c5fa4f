package session

import (
	"errors"
	"fmt"
)

// Kind classifies session errors.
type Kind int

const (
	KindModelLoad Kind = iota + 1
	KindTokenization
	KindContextTooSmall
	KindDecode
	KindInternal
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindModelLoad:
		return "model_load"
	case KindTokenization:
		return "tokenization"
	case KindContextTooSmall:
		return "context_too_small"
	case KindDecode:
		return "decode"
	case KindInternal:
		return "internal"
	case KindInvalidState:
		return "invalid_state"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by session operations. Path is set for model load
// failures, Code carries the engine status for decode failures.
type Error struct {
	Kind Kind
	Msg  string
	Path string
	Code int
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	switch {
	case e.Path != "":
		msg += ": " + e.Path
	case e.Kind == KindDecode:
		msg = fmt.Sprintf("%s (status %d)", msg, e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func isKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// IsModelLoad reports whether err is a model or context creation failure.
func IsModelLoad(err error) bool { return isKind(err, KindModelLoad) }

// IsTokenization reports whether the prompt could not be tokenized.
func IsTokenization(err error) bool { return isKind(err, KindTokenization) }

// IsContextTooSmall reports whether the context window cannot hold a
// minimal prompt plus the requested generation.
func IsContextTooSmall(err error) bool { return isKind(err, KindContextTooSmall) }

// IsDecode reports whether the engine rejected a batch.
func IsDecode(err error) bool { return isKind(err, KindDecode) }

// IsInternal reports a broken session invariant.
func IsInternal(err error) bool { return isKind(err, KindInternal) }

// IsInvalidState reports a call made in the wrong lifecycle state.
func IsInvalidState(err error) bool { return isKind(err, KindInvalidState) }

func invalidState(msg string) error { return &Error{Kind: KindInvalidState, Msg: msg} }
