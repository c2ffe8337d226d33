package generation

import (
	"errors"
	"fmt"
)

// ErrGeneration matches every *GenerationError via errors.Is.
var ErrGeneration = errors.New("generation failed")

// Kind classifies a generation failure.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"    // rejected before any model call
	KindModel           Kind = "model"            // network fault, quota, safety or policy rejection
	KindMalformedOutput Kind = "malformed_output" // unparseable or empty structured output
	KindCanceled        Kind = "canceled"         // caller's context ended
)

// GenerationError is the single failure shape returned by the wrapper.
type GenerationError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

func newError(op string, kind Kind, err error) *GenerationError {
	return &GenerationError{Op: op, Kind: kind, Err: err}
}

// KindOf returns the failure kind of err, or "" if err is not a generation failure.
func KindOf(err error) Kind {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}
