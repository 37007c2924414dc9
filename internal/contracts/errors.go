package contracts

import (
	"errors"
	"fmt"
)

// ErrorKind classifies cycle-fatal stage failures. Non-fatal conditions
// (partial collectors, per-symbol enrichment misses, per-order rejections)
// never surface as a StageError; they degrade their own stage output instead.
type ErrorKind string

const (
	// KindServiceUnavailable: the external reasoning/data service failed or
	// timed out. Retried only at the next scheduled cycle.
	KindServiceUnavailable ErrorKind = "ServiceUnavailable"
	// KindMalformedOutput: no balanced JSON object in the response, or a
	// required field is missing. Raw text is preserved for post-mortem.
	KindMalformedOutput ErrorKind = "MalformedOutput"
)

// StageError aborts the current cycle; the orchestrator persists the partial
// artifact before returning it.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Raw   string // raw model output, kept for MalformedOutput diagnosis
	Err   error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Kind)
}

func (e *StageError) Unwrap() error { return e.Err }

func NewServiceError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindServiceUnavailable, Err: err}
}

func NewMalformedError(stage, raw string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindMalformedOutput, Raw: raw, Err: err}
}

// AsStageError unwraps err into a StageError when possible.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
