package upload

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Sentinel errors for upload failures.
var (
	ErrUploadPhase   = errors.New("upload phase failed")
	ErrNoUsableURL   = errors.New("upload record has no usable URL")
	ErrNoDestination = errors.New("cannot determine upload destination")
	ErrInvalidFile   = errors.New("invalid upload file")
)

// Phase names a step of the upload protocol.
type Phase string

// Protocol phases in order.
const (
	PhasePreflight Phase = "preflight"
	PhaseBinary    Phase = "upload"
	PhaseFinalize  Phase = "finalize"
)

// PhaseError reports a failed protocol phase with the remote response.
// Body holds the decoded JSON response when the raw body is valid JSON.
type PhaseError struct {
	Phase  Phase
	Status int
	Body   any
	Raw    string
	Err    error
}

func newPhaseError(phase Phase, status int, raw string, err error) *PhaseError {
	pe := &PhaseError{Phase: phase, Status: status, Raw: raw, Err: err}
	if gjson.Valid(raw) {
		pe.Body = gjson.Parse(raw).Value()
	}
	return pe
}

func (e *PhaseError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Phase)
	if e.Status != 0 {
		msg += fmt.Sprintf(" with status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrUploadPhase.
func (e *PhaseError) Is(target error) bool {
	return target == ErrUploadPhase
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
