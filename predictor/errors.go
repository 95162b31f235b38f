package predictor

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingArtifact is fatal for the session: no model, no inference.
	ErrMissingArtifact = errors.New("missing model artifact")
	// ErrInferenceFailure marks a failed prediction; the session stays usable.
	ErrInferenceFailure = errors.New("inference failure")
)

// InferenceError wraps whatever went wrong while the model ran.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("prediction error: %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() []error {
	return []error{ErrInferenceFailure, e.Err}
}
