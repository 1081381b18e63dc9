package models

import (
	"context"
	"errors"
	"fmt"
)

// Stage identifies the pipeline step a fatal error came from
type Stage string

const (
	StageSetup   Stage = "setup"
	StageMeasure Stage = "measure"
	StagePersist Stage = "persist"
)

// RunError is a fatal error that aborted a run
type RunError struct {
	Stage Stage
	Cause error
}

func (e *RunError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed", e.Stage)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *RunError) Unwrap() error { return e.Cause }

// NewRunError wraps cause with stage. A nil cause yields nil.
func NewRunError(stage Stage, cause error) error {
	if cause == nil {
		return nil
	}
	return &RunError{Stage: stage, Cause: cause}
}

// StageOf reports the stage of err, if it is or wraps a RunError
func StageOf(err error) (Stage, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re.Stage, true
	}
	return "", false
}

func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
