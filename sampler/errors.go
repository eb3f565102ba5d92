package sampler

import (
	"errors"
	"fmt"
)

var errUnreachable = errors.New("latency target unreachable")

// stageError tells which measurement of a cycle failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}
