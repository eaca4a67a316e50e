package testflinger

import (
	"errors"
	"fmt"
	"strings"
)

// CommandError reports a testflinger-cli invocation that exited non-zero or
// timed out. Output carries the combined stdout/stderr of the failed command.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("testflinger %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ErrAlreadyTerminal reports a cancel attempt that raced a job which already
// reached a terminal state on the service side. This is a benign outcome, not
// a failure.
var ErrAlreadyTerminal = errors.New("job is already completed or cancelled")
