package testflinger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	// Binary is the testflinger client executable, defaults to testflinger-cli.
	Binary string
	// Timeout is the upper bound for a single invocation, defaults to one hour.
	Timeout time.Duration
	Logger  *slog.Logger
}

// CLI wraps the external testflinger-cli tool. All interaction with the
// queueing service goes through its subcommands; responses are consumed as
// opaque text and interpreted against the marker table.
type CLI struct {
	binary  string
	timeout time.Duration
	log     *slog.Logger
}

func NewCLI(config Config) *CLI {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CLI{
		binary:  lo.Must(lo.Coalesce(config.Binary, "testflinger-cli")),
		timeout: lo.Ternary(config.Timeout > 0, config.Timeout, time.Hour),
		log:     logger.With("component", "testflinger"),
	}
}

func (c *CLI) invoke(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug("Executing command", "binary", c.binary, "args", args)
	output, err := exec.CommandContext(ctx, c.binary, args...).CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
		}
		return "", &CommandError{Args: args, Output: string(output), Err: err}
	}
	return string(output), nil
}

// Submit submits a job description file and returns the assigned job ID.
func (c *CLI) Submit(ctx context.Context, file string) (string, error) {
	output, err := c.invoke(ctx, "submit", file)
	if err != nil {
		return "", err
	}
	id, ok := ExtractJobID(output)
	if !ok {
		return "", fmt.Errorf("no job_id in submit response: %q", strings.TrimSpace(output))
	}
	return id, nil
}

// JobRunning reports whether the job is still in a cancellable state. A failed
// status query counts as not running: an unreachable job must never be waited
// on.
func (c *CLI) JobRunning(ctx context.Context, jobID string) bool {
	output, err := c.invoke(ctx, "status", jobID)
	if err != nil {
		c.log.Debug("Status query failed, assuming job is not running", "job", jobID, "error", err)
		return false
	}
	return !statusTerminal(output)
}

// JobReserved reports whether the job reached its reserved state.
func (c *CLI) JobReserved(ctx context.Context, jobID string) (bool, error) {
	output, err := c.invoke(ctx, "status", jobID)
	if err != nil {
		return false, err
	}
	return statusReserved(output), nil
}

// Cancel requests cancellation of a job. A failure caused by the job already
// being completed or cancelled is reported as ErrAlreadyTerminal so callers
// can tell a benign race from a real error.
func (c *CLI) Cancel(ctx context.Context, jobID string) error {
	_, err := c.invoke(ctx, "cancel", jobID)

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Output, markerAlreadyTerminal) {
		return fmt.Errorf("cancel %s: %w", jobID, ErrAlreadyTerminal)
	}
	return err
}

// Poll starts a streaming poll of the job's live output. The returned reader
// yields the combined stdout/stderr of the poll process and reaches EOF when
// it exits. Cancelling ctx or calling Close kills the process immediately.
func (c *CLI) Poll(ctx context.Context, jobID string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, c.binary, "poll", jobID)

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, &CommandError{Args: []string{"poll", jobID}, Err: err}
	}

	// The child holds its own copy of the write end; once it exits, the read
	// end sees EOF.
	_ = w.Close()

	c.log.Debug("Started poll", "job", jobID, "pid", cmd.Process.Pid)
	return &pollStream{r: r, cmd: cmd}, nil
}

type pollStream struct {
	r   *os.File
	cmd *exec.Cmd
}

func (s *pollStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *pollStream) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return s.r.Close()
}
