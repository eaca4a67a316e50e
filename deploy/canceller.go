package deploy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marosg42/virtual-cluster/testflinger"
)

// Canceller owns the set of jobs known to be terminal and serializes every
// cancel attempt through a single goroutine. A monitor's self-triggered
// cancellation and the orchestrator's mass sweep can both race a job's natural
// completion; funnelling them through one owner guarantees the service never
// sees a duplicate cancel from us.
type Canceller struct {
	client   Client
	log      *slog.Logger
	requests chan cancelRequest
	stop     chan struct{}
	done     chan struct{}
}

type cancelRequest struct {
	ctx   context.Context
	jobID string
	reply chan bool
}

func NewCanceller(client Client, logger *slog.Logger) *Canceller {
	c := &Canceller{
		client:   client,
		log:      logger.With("component", "canceller"),
		requests: make(chan cancelRequest),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

// run owns the cancelled set; all mutations happen on this goroutine.
func (c *Canceller) run() {
	defer close(c.done)
	cancelled := make(map[string]bool)

	for {
		select {
		case req := <-c.requests:
			req.reply <- c.cancel(req.ctx, req.jobID, cancelled)
		case <-c.stop:
			return
		}
	}
}

// SafeCancel cancels a job unless it is already known or observed to be
// terminal. It returns true only when this call actually cancelled the job on
// the service side; any repeated call for the same job returns false.
func (c *Canceller) SafeCancel(ctx context.Context, jobID string) bool {
	reply := make(chan bool, 1)
	select {
	case c.requests <- cancelRequest{ctx: ctx, jobID: jobID, reply: reply}:
		return <-reply
	case <-c.stop:
		return false
	}
}

// Close stops the owning goroutine. SafeCancel calls issued after Close
// return false.
func (c *Canceller) Close() {
	close(c.stop)
	<-c.done
}

func (c *Canceller) cancel(ctx context.Context, jobID string, cancelled map[string]bool) bool {
	if cancelled[jobID] {
		c.log.Debug("Job already cancelled, skipping", "job", jobID)
		return false
	}

	// Recheck liveness before attempting: a job that finished on its own must
	// keep its natural outcome.
	if !c.client.JobRunning(ctx, jobID) {
		c.log.Debug("Job no longer running, marking as cancelled", "job", jobID)
		cancelled[jobID] = true
		return false
	}

	switch err := c.client.Cancel(ctx, jobID); {
	case err == nil:
		c.log.Info("Cancelled job", "job", jobID)
		cancelled[jobID] = true
		return true
	case errors.Is(err, testflinger.ErrAlreadyTerminal):
		c.log.Debug("Job was already cancelled", "job", jobID)
		cancelled[jobID] = true
		return false
	default:
		// Left unmarked: the job may still be cancellable on a later attempt.
		c.log.Warn("Failed to cancel job", "job", jobID, "error", err)
		return false
	}
}
