package deploy

import (
	"context"
	"io"

	"github.com/marosg42/virtual-cluster/testflinger"
)

// Client is the deployer's view of the queueing service.
type Client interface {
	// Submit submits a job description file and returns the assigned job ID.
	Submit(ctx context.Context, file string) (string, error)
	// JobRunning reports whether the job is still in a cancellable state.
	// Implementations must report false when the answer cannot be obtained.
	JobRunning(ctx context.Context, jobID string) bool
	// JobReserved reports whether the job reached its reserved state.
	JobReserved(ctx context.Context, jobID string) (bool, error)
	// Cancel cancels a job; racing an already-terminal job yields an error
	// matching testflinger.ErrAlreadyTerminal.
	Cancel(ctx context.Context, jobID string) error
	// Poll streams the job's live output. Implementations must unblock the
	// reader and deliver EOF when ctx is cancelled or Close is called.
	Poll(ctx context.Context, jobID string) (io.ReadCloser, error)
}

// Client is implemented by the testflinger CLI wrapper
var _ Client = (*testflinger.CLI)(nil)
