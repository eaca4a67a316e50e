package deploy

import (
	"log/slog"
	"time"
)

type Config struct {
	// OutputDir receives rendered job descriptions, per-job output captures
	// and the cancel script.
	OutputDir string
	// Template is the job description template file.
	Template string
	// DistroSeries is the distro series requested in each job description.
	DistroSeries string
	// AgentLimit caps how many agents get a job; the surplus over
	// CompletionThreshold is the overprovisioning margin.
	AgentLimit int
	// CompletionThreshold is how many reserved machines the run must produce.
	CompletionThreshold int
	// GracePeriod is how long to wait for in-flight cancellations to be
	// observed once the run's outcome is decided.
	GracePeriod time.Duration

	Logger *slog.Logger
}
