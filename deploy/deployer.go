package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/marosg42/virtual-cluster/internal"
	"github.com/marosg42/virtual-cluster/inventory"
	"github.com/marosg42/virtual-cluster/jobfile"
	"github.com/marosg42/virtual-cluster/namegen"
)

// Inventory is the deployer's view of the agent inventory.
type Inventory interface {
	Agents(ctx context.Context) ([]inventory.Agent, error)
}

// Deployer drives one overprovisioned batch: it submits more reservation jobs
// than needed, races them, cancels the surplus once enough machines are ready,
// and verifies the survivors.
type Deployer struct {
	config    Config
	client    Client
	canceller *Canceller
	inventory Inventory
	rng       *rand.Rand
	name      namegen.ID
	log       *slog.Logger
	monitors  sync.WaitGroup
}

func NewDeployer(config Config, client Client, inv Inventory) *Deployer {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := namegen.Get()

	return &Deployer{
		config:    config,
		client:    client,
		canceller: NewCanceller(client, logger.With("run", name.String())),
		inventory: inv,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		name:      name,
		log:       logger.With("component", "deploy", "run", name.String()),
	}
}

// Name is the generated run name, attached to logs and the cancel script.
func (d *Deployer) Name() namegen.ID {
	return d.name
}

// Run executes the full batch lifecycle and returns the verified results.
func (d *Deployer) Run(ctx context.Context, servers []string) ([]Result, error) {
	// A monitor that outlives the grace period still has a safe-cancel in
	// flight; it must land before the canceller shuts down.
	defer func() {
		d.monitors.Wait()
		d.canceller.Close()
	}()

	d.log.Info("Looking for agents", "servers", servers)
	agents, err := d.inventory.Agents(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent selection failed: %w", err)
	}

	ranked := inventory.Select(d.rng, agents, servers, d.log)
	if len(ranked) < d.config.AgentLimit {
		return nil, fmt.Errorf("not enough available agents: %d (need %d)", len(ranked), d.config.AgentLimit)
	}
	ranked = ranked[:d.config.AgentLimit]

	jobfile.Clean(d.config.OutputDir, d.log)
	files := jobfile.Generate(d.config.Template, d.config.OutputDir, ranked, d.config.DistroSeries, d.log)

	jobIDs := d.submit(ctx, files)
	if len(jobIDs) == 0 {
		return nil, errors.New("no jobs were submitted successfully")
	}

	script := filepath.Join(d.config.OutputDir, "cancel.sh")
	if err := WriteCancelScript(script, d.name, jobIDs); err != nil {
		d.log.Warn("Could not create cancel script", "error", err)
	} else {
		d.log.Info("Created cancel script", "path", script)
	}

	results, err := d.Monitor(ctx, jobIDs)
	if err != nil {
		return nil, err
	}

	return d.Verify(ctx, results), nil
}

func (d *Deployer) submit(ctx context.Context, files []string) []string {
	var jobIDs []string
	for _, file := range files {
		d.log.Debug("Submitting job", "file", file)
		jobID, err := d.client.Submit(ctx, file)
		if err != nil {
			d.log.Error("Failed to submit job", "file", file, "error", err)
			continue
		}
		d.log.Info("Submitted job", "job", jobID)
		jobIDs = append(jobIDs, jobID)
	}
	return jobIDs
}

// Monitor races one monitor per job and enforces the completion threshold.
// It returns every Result collected before teardown; the caller decides what
// to keep.
func (d *Deployer) Monitor(ctx context.Context, jobIDs []string) ([]Result, error) {
	d.log.Info("Monitoring jobs", "jobs", len(jobIDs), "threshold", d.config.CompletionThreshold)

	cancels := make(map[string]context.CancelFunc, len(jobIDs))
	allCancels := make([]context.CancelFunc, 0, len(jobIDs))
	// Buffered so a straggler delivering after the grace period never blocks.
	results := make(chan Result, len(jobIDs))

	for _, jobID := range jobIDs {
		jobID := jobID
		jobCtx, cancel := context.WithCancel(ctx)
		cancels[jobID] = cancel
		allCancels = append(allCancels, cancel)
		d.monitors.Add(1)
		go func() {
			defer d.monitors.Done()
			d.monitorJob(jobCtx, jobID, results)
		}()
	}
	defer func() {
		for _, cancel := range allCancels {
			cancel()
		}
	}()

	var collected []Result
	tally := 0
	thresholdReached := false

	// Single evaluation point: every completion is inspected here, in
	// completion order, so the tally and the threshold decision can never
	// race between monitors.
	for range jobIDs {
		result := <-results
		collected = append(collected, result)
		// This job finished on its own; it must not be swept.
		delete(cancels, result.JobID)

		if result.IP != "" {
			tally++
			d.log.Info("Job completed successfully", "job", result.JobID, "ip", result.IP, "tally", tally)
		} else {
			d.log.Warn("Job did not produce an endpoint", "job", result.JobID)
		}

		if tally >= d.config.CompletionThreshold {
			thresholdReached = true
			d.log.Info("Reached completion threshold, cancelling surplus jobs", "threshold", d.config.CompletionThreshold)
			for jobID, cancel := range cancels {
				d.log.Info("Sending cancellation signal", "job", jobID)
				cancel()
			}
			break
		}
	}

	if !thresholdReached {
		// Every monitor finished below the threshold. Make sure nothing is
		// left holding a machine before reporting failure.
		d.log.Error("Not enough completions, cancelling all jobs", "completed", tally, "threshold", d.config.CompletionThreshold)
		for _, jobID := range jobIDs {
			d.canceller.SafeCancel(ctx, jobID)
		}
		return collected, fmt.Errorf("not enough completions (%d/%d)", tally, d.config.CompletionThreshold)
	}

	// Give the cancelled monitors a short grace period to go through
	// safe-cancel and deliver their final records.
	deadline := time.After(d.config.GracePeriod)
drain:
	for len(collected) < len(jobIDs) {
		select {
		case result := <-results:
			collected = append(collected, result)
		case <-deadline:
			d.log.Debug("Grace period elapsed", "missing", len(jobIDs)-len(collected))
			break drain
		}
	}

	return collected, nil
}

// Verify checks every successful result against a fresh status query and
// drops jobs that regressed before being claimed, cancelling them so they do
// not keep a machine reserved.
func (d *Deployer) Verify(ctx context.Context, results []Result) []Result {
	var verified []Result
	for _, result := range results {
		if result.IP == "" {
			continue
		}

		reserved, err := internal.RetryResultWithContext(ctx, 2, func() (bool, error) {
			return d.client.JobReserved(ctx, result.JobID)
		})
		switch {
		case err != nil:
			d.log.Warn("Error verifying job, dropping", "job", result.JobID, "error", err)
		case !reserved:
			d.log.Warn("Job regressed before being claimed, dropping", "job", result.JobID, "agent", result.Name)
			d.canceller.SafeCancel(ctx, result.JobID)
		default:
			verified = append(verified, result)
		}
	}

	d.log.Info("Verification finished", "verified", len(verified), "dropped", len(results)-len(verified))
	return verified
}
