package deploy

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/marosg42/virtual-cluster/jobfile"
	"github.com/marosg42/virtual-cluster/testflinger"
)

// Result is the terminal record of one monitored job. Name is empty when no
// provision-phase line was seen; IP is empty when the job never reached its
// ready state.
type Result struct {
	JobID string `yaml:"job_id"`
	Name  string `yaml:"name"`
	IP    string `yaml:"ip"`
}

// monitorJob supervises a single job from submission to a terminal state,
// capturing its live output and extracting the assigned agent and endpoint
// address. It always delivers exactly one Result, whatever the exit path.
func (d *Deployer) monitorJob(ctx context.Context, jobID string, results chan<- Result) {
	log := d.log.With("job", jobID)
	log.Debug("Capturing job output started")

	result := Result{JobID: jobID}
	defer func() {
		// Cancellation may have arrived after the output stream already ended
		// naturally; make sure it is reflected on the service side anyway.
		if ctx.Err() != nil {
			d.canceller.SafeCancel(context.WithoutCancel(ctx), jobID)
		}
		log.Debug("Capturing job output finished", "name", result.Name, "ip", result.IP)
		results <- result
	}()

	file, err := os.Create(jobfile.CaptureFile(d.config.OutputDir, jobID))
	if err != nil {
		log.Error("Failed to create output capture file", "error", err)
		return
	}
	defer file.Close()

	stream, err := d.client.Poll(ctx, jobID)
	if err != nil {
		log.Error("Failed to start job poll", "error", err)
		return
	}
	// Closing the stream kills the underlying poll process, also when we stop
	// reading before it exits.
	defer stream.Close()

	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fmt.Fprintln(file, line)

		if name, ok := testflinger.ParseProvisionAgent(line); ok {
			if name == "" {
				log.Warn("Could not parse agent name from output", "line", line)
			} else {
				log.Debug("Provision phase started", "agent", name)
				result.Name = name
			}
		}

		if address, ok := testflinger.ParseConnectAddress(line); ok {
			if address == "" {
				log.Warn("Could not parse address from output", "line", line)
				continue
			}
			result.IP = address
			log.Info("Job has an endpoint", "ip", address)
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Error("Error reading job output", "error", err)
	}
}
