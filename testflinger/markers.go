package testflinger

import (
	"regexp"
	"strings"
)

// Every phrase matched against testflinger-cli's human-readable output lives
// in this table. The CLI offers no machine-readable protocol, so this is a
// deliberately weak contract with its current wording: if the tool ever
// changes its phrasing, this file is the only place to adapt.
const (
	markerStatusCompleted = "completed"
	markerStatusCancelled = "cancelled"
	markerStatusReserved  = "reserve"

	markerAlreadyTerminal = "Invalid job ID specified or the job is already completed/cancelled"

	markerProvisionPhase = "Starting testflinger provision phase on"
	markerConnect        = "You can now connect to ubuntu@"
)

var jobIDPattern = regexp.MustCompile(`job_id:\s*(\S+)`)

// ExtractJobID pulls the job identifier out of a submit response.
func ExtractJobID(output string) (string, bool) {
	match := jobIDPattern.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseProvisionAgent extracts the agent name from a provision-phase line.
// The agent is the second-to-last word of the line. The boolean reports
// whether the line is a provision-phase line at all; a matched line that
// cannot be parsed yields an empty name.
func ParseProvisionAgent(line string) (string, bool) {
	if !strings.Contains(line, markerProvisionPhase) {
		return "", false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", true
	}
	return fields[len(fields)-2], true
}

// ParseConnectAddress extracts the endpoint address from a connect line. The
// boolean reports whether the line is a connect line at all; a matched line
// that cannot be parsed yields an empty address.
func ParseConnectAddress(line string) (string, bool) {
	if !strings.Contains(line, markerConnect) {
		return "", false
	}
	return strings.TrimSpace(line[strings.LastIndex(line, "@")+1:]), true
}

func statusTerminal(output string) bool {
	return strings.Contains(output, markerStatusCompleted) || strings.Contains(output, markerStatusCancelled)
}

func statusReserved(output string) bool {
	return strings.Contains(output, markerStatusReserved)
}
