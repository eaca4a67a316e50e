package deploy

import (
	"fmt"
	"os"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/marosg42/virtual-cluster/namegen"
)

// WriteCancelScript writes an executable script cancelling every submitted
// job, as a manual disaster recovery path if this process dies mid-run.
func WriteCancelScript(path string, run namegen.ID, jobIDs []string) error {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n\n")
	fmt.Fprintf(&b, "# Cancels all testflinger jobs of run %s\n\n", run)
	for _, jobID := range jobIDs {
		fmt.Fprintf(&b, "testflinger-cli cancel %s\n", shellescape.Quote(jobID))
	}

	return os.WriteFile(path, []byte(b.String()), 0o755)
}
