package jobfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"gopkg.in/yaml.v3"
)

// filePrefix is shared by job description files and per-job output captures.
const filePrefix = "testflinger-"

// Data is the set of variables a job description template can reference.
type Data struct {
	JobName      string
	JobQueue     string
	DistroSeries string
}

// Render evaluates the job description template for a single agent. The
// rendered document must be well-formed YAML; anything else would be rejected
// by the queueing service anyway, so it is caught here.
func Render(templateFile string, data Data) (string, error) {
	buf, err := os.ReadFile(templateFile)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}

	tmpl, err := template.New(filepath.Base(templateFile)).Funcs(sprig.TxtFuncMap()).Parse(string(buf))
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var output strings.Builder
	if err := tmpl.Execute(&output, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(output.String()), &doc); err != nil {
		return "", fmt.Errorf("rendered job description is not valid YAML: %w", err)
	}

	return output.String(), nil
}

// Clean removes stale job description files from the output directory, so a
// rerun never submits leftovers from a previous batch.
func Clean(dir string, logger *slog.Logger) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.yaml"))
	if err != nil {
		logger.Warn("Failed to list stale job descriptions", "error", err)
		return
	}
	for _, file := range matches {
		if err := os.Remove(file); err != nil {
			logger.Warn("Failed to delete stale job description", "file", file, "error", err)
		} else {
			logger.Debug("Deleted stale job description", "file", file)
		}
	}
}

// Generate renders one job description per agent into dir and returns the
// written file paths. A failing agent is logged and skipped; it only costs the
// batch one candidate.
func Generate(templateFile, dir string, agents []string, series string, logger *slog.Logger) []string {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("Failed to create output directory", "dir", dir, "error", err)
		return nil
	}

	var files []string
	for _, agent := range agents {
		source, err := Render(templateFile, Data{
			JobName:      "job-" + agent,
			JobQueue:     agent,
			DistroSeries: series,
		})
		if err != nil {
			logger.Error("Failed to render job description", "agent", agent, "error", err)
			continue
		}

		file := filepath.Join(dir, fmt.Sprintf("%s%s.yaml", filePrefix, agent))
		if err := os.WriteFile(file, []byte(source), 0o644); err != nil {
			logger.Error("Failed to write job description", "file", file, "error", err)
			continue
		}

		logger.Debug("Generated job description", "file", file)
		files = append(files, file)
	}
	return files
}

// CaptureFile is the per-job raw output capture path inside dir.
func CaptureFile(dir, jobID string) string {
	return filepath.Join(dir, filePrefix+jobID+".txt")
}
