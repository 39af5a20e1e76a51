package checkout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	reportDirectoryPermissions = 0o755
	reportFilePermissions      = 0o644
	reportEncodeErrorTemplate  = "unable to encode checkout report: %w"
	reportWriteErrorTemplate   = "unable to write checkout report %s: %w"
)

// ReportEntry is the serialized form of one Outcome.
type ReportEntry struct {
	Repository      string  `yaml:"repository"`
	Ref             string  `yaml:"ref"`
	Location        string  `yaml:"location"`
	Status          string  `yaml:"status"`
	Error           string  `yaml:"error,omitempty"`
	DurationSeconds float64 `yaml:"duration_seconds"`
}

// Report is the serialized form of a Summary.
type Report struct {
	Checkouts []ReportEntry `yaml:"checkouts"`
	Failures  int           `yaml:"failures"`
}

// NewReport converts a Summary into its serialized form.
func NewReport(summary Summary) Report {
	report := Report{Checkouts: make([]ReportEntry, 0, len(summary.Outcomes))}
	for _, outcome := range summary.Outcomes {
		entry := ReportEntry{
			Repository:      outcome.Target.FullName(),
			Ref:             outcome.Ref,
			Location:        outcome.Target.Location,
			Status:          string(outcome.Status),
			DurationSeconds: outcome.Duration.Seconds(),
		}
		if outcome.Failure != nil {
			entry.Error = outcome.Failure.Cause.Error()
			report.Failures++
		}
		report.Checkouts = append(report.Checkouts, entry)
	}
	return report
}

// WriteReport writes summary as YAML to reportPath, creating parent directories.
func WriteReport(reportPath string, summary Summary) error {
	contentBytes, encodeError := yaml.Marshal(NewReport(summary))
	if encodeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplate, encodeError)
	}

	trimmedPath := strings.TrimSpace(reportPath)
	if mkdirError := os.MkdirAll(filepath.Dir(trimmedPath), reportDirectoryPermissions); mkdirError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, trimmedPath, mkdirError)
	}
	if writeError := os.WriteFile(trimmedPath, contentBytes, reportFilePermissions); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, trimmedPath, writeError)
	}
	return nil
}
