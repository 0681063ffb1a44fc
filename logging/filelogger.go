// Package logging persists per-run artifacts: transcripts of failing tests
// and the run summary.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/debci/pkgtest/types"
)

// FileLogger stores the artifacts of one run under <baseDir>/<runID>/.
// Failing tests get one transcript file each under failed/; the run summary
// goes to summary.log.
type FileLogger struct {
	baseDir   string
	runID     string
	runDir    string
	failedDir string
}

// NewFileLogger creates the run's directory structure.
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	runDir := filepath.Join(baseDir, runID)
	failedDir := filepath.Join(runDir, "failed")
	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directories: %w", err)
	}

	return &FileLogger{
		baseDir:   baseDir,
		runID:     runID,
		runDir:    runDir,
		failedDir: failedDir,
	}, nil
}

// LogTestResult persists the transcript of a failing test. Passing and
// skipped tests leave no file; the summary carries their tally.
func (l *FileLogger) LogTestResult(result *types.TestResult) error {
	if result.Status != types.TestStatusFail {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "test: %s\n", result.Name)
	if result.Group != "" {
		fmt.Fprintf(&b, "group: %s\n", result.Group)
	}
	fmt.Fprintf(&b, "reason: %s\n", result.Reason)
	fmt.Fprintf(&b, "duration: %s\n\n", result.Duration)
	for _, line := range result.Transcript {
		b.WriteString(stripansi.Strip(line))
		b.WriteByte('\n')
	}

	path := filepath.Join(l.failedDir, safeFilename(result.Name)+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing transcript for %s: %w", result.Name, err)
	}
	return nil
}

// LogSummary writes the run summary file.
func (l *FileLogger) LogSummary(summary string) error {
	path := l.GetSummaryFile()
	if err := os.WriteFile(path, []byte(stripansi.Strip(summary)), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// GetRunID returns the run ID this logger was created for.
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetBaseDir returns the base directory for all runs.
func (l *FileLogger) GetBaseDir() string {
	return l.baseDir
}

// GetFailedDir returns the directory holding failing-test transcripts.
func (l *FileLogger) GetFailedDir() string {
	return l.failedDir
}

// GetSummaryFile returns the path of the run summary file.
func (l *FileLogger) GetSummaryFile() string {
	return filepath.Join(l.runDir, "summary.log")
}

// safeFilename replaces characters that are awkward in filenames.
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		" ", "_",
	)
	return replacer.Replace(s)
}
