package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/debci/pkgtest/types"
)

// Runner executes a single test file as a subprocess with a controlled
// environment and turns its exit code and stream activity into a verdict.
type Runner struct {
	log    log.Logger
	tracer trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Log log.Logger
}

// New creates a new test runner instance
func New(cfg Config) *Runner {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Runner{
		log:    cfg.Log,
		tracer: otel.Tracer("test runner"),
	}
}

// Run executes testPath as a bare executable (no shell, no arguments) with
// workDir as its working directory and ADTTMP/TMPDIR bound to two freshly
// created scratch directories. Both output pipes are drained concurrently
// into an interleaved transcript.
//
// Verdict: exit 0 with a quiet stderr (or the allow-stderr option) is a
// pass. Exit 0 with stderr output and no allowance fails with "stderr
// non-empty"; stream content overrides exit-code success here, which is a
// deliberate part of the contract. A nonzero exit fails citing the code.
// The transcript is attached to every failing result.
//
// The scratch directories are removed on every exit path, including when the
// subprocess cannot be started. A test that cannot be started yields a
// failing result rather than an error, so one broken test never aborts the
// run; the error return is reserved for harness-level problems such as being
// unable to create the scratch directories.
func (r *Runner) Run(ctx context.Context, name, testPath, workDir string, opts types.RunOptions) (*types.TestResult, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("test %s", name))
	defer span.End()

	result := &types.TestResult{Name: name}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	adtTmp, err := os.MkdirTemp("", "pkgtest-adttmp-")
	if err != nil {
		return nil, fmt.Errorf("creating ADTTMP scratch directory: %w", err)
	}
	defer os.RemoveAll(adtTmp)

	tmpDir, err := os.MkdirTemp("", "pkgtest-tmpdir-")
	if err != nil {
		return nil, fmt.Errorf("creating TMPDIR scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	cmd := exec.CommandContext(ctx, testPath)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "ADTTMP="+adtTmp, "TMPDIR="+tmpDir)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr pipe: %w", err)
	}

	r.log.Debug("Starting test",
		"test", name,
		"path", testPath,
		"dir", workDir,
		"allowStderr", opts.AllowStderr)

	if err := cmd.Start(); err != nil {
		result.Status = types.TestStatusFail
		result.Reason = fmt.Sprintf("could not start test: %v", err)
		return result, nil
	}

	var transcript []string
	stderrSeen := false
	for rec := range Mux(stdout, stderr) {
		if rec.Source == SourceStderr {
			stderrSeen = true
		}
		transcript = append(transcript, string(rec.Source)+": "+strings.TrimSuffix(rec.Line, "\n"))
	}

	// Both streams are at end-of-stream; now collect the exit code.
	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			result.Status = types.TestStatusFail
			result.Reason = fmt.Sprintf("waiting for test: %v", err)
			result.Transcript = transcript
			return result, nil
		}
	}

	switch {
	case exitCode != 0:
		result.Status = types.TestStatusFail
		result.Reason = fmt.Sprintf("test returned exit status %d", exitCode)
		result.Transcript = transcript
	case stderrSeen && !opts.AllowStderr:
		result.Status = types.TestStatusFail
		result.Reason = "stderr non-empty"
		result.Transcript = transcript
	default:
		result.Status = types.TestStatusPass
	}

	r.log.Debug("Test finished",
		"test", name,
		"status", result.Status,
		"exitCode", exitCode,
		"stderrSeen", stderrSeen,
		"duration", result.Duration)

	return result, nil
}
