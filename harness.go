package pkgtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/debci/pkgtest/buildtree"
	"github.com/debci/pkgtest/gate"
	"github.com/debci/pkgtest/logging"
	"github.com/debci/pkgtest/metrics"
	"github.com/debci/pkgtest/registry"
	"github.com/debci/pkgtest/runner"
	"github.com/debci/pkgtest/types"
)

// Harness orchestrates one run: per test it consults the group's gate,
// prepares the execution environment, delegates to the process runner and
// folds the verdict into the run totals. Tests execute strictly
// sequentially, in group and declaration order.
type Harness struct {
	config     *Config
	registry   *registry.Registry
	runner     *runner.Runner
	checker    gate.DepChecker
	reporter   Reporter
	fileLogger *logging.FileLogger
	runID      string
	out        io.Writer

	totals  types.RunTotals
	results []*types.TestResult

	// tree is the writable build-tree copy, created lazily on first need and
	// shared by every test in the run that asks for it.
	tree *buildtree.Tree
}

// New creates a harness from a validated config.
func New(cfg *Config) (*Harness, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg.Log.Debug("Creating harness",
		"control", cfg.Control,
		"sources", cfg.Sources,
		"tree", cfg.Tree,
		"builtTree", cfg.BuiltTree,
		"ignoreRestrictions", cfg.IgnoreRestrictions)

	reg, err := registry.NewRegistry(registry.Config{
		Log:         cfg.Log,
		ControlFile: cfg.Control,
		SourcesFile: cfg.Sources,
		TestsDir:    cfg.TestsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	runID := uuid.New().String()
	fileLogger, err := logging.NewFileLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	return &Harness{
		config:     cfg,
		registry:   reg,
		runner:     runner.New(runner.Config{Log: cfg.Log}),
		checker:    &gate.ExecDepChecker{Log: cfg.Log},
		reporter:   NewConsoleReporter(os.Stdout),
		fileLogger: fileLogger,
		runID:      runID,
		out:        os.Stdout,
	}, nil
}

// Run executes every selected test and returns the accumulated totals. Test
// failures are collected, never propagated as errors; the error return is
// for harness-level problems only. The writable build-tree copy, if any
// test needed one, is removed exactly once before Run returns.
func (h *Harness) Run(ctx context.Context) (*types.RunTotals, error) {
	h.config.Log.Info("Starting test run", "run_id", h.runID)
	defer func() {
		if h.tree != nil {
			if err := h.tree.Remove(); err != nil {
				h.config.Log.Error("Failed to remove build tree copy", "err", err)
			}
		}
	}()

	selected := make(map[string]bool, len(h.config.SelectedTests))
	for _, name := range h.config.SelectedTests {
		selected[name] = true
	}

	for _, group := range h.registry.Groups() {
		g, err := gate.New(gate.Config{
			Group:     group,
			Checker:   h.checker,
			BuiltTree: h.config.BuiltTree,
			Log:       h.config.Log,
		})
		if err != nil {
			return nil, err
		}

		for _, name := range group.Tests {
			if len(selected) > 0 && !selected[name] {
				continue
			}
			res := h.runOne(ctx, g, group, name)
			h.totals.Record(res)
			h.results = append(h.results, res)
			metrics.RecordTest(h.runID, group.Name, name, res.Status)
			if err := h.fileLogger.LogTestResult(res); err != nil {
				h.config.Log.Error("Failed to persist transcript", "test", name, "err", err)
			}
		}
	}

	h.report()
	h.config.Log.Info("Test run completed",
		"run_id", h.runID,
		"total", h.totals.Total,
		"passed", h.totals.Passed,
		"skipped", h.totals.Skipped,
		"failed", h.totals.Failed)

	return &h.totals, nil
}

// runOne takes a single test through its state machine:
// Pending -> {Skipped | Running -> {Ok | Failed}}. Every exit path restores
// whatever it changed on the filesystem.
func (h *Harness) runOne(ctx context.Context, g *gate.Gate, group *types.TestGroup, name string) *types.TestResult {
	h.reporter.Start(group.Name, name)

	skip := func(reason string) *types.TestResult {
		h.reporter.Skip(group.Name, name, reason)
		return &types.TestResult{
			Name:   name,
			Group:  group.Name,
			Status: types.TestStatusSkip,
			Reason: reason,
		}
	}

	opts, err := g.Check(ctx, h.config.IgnoreRestrictions)
	if reason, ok := gate.IsSkip(err); ok {
		return skip(reason)
	}

	fail := func(reason string) *types.TestResult {
		h.reporter.Fail(group.Name, name, reason)
		return &types.TestResult{
			Name:   name,
			Group:  group.Name,
			Status: types.TestStatusFail,
			Reason: reason,
		}
	}

	execRoot := h.config.Tree
	inCopy := false
	if opts.RWBuildTree {
		tree, err := h.ensureTree()
		if err != nil {
			return fail(fmt.Sprintf("could not prepare writable build tree: %v", err))
		}
		execRoot = tree.Root
		inCopy = true
	}

	testPath := filepath.Join(execRoot, group.TestsDirectory, name)
	restore, err := h.ensureExecutable(testPath, inCopy)
	if err != nil {
		// A missing or unpreparable test file is a configuration problem,
		// not a verdict on code that never ran. Skip it so the run's exit
		// status reflects actual test outcomes only.
		return skip(fmt.Sprintf("could not make test executable: %v", err))
	}
	defer restore()

	res, err := h.runner.Run(ctx, name, testPath, execRoot, opts)
	if err != nil {
		return fail(err.Error())
	}
	res.Group = group.Name

	switch res.Status {
	case types.TestStatusPass:
		h.reporter.Ok(group.Name, name)
	case types.TestStatusFail:
		h.reporter.Fail(group.Name, name, res.Reason)
	}
	return res
}

// ensureTree creates the shared writable copy of the source tree on first
// use. Only one test runs at a time, so plain lazy initialization is safe.
func (h *Harness) ensureTree() (*buildtree.Tree, error) {
	if h.tree != nil {
		return h.tree, nil
	}
	tree, err := buildtree.Copy(h.config.Tree, h.config.Log)
	if err != nil {
		return nil, err
	}
	h.tree = tree
	return tree, nil
}

// ensureExecutable makes the test file runnable. Inside the private copy it
// is marked executable unconditionally; in place, only when needed, and the
// returned restore func puts the original mode bits back.
func (h *Harness) ensureExecutable(path string, inCopy bool) (func(), error) {
	noop := func() {}

	if inCopy {
		return noop, os.Chmod(path, 0o755)
	}

	info, err := os.Stat(path)
	if err != nil {
		return noop, err
	}
	mode := info.Mode().Perm()
	if mode&0o111 != 0 {
		return noop, nil
	}
	if err := os.Chmod(path, mode|0o111); err != nil {
		return noop, err
	}
	return func() {
		if err := os.Chmod(path, mode); err != nil {
			h.config.Log.Error("Failed to restore permissions", "path", path, "err", err)
		}
	}, nil
}

// report renders the failure transcripts, the results table and the summary
// line, persists the summary and emits the run metrics.
func (h *Harness) report() {
	separator := strings.Repeat("-", 70)
	for _, f := range h.totals.Failures {
		fmt.Fprintln(h.out, separator)
		fmt.Fprintln(h.out, f.Name)
		fmt.Fprintln(h.out, separator)
		for _, line := range f.Transcript {
			fmt.Fprintln(h.out, line)
		}
	}

	h.printResultsTable()

	summary := h.summary()
	fmt.Fprint(h.out, summary)
	if err := h.fileLogger.LogSummary(summary); err != nil {
		h.config.Log.Error("Failed to persist summary", "err", err)
	}

	metrics.RecordRun(
		h.runID,
		string(h.totals.Status()),
		h.totals.Total,
		h.totals.Passed,
		h.totals.Failed,
		h.totals.Skipped,
		h.duration(),
	)
}

func (h *Harness) summary() string {
	verdict := "OK"
	if !h.totals.OK() {
		verdict = "FAILED"
	}
	return fmt.Sprintf("%d tests, %d skipped, %d failures\n%s\n",
		h.totals.Total, h.totals.Skipped, h.totals.Failed, verdict)
}

func (h *Harness) duration() time.Duration {
	var total time.Duration
	for _, res := range h.results {
		total += res.Duration
	}
	return total
}

// printResultsTable prints every test's verdict to the console.
func (h *Harness) printResultsTable() {
	t := table.NewWriter()
	t.SetOutputMirror(h.out)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", h.runID))

	t.AppendHeader(table.Row{"Group", "Test", "Duration", "Status", "Reason"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Group", AutoMerge: true},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Reason", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, res := range h.results {
		t.AppendRow(table.Row{
			res.Group,
			res.Name,
			fmt.Sprintf("%.1fs", res.Duration.Seconds()),
			getResultString(res.Status),
			res.Reason,
		})
	}

	switch h.totals.Status() {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL", h.totals.Total,
		fmt.Sprintf("%.1fs", h.duration().Seconds()),
		getResultString(h.totals.Status()),
		fmt.Sprintf("%d passed, %d skipped, %d failed", h.totals.Passed, h.totals.Skipped, h.totals.Failed),
	})

	t.Render()
}

// getResultString returns a short string representing a verdict
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}
