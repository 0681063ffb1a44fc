package types

import "time"

// TestStatus represents the possible terminal states of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// RunOptions is derived from a group's restriction set each time the gate
// runs. It carries the behavioral modifiers that do not by themselves skip.
type RunOptions struct {
	RWBuildTree bool // test must run inside a writable copy of the source tree
	AllowStderr bool // non-empty stderr does not fail the test
}

// TestResult captures the outcome of a single test execution attempt.
// Exactly one is produced per attempted test; it is never revised.
type TestResult struct {
	Name       string
	Group      string
	Status     TestStatus
	Reason     string        // skip reason or failure reason, empty on pass
	Transcript []string      // interleaved "<tag>: <line>" records, attached on failure
	Duration   time.Duration
}

// RunTotals accumulates verdicts across the whole run. It is owned by the
// harness and updated strictly in test order.
type RunTotals struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Failures []*TestResult // failing results in the order they occurred
}

// Record folds one test result into the totals.
func (t *RunTotals) Record(res *TestResult) {
	t.Total++
	switch res.Status {
	case TestStatusPass:
		t.Passed++
	case TestStatusSkip:
		t.Skipped++
	case TestStatusFail:
		t.Failed++
		t.Failures = append(t.Failures, res)
	}
}

// OK reports whether the run as a whole succeeded. Skips never count as
// failures.
func (t *RunTotals) OK() bool {
	return t.Failed == 0
}

// Status returns the overall run status: fail if anything failed, skip if
// nothing ran at all, pass otherwise.
func (t *RunTotals) Status() TestStatus {
	switch {
	case t.Failed > 0:
		return TestStatusFail
	case t.Passed == 0 && t.Skipped > 0:
		return TestStatusSkip
	default:
		return TestStatusPass
	}
}
