package pkgtest

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Reporter receives lifecycle callbacks for human display. It is not part of
// the execution core; swapping it out changes rendering only.
type Reporter interface {
	Start(group, test string)
	Skip(group, test, reason string)
	Fail(group, test, reason string)
	Ok(group, test string)
}

// ConsoleReporter renders one line per completed test, building the running
// tally incrementally. Tests run one at a time, so a single started clock is
// enough.
type ConsoleReporter struct {
	out     io.Writer
	started time.Time
}

// NewConsoleReporter creates a reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

func (r *ConsoleReporter) Start(group, test string) {
	r.started = time.Now()
}

func (r *ConsoleReporter) Skip(group, test, reason string) {
	fmt.Fprintf(r.out, "%s %s (%s)\n", text.FgYellow.Sprint("- skip"), test, reason)
}

func (r *ConsoleReporter) Fail(group, test, reason string) {
	fmt.Fprintf(r.out, "%s %s (%s, %.1fs)\n", text.FgRed.Sprint("✗ fail"), test, reason, time.Since(r.started).Seconds())
}

func (r *ConsoleReporter) Ok(group, test string) {
	fmt.Fprintf(r.out, "%s %s (%.1fs)\n", text.FgGreen.Sprint("✓ pass"), test, time.Since(r.started).Seconds())
}
