package gate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// DepChecker decides whether a dependency expression is satisfiable in the
// current environment.
type DepChecker interface {
	Check(ctx context.Context, expr string) error
}

// ExecDepChecker delegates to dpkg-checkbuilddeps, handing it the expression
// via -d so the installed package database is consulted without needing a
// control file.
type ExecDepChecker struct {
	Log log.Logger
}

func (c *ExecDepChecker) Check(ctx context.Context, expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, "dpkg-checkbuilddeps", "-d", expr, "/dev/null")
	out, err := cmd.CombinedOutput()
	if c.Log != nil {
		c.Log.Debug("Dependency check", "command", cmd.String(), "err", err)
	}
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		// Keep the checker's first line; it names the unmet packages.
		if idx := strings.IndexByte(msg, '\n'); idx != -1 {
			msg = msg[:idx]
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}
