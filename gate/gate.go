// Package gate decides whether a test group's tests may run at all, based on
// the group's restriction set and its dependency expression.
package gate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/debci/pkgtest/types"
)

// geteuid is a hook so tests can simulate running as root or not.
var geteuid = os.Geteuid

// SkipError signals that a test was not attempted. It is never counted as a
// failure.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return e.Reason
}

// IsSkip returns the skip reason if err is or wraps a SkipError.
func IsSkip(err error) (string, bool) {
	var skipErr *SkipError
	if err != nil && errors.As(err, &skipErr) {
		return skipErr.Reason, true
	}
	return "", false
}

type depState int

const (
	depUnchecked depState = iota
	depSatisfied
	depUnmet
)

// Gate evaluates one group's restrictions and dependency expression against
// the current environment. The dependency outcome is cached for the lifetime
// of the group, so checking several tests from the same group performs the
// underlying external check at most once; a cached failure is replayed as
// the identical skip.
type Gate struct {
	group     *types.TestGroup
	checker   DepChecker
	builtTree bool
	log       log.Logger

	depState  depState
	depReason string
}

// Config holds configuration for creating a new gate
type Config struct {
	Group     *types.TestGroup
	Checker   DepChecker // defaults to the dpkg-checkbuilddeps checker
	BuiltTree bool       // caller declares the source tree already built
	Log       log.Logger
}

// New creates a gate for one test group.
func New(cfg Config) (*Gate, error) {
	if cfg.Group == nil {
		return nil, fmt.Errorf("test group is required")
	}
	if cfg.Checker == nil {
		cfg.Checker = &ExecDepChecker{Log: cfg.Log}
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Gate{
		group:     cfg.Group,
		checker:   cfg.Checker,
		builtTree: cfg.BuiltTree,
		log:       cfg.Log,
	}, nil
}

// CheckRestrictions evaluates the group's restrictions, minus the ignored
// ones, against runtime facts. It returns the derived run options, or a
// SkipError when an active restriction mandates skipping.
func (g *Gate) CheckRestrictions(ignored []string) (types.RunOptions, error) {
	ignoredSet := make(map[types.Restriction]bool, len(ignored))
	for _, name := range ignored {
		ignoredSet[types.Restriction(name)] = true
	}

	var opts types.RunOptions
	for _, r := range g.group.Restrictions {
		if ignoredSet[r] {
			g.log.Debug("Ignoring restriction", "group", g.group.Name, "restriction", r)
			continue
		}
		switch r {
		case types.RestrictionNeedsRoot:
			if geteuid() != 0 {
				return types.RunOptions{}, &SkipError{Reason: "test needs root privileges"}
			}
		case types.RestrictionBreaksTestbed:
			return types.RunOptions{}, &SkipError{Reason: "breaks-testbed restriction is not supported"}
		case types.RestrictionBuildNeeded:
			if !g.builtTree {
				return types.RunOptions{}, &SkipError{Reason: "test needs a built source tree"}
			}
		case types.RestrictionRWBuildTree:
			opts.RWBuildTree = true
		case types.RestrictionAllowStderr:
			opts.AllowStderr = true
		default:
			// Unknown tags skip rather than error, so control files written
			// for newer harnesses still degrade gracefully here.
			return types.RunOptions{}, &SkipError{Reason: fmt.Sprintf("unknown restriction %q", r)}
		}
	}
	return opts, nil
}

// CheckDependencies verifies the group's dependency expression, invoking the
// external checker at most once per group.
func (g *Gate) CheckDependencies(ctx context.Context) error {
	switch g.depState {
	case depSatisfied:
		return nil
	case depUnmet:
		return &SkipError{Reason: g.depReason}
	}

	if err := g.checker.Check(ctx, g.group.Depends); err != nil {
		g.depState = depUnmet
		g.depReason = fmt.Sprintf("dependencies not satisfiable: %v", err)
		g.log.Debug("Dependency check failed", "group", g.group.Name, "depends", g.group.Depends, "err", err)
		return &SkipError{Reason: g.depReason}
	}
	g.depState = depSatisfied
	return nil
}

// Check composes both checks. Restriction failures surface before dependency
// failures, and the dependency check is not performed when a restriction
// already skipped the test.
func (g *Gate) Check(ctx context.Context, ignored []string) (types.RunOptions, error) {
	opts, err := g.CheckRestrictions(ignored)
	if err != nil {
		return types.RunOptions{}, err
	}
	if err := g.CheckDependencies(ctx); err != nil {
		return types.RunOptions{}, err
	}
	return opts, nil
}
