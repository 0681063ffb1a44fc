package types

import "strings"

// Restriction is a named precondition or behavioral modifier attached to a
// test group. Values outside the known set are carried verbatim; the gate
// skips on them, which keeps old harnesses forward compatible with control
// files written for newer ones.
type Restriction string

const (
	RestrictionNeedsRoot     Restriction = "needs-root"
	RestrictionBreaksTestbed Restriction = "breaks-testbed"
	RestrictionBuildNeeded   Restriction = "build-needed"
	RestrictionRWBuildTree   Restriction = "rw-build-tree"
	RestrictionAllowStderr   Restriction = "allow-stderr"
)

// DefaultTestsDirectory is where test executables live when a group does not
// override it.
const DefaultTestsDirectory = "debian/tests"

// Placeholder tokens recognized inside a dependency expression.
const (
	// DependsPlaceholder substitutes the declaring package's own binary
	// packages.
	DependsPlaceholder = "@"
	// BuildDepsPlaceholder substitutes the source package's build
	// prerequisites.
	BuildDepsPlaceholder = "@builddeps@"
)

// SourceMetadata is the slice of the package metadata file the harness cares
// about: the source package's build prerequisites and the names of its binary
// packages. Consumed only for placeholder substitution.
type SourceMetadata struct {
	BuildDeps string
	Binaries  []string
}

// TestGroup is a named collection of tests sharing one restriction set, one
// dependency expression and one tests directory, sourced from a single
// control-file paragraph. It is immutable once its dependency expression has
// been expanded.
type TestGroup struct {
	Name           string
	Tests          []string
	Restrictions   []Restriction
	Features       []string
	Depends        string // dependency expression, DNF over package constraints
	TestsDirectory string

	expanded bool
}

// HasRestriction reports whether the group declares the given restriction.
func (g *TestGroup) HasRestriction(r Restriction) bool {
	for _, have := range g.Restrictions {
		if have == r {
			return true
		}
	}
	return false
}

// ExpandDepends rewrites the placeholder tokens in the group's dependency
// expression using the source metadata. The rewrite happens at most once;
// repeated calls are no-ops so the expression stays stable for the lifetime
// of the group.
func (g *TestGroup) ExpandDepends(meta *SourceMetadata) {
	if g.expanded {
		return
	}
	g.expanded = true
	if meta == nil {
		return
	}

	parts := strings.Split(g.Depends, ",")
	var out []string
	for _, part := range parts {
		dep := strings.TrimSpace(part)
		switch dep {
		case "":
			continue
		case DependsPlaceholder:
			out = append(out, meta.Binaries...)
		case BuildDepsPlaceholder:
			if bd := strings.TrimSpace(meta.BuildDeps); bd != "" {
				out = append(out, bd)
			}
		default:
			out = append(out, dep)
		}
	}
	g.Depends = strings.Join(out, ", ")
}

// Expanded reports whether the dependency expression has been through its
// one-time rewrite.
func (g *TestGroup) Expanded() bool {
	return g.expanded
}
