package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestGroup_ExpandDepends(t *testing.T) {
	meta := &SourceMetadata{
		BuildDeps: "debhelper (>= 9), gcc",
		Binaries:  []string{"foo", "foo-doc"},
	}

	tests := []struct {
		name    string
		depends string
		meta    *SourceMetadata
		want    string
	}{
		{
			name:    "binary placeholder",
			depends: "@",
			meta:    meta,
			want:    "foo, foo-doc",
		},
		{
			name:    "builddeps placeholder",
			depends: "@builddeps@",
			meta:    meta,
			want:    "debhelper (>= 9), gcc",
		},
		{
			name:    "mixed expression",
			depends: "bar (>= 1.0), @, baz | quux",
			meta:    meta,
			want:    "bar (>= 1.0), foo, foo-doc, baz | quux",
		},
		{
			name:    "no placeholders",
			depends: "bar, baz",
			meta:    meta,
			want:    "bar, baz",
		},
		{
			name:    "nil metadata leaves expression alone",
			depends: "@",
			meta:    nil,
			want:    "@",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &TestGroup{Depends: tt.depends}
			g.ExpandDepends(tt.meta)
			assert.Equal(t, tt.want, g.Depends)
			assert.True(t, g.Expanded())
		})
	}
}

func TestTestGroup_ExpandDependsIdempotent(t *testing.T) {
	meta := &SourceMetadata{Binaries: []string{"foo"}}
	g := &TestGroup{Depends: "@"}

	g.ExpandDepends(meta)
	first := g.Depends
	g.ExpandDepends(meta)

	assert.Equal(t, first, g.Depends)
	assert.Equal(t, "foo", g.Depends)
}

func TestTestGroup_HasRestriction(t *testing.T) {
	g := &TestGroup{Restrictions: []Restriction{RestrictionNeedsRoot, "custom-tag"}}

	assert.True(t, g.HasRestriction(RestrictionNeedsRoot))
	assert.True(t, g.HasRestriction("custom-tag"))
	assert.False(t, g.HasRestriction(RestrictionAllowStderr))
}

func TestRunTotals_Record(t *testing.T) {
	totals := &RunTotals{}
	totals.Record(&TestResult{Name: "a", Status: TestStatusPass})
	totals.Record(&TestResult{Name: "b", Status: TestStatusSkip, Reason: "needs-root"})
	totals.Record(&TestResult{Name: "c", Status: TestStatusFail, Reason: "exit status 1"})

	assert.Equal(t, 3, totals.Total)
	assert.Equal(t, 1, totals.Passed)
	assert.Equal(t, 1, totals.Skipped)
	assert.Equal(t, 1, totals.Failed)
	assert.Len(t, totals.Failures, 1)
	assert.Equal(t, "c", totals.Failures[0].Name)
	assert.False(t, totals.OK())
	assert.Equal(t, TestStatusFail, totals.Status())
}

func TestRunTotals_Status(t *testing.T) {
	allSkipped := &RunTotals{}
	allSkipped.Record(&TestResult{Status: TestStatusSkip})
	assert.Equal(t, TestStatusSkip, allSkipped.Status())
	assert.True(t, allSkipped.OK())

	passed := &RunTotals{}
	passed.Record(&TestResult{Status: TestStatusPass})
	assert.Equal(t, TestStatusPass, passed.Status())
}
