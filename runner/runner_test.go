package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debci/pkgtest/types"
)

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunner_Verdicts(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{})

	tests := []struct {
		name       string
		script     string
		opts       types.RunOptions
		wantStatus types.TestStatus
		wantReason string
	}{
		{
			name:       "exit zero quiet stderr passes",
			script:     "echo hello\nexit 0\n",
			wantStatus: types.TestStatusPass,
		},
		{
			name:       "exit zero with stderr fails without allowance",
			script:     "echo hello\necho warning >&2\nexit 0\n",
			wantStatus: types.TestStatusFail,
			wantReason: "stderr non-empty",
		},
		{
			name:       "exit zero with stderr passes with allowance",
			script:     "echo warning >&2\nexit 0\n",
			opts:       types.RunOptions{AllowStderr: true},
			wantStatus: types.TestStatusPass,
		},
		{
			name:       "nonzero exit cited regardless of streams",
			script:     "echo fine\nexit 7\n",
			opts:       types.RunOptions{AllowStderr: true},
			wantStatus: types.TestStatusFail,
			wantReason: "test returned exit status 7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, dir, strings.ReplaceAll(tt.name, " ", "-"), tt.script)
			res, err := r.Run(context.Background(), tt.name, script, dir, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantReason, res.Reason)
			if tt.wantStatus == types.TestStatusFail {
				assert.NotEmpty(t, res.Transcript)
			}
		})
	}
}

func TestRunner_TranscriptInterleavesTaggedLines(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "transcript", "echo out-line\necho err-line >&2\nexit 1\n")

	r := New(Config{})
	res, err := r.Run(context.Background(), "transcript", script, dir, types.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.TestStatusFail, res.Status)
	assert.Contains(t, res.Transcript, "O: out-line")
	assert.Contains(t, res.Transcript, "E: err-line")
}

func TestRunner_TrailingPartialLineCaptured(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "partial", "printf 'no newline here'\nexit 5\n")

	r := New(Config{})
	res, err := r.Run(context.Background(), "partial", script, dir, types.RunOptions{})
	require.NoError(t, err)

	assert.Contains(t, res.Transcript, "O: no newline here")
}

func TestRunner_ScratchDirsProvidedAndRemoved(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "dirs")
	script := writeScript(t, dir, "scratch",
		`[ -d "$ADTTMP" ] || exit 3
[ -d "$TMPDIR" ] || exit 4
[ "$ADTTMP" = "$TMPDIR" ] && exit 5
echo "$ADTTMP" > `+marker+`
echo "$TMPDIR" >> `+marker+"\nexit 0\n")

	r := New(Config{})
	res, err := r.Run(context.Background(), "scratch", script, dir, types.RunOptions{})
	require.NoError(t, err)
	require.Equal(t, types.TestStatusPass, res.Status, "reason: %s", res.Reason)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	for _, scratch := range strings.Fields(string(data)) {
		assert.NoDirExists(t, scratch, "scratch directory should be removed after the run")
	}
}

func TestRunner_ScratchDirsRemovedOnFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "dirs")
	script := writeScript(t, dir, "scratch-fail", `echo "$ADTTMP" > `+marker+"\nexit 1\n")

	r := New(Config{})
	res, err := r.Run(context.Background(), "scratch-fail", script, dir, types.RunOptions{})
	require.NoError(t, err)
	require.Equal(t, types.TestStatusFail, res.Status)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.NoDirExists(t, strings.TrimSpace(string(data)))
}

func TestRunner_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "cwd", `[ "$(pwd -P)" = "`+mustEvalSymlinks(t, dir)+`" ] || exit 9`+"\nexit 0\n")

	r := New(Config{})
	res, err := r.Run(context.Background(), "cwd", script, dir, types.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.TestStatusPass, res.Status, "reason: %s", res.Reason)
}

func mustEvalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestRunner_UnstartableTestFailsWithoutAbortingRun(t *testing.T) {
	dir := t.TempDir()

	r := New(Config{})
	res, err := r.Run(context.Background(), "missing", filepath.Join(dir, "does-not-exist"), dir, types.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.TestStatusFail, res.Status)
	assert.Contains(t, res.Reason, "could not start test")
}
