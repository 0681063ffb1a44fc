package runner

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(ch <-chan Record) []Record {
	var recs []Record
	for rec := range ch {
		recs = append(recs, rec)
	}
	return recs
}

func TestMux_TagsAndLineBoundaries(t *testing.T) {
	stdout := strings.NewReader("one\ntwo\n")
	stderr := strings.NewReader("oops\n")

	recs := collect(Mux(stdout, stderr))
	require.Len(t, recs, 3)

	var out, errs []string
	for _, rec := range recs {
		switch rec.Source {
		case SourceStdout:
			out = append(out, rec.Line)
		case SourceStderr:
			errs = append(errs, rec.Line)
		}
	}
	assert.Equal(t, []string{"one\n", "two\n"}, out)
	assert.Equal(t, []string{"oops\n"}, errs)
}

func TestMux_TrailingPartialLine(t *testing.T) {
	stdout := strings.NewReader("complete\npartial")
	stderr := strings.NewReader("")

	recs := collect(Mux(stdout, stderr))
	require.Len(t, recs, 2)
	assert.Equal(t, Record{Source: SourceStdout, Line: "complete\n"}, recs[0])
	assert.Equal(t, Record{Source: SourceStdout, Line: "partial"}, recs[1])
}

func TestMux_PartialLineOnBothStreams(t *testing.T) {
	recs := collect(Mux(strings.NewReader("no newline"), strings.NewReader("also none")))
	require.Len(t, recs, 2)

	got := map[Source]string{}
	for _, rec := range recs {
		got[rec.Source] = rec.Line
	}
	assert.Equal(t, "no newline", got[SourceStdout])
	assert.Equal(t, "also none", got[SourceStderr])
}

func TestMux_PerSourceOrderPreserved(t *testing.T) {
	var lines []string
	for i := 0; i < 500; i++ {
		lines = append(lines, strings.Repeat("x", i%80)+"\n")
	}
	stdout := strings.NewReader(strings.Join(lines, ""))
	stderr := strings.NewReader(strings.Join(lines, ""))

	var out, errs []string
	for rec := range Mux(stdout, stderr) {
		if rec.Source == SourceStdout {
			out = append(out, rec.Line)
		} else {
			errs = append(errs, rec.Line)
		}
	}
	assert.Equal(t, lines, out)
	assert.Equal(t, lines, errs)
}

func TestMux_InterleavesInEmissionOrder(t *testing.T) {
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()

	ch := Mux(outR, errR)

	// Alternate writers, waiting for each record before switching streams,
	// so emission order is deterministic.
	_, err := outW.Write([]byte("first\n"))
	require.NoError(t, err)
	assert.Equal(t, Record{Source: SourceStdout, Line: "first\n"}, <-ch)

	_, err = errW.Write([]byte("second\n"))
	require.NoError(t, err)
	assert.Equal(t, Record{Source: SourceStderr, Line: "second\n"}, <-ch)

	_, err = outW.Write([]byte("third\n"))
	require.NoError(t, err)
	assert.Equal(t, Record{Source: SourceStdout, Line: "third\n"}, <-ch)

	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())

	_, open := <-ch
	assert.False(t, open, "channel should close after both sources reach EOF")
}

func TestMux_DoesNotTerminateWhileSourceOpen(t *testing.T) {
	outR, outW := io.Pipe()
	stderr := strings.NewReader("done\n")

	ch := Mux(outR, stderr)
	assert.Equal(t, Record{Source: SourceStderr, Line: "done\n"}, <-ch)

	select {
	case rec, open := <-ch:
		if !open {
			t.Fatal("channel closed while stdout still open")
		}
		t.Fatalf("unexpected record %v", rec)
	case <-time.After(50 * time.Millisecond):
		// still blocked, as it should be
	}

	require.NoError(t, outW.Close())
	_, open := <-ch
	assert.False(t, open)
}

func TestMux_LongLinesNotSplit(t *testing.T) {
	long := strings.Repeat("a", 64*1024)
	recs := collect(Mux(strings.NewReader(long+"\n"), strings.NewReader("")))
	require.Len(t, recs, 1)
	assert.Equal(t, long+"\n", recs[0].Line)
}
