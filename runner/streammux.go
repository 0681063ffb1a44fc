package runner

import (
	"bufio"
	"io"
	"sync"
)

// Source tags a transcript record with the stream it came from.
type Source string

const (
	SourceStdout Source = "O"
	SourceStderr Source = "E"
)

// Record is one line captured from a subprocess stream. Line includes its
// trailing terminator, except for a final partial line emitted when the
// stream closed without one.
type Record struct {
	Source Source
	Line   string
}

// Mux drains the two readers concurrently and returns a channel of records
// merged in emission order. Each source's own lines keep their relative
// order; lines are never split across records; a trailing partial line is
// emitted exactly once when its source closes. The channel closes only after
// both sources reach end-of-stream, so a source that never closes blocks the
// consumer.
//
// Draining both pipes concurrently is what keeps the child from deadlocking:
// reading them one after the other stalls as soon as the unread pipe fills
// its OS buffer.
func Mux(stdout, stderr io.Reader) <-chan Record {
	out := make(chan Record)

	var wg sync.WaitGroup
	wg.Add(2)
	go drain(stdout, SourceStdout, out, &wg)
	go drain(stderr, SourceStderr, out, &wg)

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// drain reads src to end-of-stream, splitting on '\n' and handing each
// completed line to out. ReadString buffers incomplete trailing bytes for us
// and returns them alongside the terminal error, so the leftover partial
// line goes out before we report the stream closed.
func drain(src io.Reader, tag Source, out chan<- Record, wg *sync.WaitGroup) {
	defer wg.Done()

	br := bufio.NewReader(src)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			out <- Record{Source: tag, Line: line}
		}
		if err != nil {
			return
		}
	}
}
