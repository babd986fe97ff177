package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// ProgressTracker keeps a running count of completed downloads and renders a
// single overwritten progress line. It is safe for concurrent use: every
// finishing download calls RecordCompletion from its own goroutine.
//
// The total is fixed at construction and counts the URLs submitted, not the
// URLs expected to succeed. Failed downloads never advance the counter, so the
// line stops short of 100% when some downloads fail.
type ProgressTracker struct {
	total     int
	completed atomic.Int64

	mu       sync.Mutex
	lastFile string
	out      io.Writer
}

// NewProgressTracker creates a tracker for the given number of submitted
// downloads, writing progress to stdout.
func NewProgressTracker(total int) *ProgressTracker {
	return NewProgressTrackerWithWriter(total, os.Stdout)
}

// NewProgressTrackerWithWriter creates a tracker writing to the given writer.
func NewProgressTrackerWithWriter(total int, out io.Writer) *ProgressTracker {
	return &ProgressTracker{
		total: total,
		out:   out,
	}
}

// RecordCompletion records one successfully downloaded file and redraws the
// progress line. Called exactly once per successful download.
func (t *ProgressTracker) RecordCompletion(filename string) {
	current := int(t.completed.Add(1))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFile = filename
	t.printProgress(current, filename)
}

// printProgress redraws the single progress line in place. Caller holds mu so
// concurrent completions never interleave partial lines.
func (t *ProgressTracker) printProgress(current int, filename string) {
	percentage := float64(current) / float64(t.total) * 100.0
	fmt.Fprintf(t.out, "\rDownloading Files: %d/%d (%.1f%%) | Last: %s ",
		current, t.total, percentage, filename)

	if current == t.total {
		fmt.Fprint(t.out, "\nDownload Complete!\n")
	}
}

// CompletedCount returns the number of recorded completions
func (t *ProgressTracker) CompletedCount() int {
	return int(t.completed.Load())
}

// Total returns the number of submitted downloads
func (t *ProgressTracker) Total() int {
	return t.total
}

// LastFile returns the most recently completed filename
func (t *ProgressTracker) LastFile() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFile
}
