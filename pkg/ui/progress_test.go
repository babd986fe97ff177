package ui

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestProgressTrackerCountsConcurrentCompletions(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTrackerWithWriter(100, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tracker.RecordCompletion(fmt.Sprintf("file%d.tar.gz", i))
		}(i)
	}
	wg.Wait()

	if got := tracker.CompletedCount(); got != 100 {
		t.Errorf("Expected 100 completions, got %d", got)
	}
	if tracker.LastFile() == "" {
		t.Error("Expected a last completed filename to be recorded")
	}
	if !strings.Contains(buf.String(), "Download Complete!") {
		t.Error("Expected completion marker after all downloads finished")
	}
}

func TestProgressTrackerPartialProgress(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTrackerWithWriter(4, &buf)

	tracker.RecordCompletion("data1.tar.gz")
	tracker.RecordCompletion("data2.tar.gz")

	if got := tracker.CompletedCount(); got != 2 {
		t.Errorf("Expected 2 completions, got %d", got)
	}
	if got := tracker.LastFile(); got != "data2.tar.gz" {
		t.Errorf("Expected last file data2.tar.gz, got %s", got)
	}

	out := buf.String()
	if !strings.Contains(out, "2/4 (50.0%)") {
		t.Errorf("Expected progress line with 2/4 (50.0%%), got %q", out)
	}
	if strings.Contains(out, "Download Complete!") {
		t.Error("Completion marker must not appear before the total is reached")
	}
}

func TestProgressTrackerOverwritesLine(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTrackerWithWriter(2, &buf)

	tracker.RecordCompletion("a.gz")
	tracker.RecordCompletion("b.gz")

	// Every redraw starts with a carriage return, not a newline
	if got := strings.Count(buf.String(), "\r"); got != 2 {
		t.Errorf("Expected 2 carriage returns, got %d", got)
	}
}
