package fetcher

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexget/pkg/config"
	"nexget/pkg/nexrad"
)

func testConfig(baseURL, outputDir string, workers int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Nexrad.BaseURL = baseURL
	cfg.Output.BaseDirectory = outputDir
	cfg.Download.ConcurrentDownloads = workers
	cfg.Download.DownloadTimeout = 10 * time.Second
	return cfg
}

func testQuery() nexrad.Query {
	return nexrad.Query{Site: "KHTX", Year: "2025", Month: "03", Day: "15"}
}

// indexPage renders a bulk-download index listing the given filenames
func indexPage(filenames []string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, name := range filenames {
		fmt.Fprintf(&b, `<div class="bdpLink"><a href="/files/%s">%s</a></div>`, name, name)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestRunDownloadsAllFiles(t *testing.T) {
	filenames := []string{
		"KHTX20250315_000128_V06.gz",
		"KHTX20250315_001204_V06.gz",
		"KHTX20250315_002240_V06.gz",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/files/"):
			fmt.Fprintf(w, "archive data for %s", filepath.Base(r.URL.Path))
		case r.URL.Path == "/bdp-download.jsp":
			// Index requests carry the full query template
			assert.Equal(t, "KHTX", r.URL.Query().Get("id"))
			assert.Equal(t, "2025", r.URL.Query().Get("yyyy"))
			assert.Equal(t, "03", r.URL.Query().Get("mm"))
			assert.Equal(t, "15", r.URL.Query().Get("dd"))
			assert.Equal(t, "AAL2", r.URL.Query().Get("product"))
			fmt.Fprint(w, indexPage(filenames))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	outputBase := t.TempDir()
	f := New(testConfig(server.URL+"/bdp-download.jsp", outputBase, 3), nil)
	var progress bytes.Buffer
	f.SetProgressWriter(&progress)

	summary, err := f.Run(testQuery())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	expectedDir := filepath.Join(outputBase, "KHTX_2025_03_15")
	assert.Equal(t, expectedDir, summary.OutputDir)

	for _, name := range filenames {
		data, err := os.ReadFile(filepath.Join(expectedDir, name))
		require.NoError(t, err)
		assert.Equal(t, "archive data for "+name, string(data))
	}

	assert.Contains(t, progress.String(), "3/3 (100.0%)")
	assert.Contains(t, progress.String(), "Download Complete!")
}

func TestRunIndexFetchFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	f := New(testConfig(server.URL+"/bdp-download.jsp", t.TempDir(), 2), nil)

	summary, err := f.Run(testQuery())
	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestRunNoLinksIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>No data available for this date.</p></body></html>`)
	}))
	defer server.Close()

	f := New(testConfig(server.URL+"/bdp-download.jsp", t.TempDir(), 2), nil)

	summary, err := f.Run(testQuery())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
}

func TestRunPartialFailureStillSucceeds(t *testing.T) {
	filenames := []string{
		"KHTX20250315_000128_V06.gz",
		"KHTX20250315_001204_V06.gz",
		"KHTX20250315_002240_V06.gz",
		"KHTX20250315_003316_V06.gz",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/KHTX20250315_001204_V06.gz":
			http.NotFound(w, r)
		case strings.HasPrefix(r.URL.Path, "/files/"):
			fmt.Fprint(w, "archive data")
		default:
			fmt.Fprint(w, indexPage(filenames))
		}
	}))
	defer server.Close()

	outputBase := t.TempDir()
	f := New(testConfig(server.URL+"/bdp-download.jsp", outputBase, 2), nil)
	var progress bytes.Buffer
	f.SetProgressWriter(&progress)

	summary, err := f.Run(testQuery())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	// The failed file never lands on disk
	_, statErr := os.Stat(filepath.Join(summary.OutputDir, "KHTX20250315_001204_V06.gz"))
	assert.True(t, os.IsNotExist(statErr))

	// Progress stalls short of the total when a download fails
	assert.Contains(t, progress.String(), "3/4 (75.0%)")
	assert.NotContains(t, progress.String(), "Download Complete!")
}

func TestRunWithSingleWorkerDownloadsSequentially(t *testing.T) {
	filenames := []string{
		"KHTX20250315_000128_V06.gz",
		"KHTX20250315_001204_V06.gz",
		"KHTX20250315_002240_V06.gz",
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/files/") {
			fmt.Fprint(w, "archive data")
			return
		}
		fmt.Fprint(w, indexPage(filenames))
	}))
	defer server.Close()

	f := New(testConfig(server.URL+"/bdp-download.jsp", t.TempDir(), 1), nil)

	summary, err := f.Run(testQuery())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
}

func TestRunNormalizesQuery(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"id": r.URL.Query().Get("id"),
			"mm": r.URL.Query().Get("mm"),
			"dd": r.URL.Query().Get("dd"),
		}
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer server.Close()

	f := New(testConfig(server.URL+"/bdp-download.jsp", t.TempDir(), 2), nil)

	_, err := f.Run(nexrad.Query{Site: "khtx", Year: "2025", Month: "3", Day: "5"})
	require.NoError(t, err)

	assert.Equal(t, "KHTX", gotQuery["id"])
	assert.Equal(t, "03", gotQuery["mm"])
	assert.Equal(t, "05", gotQuery["dd"])
}

func TestRunRejectsInvalidQuery(t *testing.T) {
	f := New(testConfig("https://x.test/bdp-download.jsp", t.TempDir(), 2), nil)

	_, err := f.Run(nexrad.Query{Site: "NOPE5", Year: "2025", Month: "03", Day: "15"})
	assert.Error(t, err)

	_, err = f.Run(nexrad.Query{Site: "KHTX", Year: "", Month: "03", Day: "15"})
	assert.Error(t, err)
}

func TestOutputDirPattern(t *testing.T) {
	cfg := testConfig("https://x.test/bdp-download.jsp", "/data/radar", 2)
	cfg.Output.DirNamePattern = "nexrad-{site}-{year}{month}{day}"
	f := New(cfg, nil)

	got := f.OutputDir(testQuery())
	assert.Equal(t, filepath.Join("/data/radar", "nexrad-KHTX-20250315"), got)
}
