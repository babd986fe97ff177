// Package fetcher sequences one archive fetch end to end: build the index URL,
// pull the index page, extract download links, and run the download pool.
package fetcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"nexget/internal/downloader"
	"nexget/pkg/config"
	"nexget/pkg/extractor"
	"nexget/pkg/logger"
	"nexget/pkg/nexrad"
	"nexget/pkg/storage"
	"nexget/pkg/ui"
)

// anchorDumpLimit caps how many anchors the no-match diagnostic logs
const anchorDumpLimit = 10

// Summary reports the outcome of one fetch run. Failed downloads are part of a
// normal run; only an unreachable index page is a run-level error.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
	OutputDir string
	Elapsed   time.Duration
}

// Fetcher drives the fetch pipeline for one radar site and date
type Fetcher struct {
	cfg    *config.Config
	client *nexrad.Client
	logger logger.Logger

	// progressOut receives the live progress line; stdout unless overridden
	progressOut io.Writer
}

// New creates a fetcher from the given configuration
func New(cfg *config.Config, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Fetcher{
		cfg:         cfg,
		client:      nexrad.NewClient(cfg.Download.DownloadTimeout, cfg.Nexrad.UserAgent, log),
		logger:      log,
		progressOut: os.Stdout,
	}
}

// SetProgressWriter redirects the progress line, used by tests
func (f *Fetcher) SetProgressWriter(out io.Writer) {
	f.progressOut = out
}

// Run fetches the index page for the query, extracts download links, and
// downloads them concurrently. An empty link list is a normal terminal outcome
// (Attempted == 0), not an error.
func (f *Fetcher) Run(query nexrad.Query) (*Summary, error) {
	start := time.Now()

	query = query.Normalize()
	if query.Product == "" {
		query.Product = f.cfg.Nexrad.Product
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	indexURL := nexrad.IndexURL(f.cfg.Nexrad.BaseURL, query)
	f.logger.InfoWithFields("fetching archive index", map[string]interface{}{
		"site": query.Site,
		"date": fmt.Sprintf("%s-%s-%s", query.Year, query.Month, query.Day),
		"url":  indexURL,
	})

	html, err := f.client.GetHTML(indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index page: %w", err)
	}

	links, err := f.extractLinks(html, indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract download links: %w", err)
	}

	outputDir := f.OutputDir(query)

	if len(links) == 0 {
		f.logger.Warn("no download links found on index page")
		return &Summary{OutputDir: outputDir, Elapsed: time.Since(start)}, nil
	}

	f.logger.InfoWithFields("starting downloads", map[string]interface{}{
		"count":      len(links),
		"output_dir": outputDir,
		"workers":    f.cfg.Download.ConcurrentDownloads,
	})

	summary, err := f.download(links, outputDir)
	if err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// extractLinks runs the selection-rule chain with diagnostics wired to the logger
func (f *Fetcher) extractLinks(html, indexURL string) ([]string, error) {
	e := extractor.New()
	e.OnRuleMatch = func(rule extractor.SelectionRule, count int) {
		f.logger.InfoWithFields("selection rule matched", map[string]interface{}{
			"rule":     rule.Name,
			"selector": rule.Selector,
			"links":    count,
		})
	}
	e.OnNoMatch = func(anchors []extractor.Anchor) {
		f.logger.DebugWithFields("no rule matched, dumping page anchors", map[string]interface{}{
			"total_anchors": len(anchors),
		})
		for i, anchor := range anchors {
			if i >= anchorDumpLimit {
				break
			}
			f.logger.DebugWithFields("page anchor", map[string]interface{}{
				"text": anchor.Text,
				"href": anchor.Href,
			})
		}
	}

	return e.Extract(html, indexURL)
}

// download runs the worker pool over the links and tallies the results
func (f *Fetcher) download(links []string, outputDir string) (*Summary, error) {
	store, err := storage.NewManager(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	tracker := ui.NewProgressTrackerWithWriter(len(links), f.progressOut)
	pool := downloader.NewWorkerPool(
		f.cfg.Download.ConcurrentDownloads,
		f.client,
		store,
		tracker,
		f.logger,
	)
	pool.Start()

	summary := &Summary{
		Attempted: len(links),
		OutputDir: outputDir,
	}

	var g errgroup.Group
	g.Go(func() error {
		for result := range pool.Results() {
			if result.Success {
				summary.Succeeded++
			} else {
				summary.Failed++
				f.logger.WarnWithFields("download failed", map[string]interface{}{
					"url":   result.Job.URL,
					"error": result.Error.Error(),
				})
			}
		}
		return nil
	})

	for _, link := range links {
		pool.Submit(downloader.DownloadJob{URL: link})
	}
	pool.Stop()

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summary, nil
}

// OutputDir resolves the output directory for a query from the configured base
// directory and directory name pattern
func (f *Fetcher) OutputDir(query nexrad.Query) string {
	name := strings.NewReplacer(
		"{site}", query.Site,
		"{year}", query.Year,
		"{month}", query.Month,
		"{day}", query.Day,
	).Replace(f.cfg.Output.DirNamePattern)

	return filepath.Join(f.cfg.Output.BaseDirectory, name)
}
