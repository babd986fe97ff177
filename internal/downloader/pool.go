package downloader

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"nexget/pkg/logger"
	"nexget/pkg/storage"
)

// DownloadJob represents a single file to download
type DownloadJob struct {
	URL string
}

// DownloadResult represents the terminal outcome of one download attempt.
// Each job is attempted exactly once; there are no retries.
type DownloadResult struct {
	Job      DownloadJob
	Filename string
	Success  bool
	Error    error
	Duration time.Duration
	Size     int
}

// FileFetcher downloads a file's raw bytes
type FileFetcher interface {
	DownloadFile(url string) ([]byte, error)
}

// FileStore persists downloaded bytes under a filename
type FileStore interface {
	SaveFile(r io.Reader, filename string) error
}

// ProgressSink is notified once per successful download
type ProgressSink interface {
	RecordCompletion(filename string)
}

// WorkerPool downloads files with bounded concurrency. The fixed worker count
// is the admission gate: at most numWorkers requests are in flight at once,
// and a stalled or failed download only ever occupies its own worker.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	client      FileFetcher
	store       FileStore
	progress    ProgressSink
	logger      logger.Logger
}

// NewWorkerPool creates a download worker pool. The progress sink may be nil.
func NewWorkerPool(
	numWorkers int,
	client FileFetcher,
	store FileStore,
	progress ProgressSink,
	log logger.Logger,
) *WorkerPool {
	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		client:      client,
		store:       store,
		progress:    progress,
		logger:      log,
	}
}

// Start launches all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop signals that no more jobs will be submitted, waits for the remaining
// jobs to drain, then closes the result channel
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)

	wp.logger.Debug("worker pool stopped")
}

// Submit queues a download job. Must not be called after Stop.
func (wp *WorkerPool) Submit(job DownloadJob) {
	wp.jobQueue <- job
}

// Results returns the channel download outcomes arrive on. Outcomes are in
// completion order, not submission order.
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		wp.resultQueue <- wp.processJob(job, id)
	}
}

// processJob downloads one file and writes it to the store
func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{
		Job:      job,
		Filename: storage.FilenameForURL(job.URL),
	}

	data, err := wp.client.DownloadFile(job.URL)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("failed to download file", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"error":     err.Error(),
		})

		return result
	}

	result.Size = len(data)

	if err := wp.store.SaveFile(bytes.NewReader(data), result.Filename); err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("failed to save file", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"filename":  result.Filename,
			"error":     err.Error(),
		})

		return result
	}

	// Progress advances on success only, before the result is emitted
	if wp.progress != nil {
		wp.progress.RecordCompletion(result.Filename)
	}

	result.Success = true
	result.Duration = time.Since(start)

	wp.logger.DebugWithFields("download completed", map[string]interface{}{
		"worker_id": workerID,
		"url":       job.URL,
		"filename":  result.Filename,
		"size":      result.Size,
		"duration":  result.Duration,
	})

	return result
}
