package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/acs/internal/formatter"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk thread exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format
	OutputDir  string           // Base output directory (default: acs_export_{epoch})
	NumWorkers int              // Concurrent writers (default: 4, max: 8)
	RateLimit  float64          // Thread fetches per second (default: 5)
}

// ThreadExportResult is the outcome for one thread.
type ThreadExportResult struct {
	ThreadID string `json:"thread_id"`
	Title    string `json:"title,omitempty"`
	File     string `json:"file,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export and is written as its manifest.
type BulkExportResult struct {
	Format          formatter.Format     `json:"format"`
	OutputDirectory string               `json:"output_directory"`
	TotalThreads    int                  `json:"total_threads"`
	Successful      int                  `json:"successful"`
	Failed          int                  `json:"failed"`
	Results         []ThreadExportResult `json:"results"`
	ManifestPath    string               `json:"-"`
}

type exportJob struct {
	details *models.ThreadDetails
}

// ExportEngine writes threads to disk.
type ExportEngine struct {
	threads services.ThreadService
}

func NewExportEngine(threads services.ThreadService) *ExportEngine {
	return &ExportEngine{threads: threads}
}

// BulkExport fetches each thread at a bounded rate and writes it with a pool of workers.
//
// Failures are recorded per thread and do not stop the export. A manifest
// named export_manifest.json is written to the output directory.
func (e *ExportEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.threads == nil {
		return nil, fmt.Errorf("%w: thread service not initialized", shared.ErrServiceUnavailable)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: thread ids", shared.ErrMissingArgument)
	}

	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("acs_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	opts.NumWorkers = min(opts.NumWorkers, 8)
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		TotalThreads:    len(ids),
		Results:         make([]ThreadExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(ids))
	results := make(chan ThreadExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			sendProgress(prog, fetchThreadUpdate(i+1, len(ids), id))
			details, err := e.threads.Get(ctx, id)
			if err != nil {
				results <- ThreadExportResult{ThreadID: id, Error: fmt.Sprintf("failed to fetch thread: %v", err)}
				continue
			}
			jobs <- exportJob{details: details}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.Title, res.File))
		} else {
			result.Failed++
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res.ThreadID, errors.New(res.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted: %w", err)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker writes threads from the jobs channel until it is drained.
func (e *ExportEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- ThreadExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := ThreadExportResult{ThreadID: job.details.ID, Title: job.details.Title}
		path, err := formatter.WriteExport(job.details, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = fmt.Sprintf("%s export failed: %v", opts.Format, err)
		} else {
			res.File = path
			res.Success = true
		}
		results <- res
	}
}
