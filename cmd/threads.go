package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/acs/internal/formatter"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/repositories"
	"github.com/desertthunder/acs/internal/services"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/desertthunder/acs/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ThreadsList shows one page of threads and refreshes the local cache with it.
//
// With --cached the listing is served from the cache without calling the API.
func (r *Runner) ThreadsList(ctx context.Context, cmd *cli.Command) error {
	query := services.ThreadQuery{
		Page:     cmd.Int("page"),
		PageSize: cmd.Int("size"),
		Search:   cmd.String("search"),
		Type:     cmd.String("type"),
		Status:   cmd.String("status"),
	}

	if cmd.Bool("cached") {
		return r.cachedThreads(query, cmd.Bool("json"), cmd.Bool("pretty"))
	}

	r.logger.Debug("listing threads", "page", query.Page, "search", query.Search)
	page, err := r.client.Threads.List(ctx, query)
	if err != nil {
		return err
	}

	if r.cache != nil {
		if n, err := r.cache.SaveAll(page.Data); err != nil {
			r.logger.Warn("failed to cache threads", "error", err)
		} else {
			r.logger.Debug("cached threads", "count", n)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writeThreads(page.Data)
	return r.writePlain("\nPage %d of %d (%d threads)\n", page.CurrentPage, page.Pages(), page.Total)
}

func (r *Runner) cachedThreads(q services.ThreadQuery, asJSON, pretty bool) error {
	if r.cache == nil {
		return fmt.Errorf("%w: local database not available", shared.ErrServiceUnavailable)
	}

	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = services.DefaultPage
	}
	if size <= 0 {
		size = services.DefaultPageSize
	}

	threads, total, err := r.cache.List(repositories.ThreadFilter{
		Search: q.Search,
		Type:   q.Type,
		Status: q.Status,
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return err
	}

	result := models.ThreadsPage{Data: threads, Total: total, CurrentPage: page, PageSize: size}
	if asJSON {
		return r.writeJSON(result, pretty)
	}

	r.writeThreads(threads)
	return r.writePlain("\nPage %d of %d (%d cached threads)\n", page, result.Pages(), total)
}

func (r *Runner) writeThreads(threads []models.Thread) {
	if len(threads) == 0 {
		r.writePlain("No threads found\n")
		return
	}

	for _, t := range threads {
		status := "-"
		if t.LastContent != nil {
			status = models.StatusLabel(string(t.LastContent.Status))
		}
		r.writePlain("%-24s  %-40s  %-20s  %s\n",
			t.ID, shared.Truncate(t.Title, 40), models.ContentTypeLabel(string(t.Type)), status)
	}
}

// ThreadsSummary prints thread counts by type and by status.
func (r *Runner) ThreadsSummary(ctx context.Context, cmd *cli.Command) error {
	summary, err := r.client.Threads.Summary(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Thread summary")
	r.writePlain("Total threads: %d\n", summary.TotalThreads)
	r.writePlain("\nBy type:\n")
	for _, t := range models.ContentTypes() {
		r.writePlain("  %-22s %d\n", models.ContentTypeLabel(string(t)), summary.ThreadsByType[string(t)])
	}
	r.writePlain("\nBy status:\n")
	for _, s := range []models.ContentStatus{models.ContentPending, models.ContentProcessing, models.ContentCompleted, models.ContentFailed} {
		r.writePlain("  %-22s %d\n", models.StatusLabel(string(s)), summary.StatusCounts[string(s)])
	}
	return nil
}

// ThreadsShow prints a thread and its generations in the chosen format.
func (r *Runner) ThreadsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: thread id", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	details, err := r.client.Threads.Get(ctx, id)
	if err != nil {
		return err
	}
	return formatter.Write(r.output, details, format)
}

// ThreadsExport writes threads to disk.
//
// A single id is written to --output as a file or into it as a directory.
// Several ids go through the bulk exporter, which adds a manifest.
func (r *Runner) ThreadsExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one thread id", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if len(ids) == 1 && !cmd.Bool("bulk") {
		details, err := r.client.Threads.Get(ctx, ids[0])
		if err != nil {
			return err
		}
		path, err := formatter.WriteExport(details, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.logger.Info("exported thread", "id", details.ID, "path", path)
		return r.writePlain("✓ Exported %q to %s\n", details.Title, path)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchThread:
				r.logger.Debug(update.Message)
			case tasks.ExportThread:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := r.export.BulkExport(ctx, progressCh, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.Successful, result.TotalThreads)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d threads failed to export", result.Failed, result.TotalThreads)
	}
	return nil
}

// ThreadsOpen opens a thread, or the dashboard when no id is given, in the web front-end.
func (r *Runner) ThreadsOpen(ctx context.Context, cmd *cli.Command) error {
	page, query := "/dashboard", url.Values(nil)
	if id := strings.TrimSpace(cmd.StringArg("id")); id != "" {
		page, query = "/content", url.Values{"id": {id}}
	}

	target, err := shared.PageURL(r.config.API.WebURL, page, query)
	if err != nil {
		return err
	}

	if cmd.Bool("print") {
		return r.writePlain("%s\n", target)
	}

	r.logger.Info("opening browser", "url", target)
	if err := shared.OpenBrowser(target); err != nil {
		return err
	}
	return r.writePlain("Opened %s\n", target)
}
