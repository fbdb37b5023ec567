package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/movli/internal/formatter"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/desertthunder/movli/internal/tasks"
	"github.com/desertthunder/movli/internal/watchlist"
	"github.com/urfave/cli/v3"
)

// WatchlistList prints the watchlist with unwatched movies first.
func (r *Runner) WatchlistList(ctx context.Context, cmd *cli.Command) error {
	c, err := r.controller(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	items := c.SortedItems()
	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	if len(items) == 0 {
		return r.writePlain("Your watchlist is empty. Try 'movli search <title> --save 1'\n")
	}

	rows := make([][]string, 0, len(items))
	for i, item := range items {
		rows = append(rows, []string{strconv.Itoa(i + 1), item.ID, item.Title, item.Year, shared.WatchedString(item.Watched)})
	}
	return r.writeTable([]string{"#", "ID", "Title", "Year", "Status"}, rows, 1)
}

// WatchlistToggle flips the watched flag of the movie named by ID or list position.
func (r *Runner) WatchlistToggle(ctx context.Context, cmd *cli.Command) error {
	c, err := r.controller(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	item, err := resolveItem(c.SortedItems(), cmd.StringArg("item"))
	if err != nil {
		return err
	}

	if err := c.ToggleWatched(ctx, item.ID); err != nil {
		r.writePlain("✗ %s\n", watchlist.MsgUpdateFailed)
		return err
	}
	return r.writePlain("✓ %s marked %s\n", item.Title, strings.ToLower(shared.WatchedString(!item.Watched)))
}

// WatchlistDelete removes the movie named by ID or list position.
func (r *Runner) WatchlistDelete(ctx context.Context, cmd *cli.Command) error {
	c, err := r.controller(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	item, err := resolveItem(c.SortedItems(), cmd.StringArg("item"))
	if err != nil {
		return err
	}

	if err := c.DeleteItem(ctx, item.ID); err != nil {
		r.writePlain("✗ %s\n", watchlist.MsgDeleteFailed)
		return err
	}
	return r.writePlain("✓ Removed %s from your watchlist\n", item.Title)
}

// WatchlistImport searches the catalog for every title in a file (or stdin with "-") and saves the matches.
func (r *Runner) WatchlistImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: file (use - for stdin)", shared.ErrMissingArgument)
	}

	identity, err := r.requireIdentity()
	if err != nil {
		return err
	}
	catalog, err := r.catalogService()
	if err != nil {
		return err
	}
	store, err := r.watchlistStore(ctx)
	if err != nil {
		return err
	}

	entries, err := r.readTitles(path)
	if err != nil {
		return err
	}

	r.logger.Info("importing titles", "user", identity.UID, "count", len(entries), "dry_run", cmd.Bool("dry-run"))

	asJSON := cmd.Bool("json")
	opts := tasks.ImportOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float64("rate"),
		DryRun:     cmd.Bool("dry-run"),
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if asJSON {
				continue
			}
			switch update.Phase {
			case tasks.ReadTitles, tasks.FetchWatchlist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SearchTitles:
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
			case tasks.SaveMovies:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	engine := tasks.NewImportEngine(catalog, store, shared.WithLogger(r.logger, "component", "import"))
	result, err := engine.Import(ctx, progressCh, entries, opts)
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	if asJSON {
		if werr := r.writeJSON(importOutput(result), cmd.Bool("pretty")); werr != nil {
			return werr
		}
		return err
	}

	r.writePlainln("═══════════════════════════════════════")
	if opts.DryRun {
		r.writePlain("Import Preview (dry run)\n")
	} else {
		r.writePlain("Import Complete!\n")
	}
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Titles:     %d\n", result.Total)
	if opts.DryRun {
		r.writePlain("Matched:    %d\n", result.Matched)
	} else {
		r.writePlain("Saved:      %d\n", result.Saved)
	}
	r.writePlain("Duplicates: %d\n", result.Duplicates)
	r.writePlain("Not found:  %d\n", result.NotFound)
	r.writePlain("Failed:     %d\n", result.Failed)

	var missing []string
	for _, res := range result.Results {
		if res.Outcome == tasks.OutcomeNotFound || res.Outcome == tasks.OutcomeFailed {
			missing = append(missing, res.Job.Label())
		}
	}
	if len(missing) > 0 {
		r.writePlainln("Not imported:")
		for _, title := range missing {
			r.writePlain("  - %s\n", title)
		}
	}
	return err
}

// WatchlistExport writes the watchlist to disk in the requested format.
func (r *Runner) WatchlistExport(ctx context.Context, cmd *cli.Command) error {
	identity, err := r.requireIdentity()
	if err != nil {
		return err
	}
	store, err := r.watchlistStore(ctx)
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("📤 %s\n", update.Message)
		}
	}()

	result, err := tasks.Export(ctx, progressCh, store, tasks.ExportOpts{
		Format:  cmd.String("format"),
		Output:  cmd.String("output"),
		Owner:   identity.Label(),
		Posters: cmd.Bool("posters"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	for _, warning := range result.Warnings {
		r.logger.Warn(warning)
	}

	r.writePlain("✓ Exported %d movies (%d watched)\n", len(result.Export.Items), result.Export.Watched())
	for _, file := range result.Files {
		r.writePlain("  %s\n", file)
	}
	return nil
}

func (r *Runner) requireIdentity() (*models.Identity, error) {
	provider, err := r.identityProvider()
	if err != nil {
		return nil, err
	}
	identity := provider.Current()
	if identity == nil {
		return nil, fmt.Errorf("%w: run 'movli auth login' first", shared.ErrNotAuthenticated)
	}
	return identity, nil
}

func (r *Runner) readTitles(path string) ([]formatter.TitleEntry, error) {
	var src io.Reader = r.input
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open titles file: %w", err)
		}
		defer file.Close()
		src = file
	}

	entries, err := formatter.ReadTitles(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read titles: %w", err)
	}
	return entries, nil
}

// resolveItem finds an item by ID, or by its 1-based position in the sorted list.
func resolveItem(items []models.SavedItem, ref string) (models.SavedItem, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.SavedItem{}, fmt.Errorf("%w: movie ID or list number", shared.ErrMissingArgument)
	}

	for _, item := range items {
		if item.ID == ref {
			return item, nil
		}
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return models.SavedItem{}, fmt.Errorf("%w: position %d is outside 1-%d", shared.ErrInvalidArgument, n, len(items))
		}
		return items[n-1], nil
	}

	return models.SavedItem{}, fmt.Errorf("%w: %s", shared.ErrUnknownItem, ref)
}

type importRow struct {
	Title   string `json:"title"`
	Year    string `json:"year,omitempty"`
	Outcome string `json:"outcome"`
	ID      string `json:"id,omitempty"`
	Match   string `json:"match,omitempty"`
	Error   string `json:"error,omitempty"`
}

type importSummary struct {
	Total      int         `json:"total"`
	Saved      int         `json:"saved"`
	Matched    int         `json:"matched"`
	Duplicates int         `json:"duplicates"`
	NotFound   int         `json:"notFound"`
	Failed     int         `json:"failed"`
	Results    []importRow `json:"results"`
}

func importOutput(result *tasks.ImportResult) importSummary {
	out := importSummary{
		Total:      result.Total,
		Saved:      result.Saved,
		Matched:    result.Matched,
		Duplicates: result.Duplicates,
		NotFound:   result.NotFound,
		Failed:     result.Failed,
		Results:    make([]importRow, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		row := importRow{Title: res.Job.Entry.Title, Year: res.Job.Entry.Year, Outcome: string(res.Outcome)}
		if res.Movie != nil {
			row.ID = res.Movie.SavedID()
			row.Match = res.Movie.Title
		}
		if res.Item != nil {
			row.ID = res.Item.ID
		}
		if res.Error != nil {
			row.Error = res.Error.Error()
		}
		out.Results = append(out.Results, row)
	}
	return out
}
