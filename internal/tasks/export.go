package tasks

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/movli/internal/formatter"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/desertthunder/movli/internal/watchlist"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// ExportOpts contains configuration for watchlist exports.
type ExportOpts struct {
	Format  string // Export format: json, csv, markdown, txt (default: json)
	Output  string // File path, CSV base path, or Markdown directory
	Owner   string // Label recorded in the export
	Posters bool   // Download posters next to the Markdown file
}

// ExportResult contains the export snapshot and the files written.
type ExportResult struct {
	Export   *formatter.WatchlistExport
	Files    []string
	Warnings []string
}

// BuildExport fetches the watchlist and returns it in display order.
func BuildExport(ctx context.Context, store Lister, owner string) (*formatter.WatchlistExport, error) {
	items, err := store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watchlist: %w", err)
	}
	return &formatter.WatchlistExport{
		Owner:      owner,
		ExportedAt: time.Now().UTC(),
		Items:      watchlist.SortItems(items),
	}, nil
}

// Export writes the watchlist in opts.Format.
func Export(ctx context.Context, progress chan<- ProgressUpdate, store Lister, opts ExportOpts) (*ExportResult, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "":
		format = FormatJSON
	case "md":
		format = FormatMarkdown
	case "text":
		format = FormatText
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (use json, csv, markdown or txt)", shared.ErrInvalidFlag, opts.Format)
	}

	export, err := BuildExport(ctx, store, opts.Owner)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, exportingUpdate(format, export.Items))

	result := &ExportResult{Export: export}
	switch format {
	case FormatCSV:
		csvRes, err := formatter.WriteCSVExport(export, opts.Output)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		result.Files = []string{csvRes.MoviesFile, csvRes.MetadataFile}

	case FormatMarkdown:
		mdRes, err := formatter.WriteMarkdownExport(ctx, export, opts.Output, opts.Posters)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		result.Files = mdRes.Files
		result.Warnings = mdRes.Warnings

	case FormatText:
		path, err := formatter.WriteTextExport(export, opts.Output)
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		result.Files = []string{path}

	default:
		path := opts.Output
		if path == "" {
			path = "watchlist.json"
		}
		data, err := shared.MarshalJSON(export, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		result.Files = []string{path}
	}

	sendProgress(progress, exportCompletedUpdate(result.Files))
	return result, nil
}
