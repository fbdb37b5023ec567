package tasks

import (
	"fmt"

	"github.com/desertthunder/movli/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ReadTitles Phase = iota
	FetchWatchlist
	SearchTitles
	SaveMovies
	ExportWatchlist
)

func (p Phase) String() string {
	switch p {
	case ReadTitles:
		return "read_titles"
	case FetchWatchlist:
		return "fetch_watchlist"
	case SearchTitles:
		return "search_titles"
	case SaveMovies:
		return "save_movies"
	case ExportWatchlist:
		return "export_watchlist"
	default:
		return ""
	}
}

func readTitlesUpdate(unique, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadTitles,
		Step:    unique,
		Total:   total,
		Message: fmt.Sprintf("Read %d titles (%d unique)", total, unique),
	}
}

func fetchWatchlistUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchWatchlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Watchlist has %d movies", count),
	}
}

func searchTitleUpdate(step, total int, entry TitleJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTitles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Searching: %s", step, total, entry.Label()),
	}
}

func titleResultUpdate(step, total int, res TitleResult) ProgressUpdate {
	var msg string
	switch res.Outcome {
	case OutcomeSaved:
		msg = fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Item.Title)
	case OutcomeFailed:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Job.Label(), res.Error)
	default:
		msg = fmt.Sprintf("[%d/%d] - %s (%s)", step, total, res.Job.Label(), res.Outcome)
	}
	return ProgressUpdate{
		Phase:   SaveMovies,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func exportingUpdate(format string, items []models.SavedItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportWatchlist,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Exporting %d movies as %s...", len(items), format),
	}
}

func exportCompletedUpdate(files []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportWatchlist,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("✓ Export complete (%d files)", len(files)),
		Data:    files,
	}
}
