package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/formatter"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/services"
	"github.com/desertthunder/movli/internal/shared"
	"golang.org/x/time/rate"
)

// Catalog searches the movie catalog.
type Catalog interface {
	SearchMovies(ctx context.Context, query string) ([]models.Movie, error)
}

// Lister reads the signed-in user's watchlist.
type Lister interface {
	FetchAll(ctx context.Context) ([]models.SavedItem, error)
}

// Store reads and adds to the signed-in user's watchlist.
type Store interface {
	Lister
	Save(ctx context.Context, movie models.Movie) (*models.SavedItem, error)
}

// Outcome is the result of importing one title.
type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeMatched   Outcome = "matched" // dry runs only
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNotFound  Outcome = "not found"
	OutcomeFailed    Outcome = "failed"
)

// TitleJob is one line of an import, with its position in the input.
type TitleJob struct {
	Index int
	Entry formatter.TitleEntry
}

// Label renders the title with its year when known.
func (j TitleJob) Label() string {
	if j.Entry.Year == "" {
		return j.Entry.Title
	}
	return fmt.Sprintf("%s (%s)", j.Entry.Title, j.Entry.Year)
}

// TitleResult reports what happened to one title.
type TitleResult struct {
	Job     TitleJob
	Outcome Outcome
	Movie   *models.Movie     // Catalog match (nil when not found)
	Item    *models.SavedItem // Saved item (nil unless saved)
	Error   error             // Set when Outcome is OutcomeFailed
}

// ImportResult contains per-title results in input order plus totals.
type ImportResult struct {
	Total      int
	Saved      int
	Matched    int
	Duplicates int
	NotFound   int
	Failed     int
	Results    []TitleResult
}

// ImportOpts contains configuration for bulk imports.
type ImportOpts struct {
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
	RateLimit  float64 // Catalog searches per second (default: 4)
	DryRun     bool    // Search only, do not save
}

// ImportEngine adds many titles to the watchlist by searching the catalog for each.
type ImportEngine struct {
	catalog Catalog
	store   Store
	logger  *log.Logger

	mu      sync.Mutex
	claimed map[string]bool
}

// NewImportEngine creates an [ImportEngine]. A nil logger discards output.
func NewImportEngine(catalog Catalog, store Store, logger *log.Logger) *ImportEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ImportEngine{catalog: catalog, store: store, logger: logger}
}

// Import searches and saves each entry using a rate-limited worker pool.
//
// Repeated titles and titles already on the watchlist are reported as duplicates without a search.
// When ctx is cancelled, titles not yet processed are reported as failed and the context error is returned
// alongside the partial result.
func (e *ImportEngine) Import(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	entries []formatter.TitleEntry,
	opts ImportOpts,
) (*ImportResult, error) {
	if e.catalog == nil || e.store == nil {
		return nil, fmt.Errorf("%w: catalog and store are required", shared.ErrServiceUnavailable)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no titles to import", shared.ErrInvalidInput)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 4.0
	}

	existing, err := e.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watchlist: %w", err)
	}
	sendProgress(progress, fetchWatchlistUpdate(len(existing)))

	e.mu.Lock()
	e.claimed = make(map[string]bool, len(existing))
	for _, item := range existing {
		e.claimed[item.ID] = true
	}
	e.mu.Unlock()

	results := make([]TitleResult, len(entries))
	done := make([]bool, len(entries))
	queue := e.plan(entries, existing, results, done)
	sendProgress(progress, readTitlesUpdate(len(queue), len(entries)))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan TitleJob, len(queue))
	out := make(chan TitleResult, len(queue))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.importWorker(ctx, &wg, limiter, jobs, out, progress, len(entries), opts)
	}

	go func() {
		defer close(jobs)
		for _, job := range queue {
			select {
			case <-ctx.Done():
				return
			case jobs <- job:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	completed := 0
	for res := range out {
		completed++
		results[res.Job.Index] = res
		done[res.Job.Index] = true
		sendProgress(progress, titleResultUpdate(completed, len(queue), res))
	}

	ctxErr := ctx.Err()
	for i, ok := range done {
		if !ok {
			results[i] = TitleResult{
				Job:     TitleJob{Index: i, Entry: entries[i]},
				Outcome: OutcomeFailed,
				Error:   ctxErr,
			}
		}
	}

	result := tally(results)
	e.logger.Info("import finished",
		"total", result.Total, "saved", result.Saved, "duplicates", result.Duplicates,
		"not_found", result.NotFound, "failed", result.Failed, "dry_run", opts.DryRun)

	if ctxErr != nil {
		return result, fmt.Errorf("import interrupted: %w", ctxErr)
	}
	return result, nil
}

// plan resolves repeated and already-saved titles and returns the entries that need a search.
func (e *ImportEngine) plan(entries []formatter.TitleEntry, existing []models.SavedItem, results []TitleResult, done []bool) []TitleJob {
	saved := make(map[string]bool, len(existing)*2)
	for _, item := range existing {
		saved[shared.NormalizeTitle(item.Title, item.Year)] = true
		saved[shared.NormalizeTitle(item.Title, "")] = true
	}

	seen := make(map[string]bool, len(entries))
	queue := make([]TitleJob, 0, len(entries))
	for i, entry := range entries {
		job := TitleJob{Index: i, Entry: entry}
		key := shared.NormalizeTitle(entry.Title, entry.Year)

		switch {
		case key == "" || key[0] == '|':
			results[i] = TitleResult{Job: job, Outcome: OutcomeFailed, Error: fmt.Errorf("%w: empty title", shared.ErrInvalidInput)}
			done[i] = true
		case seen[key] || saved[key]:
			results[i] = TitleResult{Job: job, Outcome: OutcomeDuplicate}
			done[i] = true
		default:
			seen[key] = true
			queue = append(queue, job)
		}
	}
	return queue
}

// importWorker processes titles from the jobs channel.
func (e *ImportEngine) importWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan TitleJob,
	out chan<- TitleResult,
	progress chan<- ProgressUpdate,
	total int,
	opts ImportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sendProgress(progress, searchTitleUpdate(job.Index+1, total, job))
		out <- e.importTitle(ctx, limiter, job, opts)
	}
}

// importTitle searches for one title and saves the best match.
func (e *ImportEngine) importTitle(ctx context.Context, limiter *rate.Limiter, job TitleJob, opts ImportOpts) TitleResult {
	res := TitleResult{Job: job}
	failed := func(err error) TitleResult {
		res.Outcome, res.Error = OutcomeFailed, err
		e.logger.Warn("import failed", "title", job.Label(), "error", err)
		return res
	}

	if err := limiter.Wait(ctx); err != nil {
		return failed(err)
	}

	movies, err := e.catalog.SearchMovies(ctx, job.Entry.Title)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", shared.ErrFetchFailed, err))
	}

	movie, ok := PickMatch(movies, job.Entry.Year)
	if !ok {
		res.Outcome = OutcomeNotFound
		e.logger.Debug("no match", "title", job.Label(), "results", len(movies))
		return res
	}
	res.Movie = &movie

	if !e.claim(movie.SavedID()) {
		res.Outcome = OutcomeDuplicate
		return res
	}

	if opts.DryRun {
		res.Outcome = OutcomeMatched
		return res
	}

	item, err := e.store.Save(ctx, movie)
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		res.Outcome = OutcomeDuplicate
		return res
	case err != nil:
		return failed(fmt.Errorf("%w: %w", shared.ErrSaveFailed, err))
	}

	res.Outcome, res.Item = OutcomeSaved, item
	e.logger.Debug("saved", "title", item.Title, "id", item.ID)
	return res
}

// claim marks a saved id as taken by this import and reports whether it was free.
func (e *ImportEngine) claim(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.claimed[id] {
		return false
	}
	e.claimed[id] = true
	return true
}

// PickMatch returns the first result with a poster, preferring one released in year.
func PickMatch(movies []models.Movie, year string) (models.Movie, bool) {
	if year != "" {
		for _, m := range movies {
			if m.PosterPath != "" && m.Year() == year {
				return m, true
			}
		}
	}
	return services.FirstWithPoster(movies)
}

func tally(results []TitleResult) *ImportResult {
	r := &ImportResult{Total: len(results), Results: results}
	for _, res := range results {
		switch res.Outcome {
		case OutcomeSaved:
			r.Saved++
		case OutcomeMatched:
			r.Matched++
		case OutcomeDuplicate:
			r.Duplicates++
		case OutcomeNotFound:
			r.NotFound++
		default:
			r.Failed++
		}
	}
	return r
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
