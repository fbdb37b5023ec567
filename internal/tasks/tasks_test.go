package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/movli/internal/formatter"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
	tu "github.com/desertthunder/movli/internal/testing"
)

var fastImport = ImportOpts{NumWorkers: 2, RateLimit: 1000}

func entries(titles ...string) []formatter.TitleEntry {
	out := make([]formatter.TitleEntry, len(titles))
	for i, title := range titles {
		out[i] = formatter.TitleEntry{Title: title}
	}
	return out
}

func newCatalog() *tu.MockCatalog {
	return &tu.MockCatalog{Results: map[string][]models.Movie{
		"Alien": {
			{ID: 1, Title: "Alien", ReleaseDate: "1979-05-25", PosterPath: "/alien.jpg"},
		},
		"Heat": {
			{ID: 2, Title: "Heat", ReleaseDate: "1986-01-01"},
			{ID: 3, Title: "Heat", ReleaseDate: "1995-12-15", PosterPath: "/heat95.jpg"},
			{ID: 4, Title: "Heat", ReleaseDate: "2013-01-01", PosterPath: "/heat13.jpg"},
		},
		"Untitled": {
			{ID: 5, Title: "Untitled", ReleaseDate: "2001-01-01"},
		},
	}}
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("Saves First Match With Poster", func(t *testing.T) {
		store := &tu.MockStore{}
		engine := NewImportEngine(newCatalog(), store, nil)

		result, err := engine.Import(ctx, nil, entries("Alien", "Heat"), fastImport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Total != 2 || result.Saved != 2 {
			t.Fatalf("expected 2 saved, got %+v", result)
		}
		if got := result.Results[1].Item.ID; got != "tmdb-3" {
			t.Errorf("expected first result with a poster, got %s", got)
		}
		if result.Results[0].Job.Entry.Title != "Alien" {
			t.Errorf("expected results in input order, got %+v", result.Results)
		}
	})

	t.Run("Prefers Matching Year", func(t *testing.T) {
		store := &tu.MockStore{}
		engine := NewImportEngine(newCatalog(), store, nil)

		input := []formatter.TitleEntry{{Title: "Heat", Year: "2013"}}
		result, err := engine.Import(ctx, nil, input, fastImport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := result.Results[0].Item.ID; got != "tmdb-4" {
			t.Errorf("expected the 2013 release, got %s", got)
		}
	})

	t.Run("Duplicates", func(t *testing.T) {
		t.Run("repeated in input", func(t *testing.T) {
			catalog := newCatalog()
			engine := NewImportEngine(catalog, &tu.MockStore{}, nil)

			result, err := engine.Import(ctx, nil, entries("Alien", "  ALIEN ", "Heat"), fastImport)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Saved != 2 || result.Duplicates != 1 {
				t.Errorf("expected 2 saved and 1 duplicate, got %+v", result)
			}
			if result.Results[1].Outcome != OutcomeDuplicate {
				t.Errorf("expected second entry to be a duplicate, got %s", result.Results[1].Outcome)
			}
			if catalog.Searches() != 2 {
				t.Errorf("expected 2 searches, got %d", catalog.Searches())
			}
		})

		t.Run("already on watchlist", func(t *testing.T) {
			catalog := newCatalog()
			store := &tu.MockStore{Items: []models.SavedItem{{ID: "tmdb-1", Title: "Alien", Year: "1979"}}}
			engine := NewImportEngine(catalog, store, nil)

			result, err := engine.Import(ctx, nil, entries("Alien"), fastImport)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Duplicates != 1 || catalog.Searches() != 0 {
				t.Errorf("expected a duplicate without search, got %+v after %d searches", result, catalog.Searches())
			}
		})

		t.Run("same movie under another title", func(t *testing.T) {
			catalog := newCatalog()
			catalog.Results["Alien (director's cut)"] = catalog.Results["Alien"]
			store := &tu.MockStore{}
			engine := NewImportEngine(catalog, store, nil)

			result, err := engine.Import(ctx, nil, entries("Alien", "Alien (director's cut)"), ImportOpts{NumWorkers: 1, RateLimit: 1000})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Saved != 1 || result.Duplicates != 1 || len(store.Saved) != 1 {
				t.Errorf("expected one save and one duplicate, got %+v", result)
			}
		})

		t.Run("store conflict", func(t *testing.T) {
			store := &tu.MockStore{SaveErr: shared.ErrDuplicate}
			engine := NewImportEngine(newCatalog(), store, nil)

			result, err := engine.Import(ctx, nil, entries("Alien"), fastImport)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Results[0].Outcome != OutcomeDuplicate {
				t.Errorf("expected duplicate, got %s", result.Results[0].Outcome)
			}
		})
	})

	t.Run("Not Found", func(t *testing.T) {
		engine := NewImportEngine(newCatalog(), &tu.MockStore{}, nil)

		result, err := engine.Import(ctx, nil, entries("Untitled", "Nothing Here"), fastImport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.NotFound != 2 {
			t.Errorf("expected 2 not found, got %+v", result)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		t.Run("search error", func(t *testing.T) {
			catalog := newCatalog()
			catalog.Err = errors.New("boom")
			engine := NewImportEngine(catalog, &tu.MockStore{}, nil)

			result, err := engine.Import(ctx, nil, entries("Alien"), fastImport)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res := result.Results[0]; res.Outcome != OutcomeFailed || !errors.Is(res.Error, shared.ErrFetchFailed) {
				t.Errorf("expected fetch failure, got %+v", res)
			}
		})

		t.Run("save error", func(t *testing.T) {
			store := &tu.MockStore{SaveErr: shared.ErrTransport}
			engine := NewImportEngine(newCatalog(), store, nil)

			result, err := engine.Import(ctx, nil, entries("Alien"), fastImport)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res := result.Results[0]; !errors.Is(res.Error, shared.ErrSaveFailed) || !errors.Is(res.Error, shared.ErrTransport) {
				t.Errorf("expected wrapped save failure, got %v", res.Error)
			}
		})

		t.Run("blank title", func(t *testing.T) {
			engine := NewImportEngine(newCatalog(), &tu.MockStore{}, nil)

			input := []formatter.TitleEntry{{Title: "  ", Year: "1999"}}
			result, err := engine.Import(ctx, nil, input, fastImport)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !errors.Is(result.Results[0].Error, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", result.Results[0].Error)
			}
		})

		t.Run("watchlist fetch error", func(t *testing.T) {
			store := &tu.MockStore{FetchErr: shared.ErrTransport}
			engine := NewImportEngine(newCatalog(), store, nil)

			if _, err := engine.Import(ctx, nil, entries("Alien"), fastImport); !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
		})

		t.Run("no titles", func(t *testing.T) {
			engine := NewImportEngine(newCatalog(), &tu.MockStore{}, nil)
			if _, err := engine.Import(ctx, nil, nil, fastImport); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("missing collaborators", func(t *testing.T) {
			engine := NewImportEngine(nil, nil, nil)
			if _, err := engine.Import(ctx, nil, entries("Alien"), fastImport); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("cancelled", func(t *testing.T) {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			engine := NewImportEngine(newCatalog(), &tu.MockStore{}, nil)

			result, err := engine.Import(cctx, nil, entries("Alien", "Heat"), fastImport)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
			if result.Failed != 2 {
				t.Errorf("expected both titles failed, got %+v", result)
			}
		})
	})

	t.Run("Dry Run", func(t *testing.T) {
		store := &tu.MockStore{}
		engine := NewImportEngine(newCatalog(), store, nil)

		opts := fastImport
		opts.DryRun = true
		result, err := engine.Import(ctx, nil, entries("Alien", "Heat"), opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Matched != 2 || len(store.Saved) != 0 {
			t.Errorf("expected 2 matches and no saves, got %+v", result)
		}
		if result.Results[0].Movie == nil || result.Results[0].Movie.ID != 1 {
			t.Errorf("expected matched movie, got %+v", result.Results[0])
		}
	})

	t.Run("Progress", func(t *testing.T) {
		t.Run("reports phases", func(t *testing.T) {
			progress := make(chan ProgressUpdate, 32)
			engine := NewImportEngine(newCatalog(), &tu.MockStore{}, nil)

			if _, err := engine.Import(ctx, progress, entries("Alien", "Heat"), fastImport); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			close(progress)

			phases := map[Phase]int{}
			for update := range progress {
				phases[update.Phase]++
			}
			if phases[FetchWatchlist] != 1 || phases[ReadTitles] != 1 || phases[SearchTitles] != 2 || phases[SaveMovies] != 2 {
				t.Errorf("unexpected phase counts %v", phases)
			}
		})

		t.Run("never blocks", func(t *testing.T) {
			progress := make(chan ProgressUpdate)
			engine := NewImportEngine(newCatalog(), &tu.MockStore{}, nil)

			if _, err := engine.Import(ctx, progress, entries("Alien", "Heat"), fastImport); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	})
}

func TestPickMatch(t *testing.T) {
	movies := newCatalog().Results["Heat"]

	tc := []struct {
		name string
		year string
		want int64
		ok   bool
	}{
		{name: "no year", want: 3, ok: true},
		{name: "matching year", year: "2013", want: 4, ok: true},
		{name: "year without poster", year: "1986", want: 3, ok: true},
		{name: "unknown year", year: "1950", want: 3, ok: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickMatch(movies, tt.year)
			if ok != tt.ok || got.ID != tt.want {
				t.Errorf("expected %d, got %d (ok=%v)", tt.want, got.ID, ok)
			}
		})
	}

	if _, ok := PickMatch(nil, ""); ok {
		t.Error("expected no match for empty results")
	}
}

func TestPhaseString(t *testing.T) {
	tc := map[Phase]string{
		ReadTitles:      "read_titles",
		FetchWatchlist:  "fetch_watchlist",
		SearchTitles:    "search_titles",
		SaveMovies:      "save_movies",
		ExportWatchlist: "export_watchlist",
		Phase(99):       "",
	}
	for phase, want := range tc {
		if got := phase.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
