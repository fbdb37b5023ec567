// Package search holds the state of the catalog search page: the query results, the inline error,
// and the outcome of saving a hit to the watchlist.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

// User-facing messages.
const (
	MsgEmptyQuery   = "Please enter a movie title to search."
	MsgNoResults    = "No movies found for your query."
	MsgFetchFailed  = "Failed to fetch movies."
	MsgLoginToSave  = "You must be logged in to save a movie."
	MsgNoPoster     = "Cannot save an item with no poster."
	MsgAlreadySaved = "This movie is already in your list."
	MsgSaveFailed   = "Could not save the movie. Please try again."
)

// Catalog searches the movie catalog.
type Catalog interface {
	SearchMovies(ctx context.Context, query string) ([]models.Movie, error)
}

// Saver adds a movie to the signed-in user's watchlist.
type Saver interface {
	Save(ctx context.Context, movie models.Movie) (*models.SavedItem, error)
}

// Identifier reports the signed-in identity, or nil.
type Identifier interface {
	Current() *models.Identity
}

// State is a snapshot of the page.
type State struct {
	Query   string
	Results []models.Movie
	Loading bool
	Err     string
}

// Page is the search page. It is safe for concurrent use.
type Page struct {
	catalog Catalog
	saver   Saver
	session Identifier
	logger  *log.Logger

	mu    sync.Mutex
	state State
}

// NewPage creates a search page. A nil logger discards output.
func NewPage(catalog Catalog, saver Saver, session Identifier, logger *log.Logger) *Page {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Page{catalog: catalog, saver: saver, session: session, logger: logger}
}

// State returns a copy of the page state.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	st.Results = append([]models.Movie(nil), p.state.Results...)
	return st
}

// CanSave reports whether a user is signed in, which is when the save action is offered.
func (p *Page) CanSave() bool {
	return p.session != nil && p.session.Current() != nil
}

// Search runs query against the catalog. The previous results are cleared when the search starts
// and replaced on success; failures set the page error and are also returned.
func (p *Page) Search(ctx context.Context, query string) ([]models.Movie, error) {
	query = strings.TrimSpace(query)

	p.mu.Lock()
	p.state.Query = query
	if query == "" {
		p.state.Err = MsgEmptyQuery
		p.mu.Unlock()
		return nil, shared.ErrEmptyQuery
	}
	p.state.Loading = true
	p.state.Err = ""
	p.state.Results = nil
	p.mu.Unlock()

	results, err := p.catalog.SearchMovies(ctx, query)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Loading = false

	switch {
	case err != nil:
		p.logger.Error("catalog search failed", "query", query, "error", err)
		p.state.Err = MsgFetchFailed
		return nil, err
	case len(results) == 0:
		p.state.Err = MsgNoResults
		return nil, shared.ErrNoResults
	}

	p.state.Results = results
	return append([]models.Movie(nil), results...), nil
}

// Save adds movie to the watchlist and returns the message to show the user. The error is nil only
// when the movie was saved.
func (p *Page) Save(ctx context.Context, movie models.Movie) (string, error) {
	if !p.CanSave() {
		return MsgLoginToSave, shared.ErrNotAuthenticated
	}
	if movie.PosterPath == "" {
		return MsgNoPoster, shared.ErrNoPoster
	}

	item, err := p.saver.Save(ctx, movie)
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		return MsgAlreadySaved, err
	case err != nil:
		p.logger.Error("failed to save movie", "id", movie.ID, "title", movie.Title, "error", err)
		return MsgSaveFailed, fmt.Errorf("%w: %w", shared.ErrSaveFailed, err)
	}

	p.logger.Info("saved movie", "id", item.ID, "title", movie.Title)
	return SavedMessage(movie.Title), nil
}

// SavedMessage is the confirmation shown after saving title.
func SavedMessage(title string) string {
	return fmt.Sprintf("'%s' was saved to your list!", title)
}
