// Remote watchlist store client
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const moviesPath = "/api/movies"

// SaveRequest is the body of a save call: the catalog movie in its own shape.
type SaveRequest struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path" validate:"required"`
}

// HTTPStore implements the watchlist store contract over the backend's REST API.
//
// Every call passes through a circuit breaker. Not-found, duplicate and authentication failures are
// answers, not outages, and do not count towards tripping it.
type HTTPStore struct {
	api     *APIService
	breaker *gobreaker.CircuitBreaker[*APIResponse]
	logger  *log.Logger
}

// NewHTTPStore creates an [HTTPStore] on top of api.
//
// api's HTTP client is expected to authenticate requests, see [NewAuthenticatedClient].
func NewHTTPStore(api *APIService, cfg shared.BackendConfig, logger *log.Logger) *HTTPStore {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	s := &HTTPStore{api: api, logger: logger}
	s.breaker = gobreaker.NewCircuitBreaker[*APIResponse](gobreaker.Settings{
		Name:        "watchlist-store",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, shared.ErrNotFound) ||
				errors.Is(err, shared.ErrDuplicate) ||
				errors.Is(err, shared.ErrNotAuthenticated)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// NewAuthenticatedClient returns an HTTP client that attaches a bearer token from ts and applies timeout.
func NewAuthenticatedClient(ctx context.Context, ts oauth2.TokenSource, cfg shared.BackendConfig) *http.Client {
	if ts == nil {
		return &http.Client{Timeout: cfg.Timeout()}
	}
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = cfg.Timeout()
	return client
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (s *HTTPStore) BreakerState() string {
	return s.breaker.State().String()
}

// FetchAll returns the user's saved movies in store order.
func (s *HTTPStore) FetchAll(ctx context.Context) ([]models.SavedItem, error) {
	resp, err := s.execute("fetch", func() (*APIResponse, error) {
		return s.api.Get(ctx, moviesPath)
	})
	if err != nil {
		return nil, err
	}

	var items []models.SavedItem
	if err := resp.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	return items, nil
}

// UpdateByID applies update to the saved movie id.
func (s *HTTPStore) UpdateByID(ctx context.Context, id string, update models.ItemUpdate) error {
	_, err := s.execute("update", func() (*APIResponse, error) {
		return s.api.Put(ctx, itemPath(id), update)
	})
	return err
}

// DeleteByID removes the saved movie id.
func (s *HTTPStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.execute("delete", func() (*APIResponse, error) {
		return s.api.Delete(ctx, itemPath(id))
	})
	return err
}

// Save adds a catalog movie to the watchlist and returns the stored item.
//
// A movie already on the list yields [shared.ErrDuplicate].
func (s *HTTPStore) Save(ctx context.Context, movie models.Movie) (*models.SavedItem, error) {
	body := SaveRequest{ID: movie.ID, Title: movie.Title, ReleaseDate: movie.ReleaseDate, PosterPath: movie.PosterPath}
	resp, err := s.execute("save", func() (*APIResponse, error) {
		return s.api.Post(ctx, moviesPath, body)
	})
	if err != nil {
		return nil, err
	}

	var item models.SavedItem
	if resp.IsJSON && resp.Decode(&item) == nil && item.ID != "" {
		return &item, nil
	}
	return &models.SavedItem{
		ID:     movie.SavedID(),
		Title:  movie.Title,
		Year:   movie.Year(),
		Poster: movie.PosterURL(models.DefaultImageBase),
	}, nil
}

func (s *HTTPStore) execute(op string, fn func() (*APIResponse, error)) (*APIResponse, error) {
	resp, err := s.breaker.Execute(func() (*APIResponse, error) {
		resp, err := fn()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrTransport, op, err)
		}
		if err := statusError(op, resp); err != nil {
			return nil, err
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn("store request rejected", "op", op, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrTransport, op, err)
	}
	if err != nil {
		s.logger.Debug("store request failed", "op", op, "error", err)
		return nil, err
	}
	return resp, nil
}

// statusError maps a non-2xx response to the store's error kinds.
func statusError(op string, resp *APIResponse) error {
	switch {
	case resp.OK():
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, op)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", shared.ErrDuplicate, op)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %w (status %d)", shared.ErrTransport, op, shared.ErrNotAuthenticated, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %s: status %d", shared.ErrTransport, op, resp.StatusCode)
	}
}

func itemPath(id string) string {
	return moviesPath + "/" + url.PathEscape(id)
}
