// Movie catalog client (TMDB)
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDBSearchResponse is the body of /search/movie.
type TMDBSearchResponse struct {
	Page         int            `json:"page"`
	Results      []models.Movie `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

type tmdbError struct {
	StatusMessage string `json:"status_message"`
	StatusCode    int    `json:"status_code"`
}

// TMDBService searches the movie catalog.
//
// Requests are rate limited client side; the limiter is shared by every caller of the service.
type TMDBService struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *log.Logger
}

// NewTMDBService creates a catalog client from cfg. A zero rate limit disables limiting.
func NewTMDBService(cfg shared.TMDBConfig, client *http.Client, logger *log.Logger) *TMDBService {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = tmdbBaseURL
	}
	imageBase := cfg.ImageBaseURL
	if imageBase == "" {
		imageBase = models.DefaultImageBase
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &TMDBService{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		imageBaseURL: imageBase,
		httpClient:   client,
		limiter:      limiter,
		logger:       logger,
	}
}

// ImageBaseURL is the prefix for poster paths returned by searches.
func (t *TMDBService) ImageBaseURL() string { return t.imageBaseURL }

// SearchMovies returns catalog matches for query. A blank query yields [shared.ErrEmptyQuery].
func (t *TMDBService) SearchMovies(ctx context.Context, query string) ([]models.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, shared.ErrEmptyQuery
	}
	if t.apiKey == "" {
		return nil, fmt.Errorf("%w: credentials.tmdb.api_key", shared.ErrMissingCredentials)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}

	params := url.Values{}
	params.Set("api_key", t.apiKey)
	params.Set("query", query)
	endpoint := t.baseURL + "/search/movie?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr tmdbError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.StatusMessage != "" {
			return nil, fmt.Errorf("%w: tmdb (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, apiErr.StatusMessage)
		}
		return nil, fmt.Errorf("%w: tmdb: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var body TMDBSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	t.logger.Debug("catalog search", "query", query, "results", len(body.Results))
	return body.Results, nil
}

// FirstWithPoster returns the first movie in results that has a poster path.
func FirstWithPoster(results []models.Movie) (models.Movie, bool) {
	for _, m := range results {
		if m.PosterPath != "" {
			return m, true
		}
	}
	return models.Movie{}, false
}
