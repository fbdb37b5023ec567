package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/repositories"
	"github.com/desertthunder/movli/internal/services"
	"github.com/desertthunder/movli/internal/session"
	"github.com/desertthunder/movli/internal/shared"
	tu "github.com/desertthunder/movli/internal/testing"
	"github.com/desertthunder/movli/internal/watchlist"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const testSecret = "test-secret"

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, secret string) (*Server, *httptest.Server, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	srv := New(shared.ServerConfig{JWTSecret: secret, CORSOrigins: []string{"http://localhost:5173"}}, db, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts, db
}

func issue(t *testing.T, srv *Server, uid string) string {
	t.Helper()
	token, err := srv.Authenticator().Issue(uid, uid+"@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func do(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

var matrixReq = services.SaveRequest{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-31", PosterPath: "/m.jpg"}

func TestServer(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		_, ts, _ := newTestServer(t, testSecret)
		resp, body := do(t, http.MethodGet, ts.URL+"/health", "", nil)
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
			t.Errorf("unexpected health response %d %s", resp.StatusCode, body)
		}
	})

	t.Run("Requires Token", func(t *testing.T) {
		_, ts, _ := newTestServer(t, testSecret)

		resp, _ := do(t, http.MethodGet, ts.URL+"/api/movies", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}

		forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("other"))
		resp, _ = do(t, http.MethodGet, ts.URL+"/api/movies", forged, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401 for a forged token, got %d", resp.StatusCode)
		}
	})

	t.Run("User Store Failure", func(t *testing.T) {
		srv, ts, db := newTestServer(t, testSecret)
		token := issue(t, srv, "u1")
		db.Close()

		resp, body := do(t, http.MethodGet, ts.URL+"/api/movies", token, nil)
		if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(string(body), "INTERNAL") {
			t.Errorf("expected 500 INTERNAL, got %d %s", resp.StatusCode, body)
		}

		resp, _ = do(t, http.MethodPost, ts.URL+"/api/chat", token, services.ChatRequest{Prompt: "hi"})
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500 for optional auth, got %d", resp.StatusCode)
		}
	})

	t.Run("Movie Lifecycle", func(t *testing.T) {
		srv, ts, _ := newTestServer(t, testSecret)
		token := issue(t, srv, "u1")

		resp, body := do(t, http.MethodPost, ts.URL+"/api/movies", token, matrixReq)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
		}
		var saved models.SavedItem
		json.Unmarshal(body, &saved)
		want := models.SavedItem{ID: "tmdb-603", Title: "The Matrix", Year: "1999", Poster: models.DefaultImageBase + "/m.jpg"}
		if saved != want {
			t.Errorf("expected %+v, got %+v", want, saved)
		}

		resp, _ = do(t, http.MethodPost, ts.URL+"/api/movies", token, matrixReq)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected 409 for duplicate, got %d", resp.StatusCode)
		}

		resp, body = do(t, http.MethodPut, ts.URL+"/api/movies/tmdb-603", token, map[string]bool{"watched": true})
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"watched":true`) {
			t.Errorf("unexpected update response %d %s", resp.StatusCode, body)
		}

		resp, _ = do(t, http.MethodPut, ts.URL+"/api/movies/tmdb-1", token, map[string]bool{"watched": true})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 for unknown id, got %d", resp.StatusCode)
		}

		other := issue(t, srv, "u2")
		_, body = do(t, http.MethodGet, ts.URL+"/api/movies", other, nil)
		if strings.TrimSpace(string(body)) != "[]" {
			t.Errorf("expected another user's list to be empty, got %s", body)
		}

		resp, _ = do(t, http.MethodDelete, ts.URL+"/api/movies/tmdb-603", token, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("expected 204, got %d", resp.StatusCode)
		}
		resp, _ = do(t, http.MethodDelete, ts.URL+"/api/movies/tmdb-603", token, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", resp.StatusCode)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		srv, ts, _ := newTestServer(t, testSecret)
		token := issue(t, srv, "u1")

		noPoster := matrixReq
		noPoster.PosterPath = ""
		resp, body := do(t, http.MethodPost, ts.URL+"/api/movies", token, noPoster)
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "VALIDATION_ERROR") {
			t.Errorf("expected validation error, got %d %s", resp.StatusCode, body)
		}

		do(t, http.MethodPost, ts.URL+"/api/movies", token, matrixReq)
		resp, _ = do(t, http.MethodPut, ts.URL+"/api/movies/tmdb-603", token, map[string]any{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for missing watched, got %d", resp.StatusCode)
		}
	})

	t.Run("Development Mode", func(t *testing.T) {
		_, ts, _ := newTestServer(t, "")

		valid, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
			UserID:           "dev",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString([]byte("anything"))
		resp, _ := do(t, http.MethodGet, ts.URL+"/api/movies", valid, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected unverified token to be accepted, got %d", resp.StatusCode)
		}

		expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
			UserID:           "dev",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		}).SignedString([]byte("anything"))
		resp, _ = do(t, http.MethodGet, ts.URL+"/api/movies", expired, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected expired token to be rejected, got %d", resp.StatusCode)
		}
	})

	t.Run("Chat", func(t *testing.T) {
		srv, ts, db := newTestServer(t, testSecret)
		token := issue(t, srv, "u1")
		do(t, http.MethodPost, ts.URL+"/api/movies", token, matrixReq)

		_, body := do(t, http.MethodPost, ts.URL+"/api/chat", "", services.ChatRequest{Prompt: "Who directed The Godfather?"})
		var anon services.ChatResponse
		json.Unmarshal(body, &anon)
		if anon.Reply == "" {
			t.Errorf("expected an anonymous reply, got %s", body)
		}

		_, body = do(t, http.MethodPost, ts.URL+"/api/chat", token, services.ChatRequest{Prompt: "Recommend something"})
		var reply services.ChatResponse
		json.Unmarshal(body, &reply)
		if !strings.Contains(reply.Reply, "The Matrix") {
			t.Errorf("expected a watchlist recommendation, got %q", reply.Reply)
		}

		history, err := repositories.NewChatRepository(db).History(context.Background(), "u1", 10)
		if err != nil || len(history) != 2 {
			t.Errorf("expected stored exchange, got %v, %v", history, err)
		}

		resp, body := do(t, http.MethodGet, ts.URL+"/api/chat/history", token, nil)
		var listed services.ChatHistoryResponse
		json.Unmarshal(body, &listed)
		if resp.StatusCode != http.StatusOK || len(listed.Messages) != 2 {
			t.Fatalf("expected two messages from the history route, got %d %s", resp.StatusCode, body)
		}
		if listed.Messages[0].Sender != models.SenderUser || listed.Messages[0].Text != "Recommend something" {
			t.Errorf("expected the user prompt first, got %+v", listed.Messages[0])
		}
		if listed.Messages[1].Sender != models.SenderBot {
			t.Errorf("expected the bot reply second, got %+v", listed.Messages[1])
		}

		resp, _ = do(t, http.MethodGet, ts.URL+"/api/chat/history", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401 for anonymous history, got %d", resp.StatusCode)
		}

		_, body = do(t, http.MethodGet, ts.URL+"/api/chat/history", issue(t, srv, "u2"), nil)
		if !strings.Contains(string(body), `"messages":[]`) {
			t.Errorf("expected an empty history for a new user, got %s", body)
		}

		resp, _ = do(t, http.MethodPost, ts.URL+"/api/chat", "", services.ChatRequest{Prompt: "  "})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for blank prompt, got %d", resp.StatusCode)
		}
	})

	t.Run("CORS Preflight", func(t *testing.T) {
		_, ts, _ := newTestServer(t, testSecret)

		req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/movies", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("preflight failed: %v", err)
		}
		resp.Body.Close()

		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("expected allowed origin, got %q", got)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		_, ts, _ := newTestServer(t, testSecret)
		do(t, http.MethodGet, ts.URL+"/health", "", nil)

		_, body := do(t, http.MethodGet, ts.URL+"/metrics", "", nil)
		if !strings.Contains(string(body), "movli_http_requests_total") {
			t.Error("expected request counter in metrics output")
		}
	})

	t.Run("Rate Limit", func(t *testing.T) {
		db := setupTestDB(t)
		ts := httptest.NewServer(New(shared.ServerConfig{RateLimitRequests: 2, RateLimitWindowSeconds: 60}, db, nil))
		defer ts.Close()

		var last int
		for range 3 {
			resp, _ := do(t, http.MethodGet, ts.URL+"/health", "", nil)
			last = resp.StatusCode
		}
		if last != http.StatusTooManyRequests {
			t.Errorf("expected 429 after the limit, got %d", last)
		}
	})
}

// TestStoreAgainstServer drives the watchlist controller through the HTTP store against a live service.
func TestStoreAgainstServer(t *testing.T) {
	srv, ts, _ := newTestServer(t, testSecret)
	token := issue(t, srv, "u1")
	ctx := context.Background()

	client := services.NewAuthenticatedClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), shared.BackendConfig{})
	store := services.NewHTTPStore(services.NewAPIService(ts.URL, client), shared.BackendConfig{}, nil)

	for _, m := range []models.Movie{
		{ID: 1, Title: "Alien", ReleaseDate: "1979-05-25", PosterPath: "/a.jpg"},
		{ID: 2, Title: "Brazil", ReleaseDate: "1985-02-20", PosterPath: "/b.jpg"},
	} {
		if _, err := store.Save(ctx, m); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if _, err := store.Save(ctx, models.Movie{ID: 1, Title: "Alien", PosterPath: "/a.jpg"}); !errors.Is(err, shared.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	provider := tu.NewMockSession()
	c := watchlist.New(ctx, provider, store)
	defer c.Close()
	provider.Emit(&models.Identity{UID: "u1"})
	c.Wait()

	if err := c.ToggleWatched(ctx, "tmdb-1"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	sorted := c.SortedItems()
	if len(sorted) != 2 || sorted[0].ID != "tmdb-2" || !sorted[1].Watched {
		t.Errorf("expected unwatched Brazil first, got %+v", sorted)
	}

	if err := c.DeleteItem(ctx, "tmdb-2"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	items, err := store.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "tmdb-1" || !items[0].Watched {
		t.Errorf("expected only watched Alien remotely, got %+v", items)
	}

	if err := store.DeleteByID(ctx, "tmdb-404"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReply(t *testing.T) {
	list := []models.SavedItem{
		{ID: "a", Title: "Alien", Year: "1979", Watched: true},
		{ID: "b", Title: "Brazil", Year: "1985"},
	}

	tc := []struct {
		name   string
		prompt string
		list   []models.SavedItem
		want   string
	}{
		{name: "recommends unwatched", prompt: "Suggest a movie", list: list, want: "'Brazil' (1985)"},
		{name: "all watched", prompt: "what should I watch", list: list[:1], want: "watched everything"},
		{name: "no list", prompt: "Suggest a sci-fi movie from the 90s", want: "sci-fi movie from the 90s"},
		{name: "question", prompt: "Who directed The Godfather?", list: list, want: "Who directed The Godfather"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reply(tt.prompt, tt.list); !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}
