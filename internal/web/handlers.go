package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/server"
	"github.com/desertthunder/movli/internal/services"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/goccy/go-json"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok", "verified_tokens": s.auth.Verified()}

	if err := s.db.PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = err.Error()
	}
	respondJSON(w, status, body)
}

func (s *Server) listMovies(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	movies, err := s.movies.ListContext(r.Context(), user.UID)
	if err != nil {
		s.fail(w, "list", err)
		return
	}

	items := make([]models.SavedItem, 0, len(movies))
	for _, m := range movies {
		items = append(items, m.Item)
	}
	WatchlistOperations.WithLabelValues("list", "ok").Inc()
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) saveMovie(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req services.SaveRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	movie := models.Movie{ID: req.ID, Title: req.Title, ReleaseDate: req.ReleaseDate, PosterPath: req.PosterPath}
	item := models.SavedItem{
		ID:     movie.SavedID(),
		Title:  movie.Title,
		Year:   movie.Year(),
		Poster: movie.PosterURL(s.imageBase),
	}

	if err := s.movies.CreateContext(r.Context(), user.UID, models.NewSavedMovie(user.UID, item)); err != nil {
		s.fail(w, "save", err)
		return
	}

	s.logger.Info("saved movie", "uid", user.UID, "id", item.ID)
	WatchlistOperations.WithLabelValues("save", "ok").Inc()
	respondJSON(w, http.StatusCreated, item)
}

func (s *Server) updateMovie(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := server.Param(r, "id")

	var update models.ItemUpdate
	if err := decodeBody(w, r, &update); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := validate.Struct(update); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := s.movies.SetWatched(r.Context(), user.UID, id, *update.Watched); err != nil {
		s.fail(w, "update", err)
		return
	}

	movie, err := s.movies.Get(r.Context(), user.UID, id)
	if err != nil {
		s.fail(w, "update", err)
		return
	}
	WatchlistOperations.WithLabelValues("update", "ok").Inc()
	respondJSON(w, http.StatusOK, movie.Item)
}

func (s *Server) deleteMovie(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := server.Param(r, "id")

	if err := s.movies.DeleteContext(r.Context(), user.UID, id); err != nil {
		s.fail(w, "delete", err)
		return
	}
	WatchlistOperations.WithLabelValues("delete", "ok").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	var watchlist []models.SavedItem
	user := UserFromContext(r.Context())
	if user != nil {
		movies, err := s.movies.ListContext(r.Context(), user.UID)
		if err != nil {
			s.fail(w, "chat", err)
			return
		}
		for _, m := range movies {
			watchlist = append(watchlist, m.Item)
		}
	}

	reply := Reply(req.Prompt, watchlist)

	if user != nil {
		for _, msg := range []*models.ChatMessage{
			{Text: req.Prompt, Sender: models.SenderUser},
			{Text: reply, Sender: models.SenderBot},
		} {
			if err := s.chats.Append(r.Context(), user.UID, msg); err != nil {
				s.logger.Warn("failed to store chat message", "uid", user.UID, "error", err)
			}
		}
	}

	ChatReplies.Inc()
	respondJSON(w, http.StatusOK, services.ChatResponse{Reply: reply})
}

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	messages, err := s.chats.History(r.Context(), user.UID, chatHistoryLimit)
	if err != nil {
		s.logger.Error("failed to read chat history", "uid", user.UID, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, services.ChatHistoryResponse{Messages: messages})
}

// fail maps repository errors to responses.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		WatchlistOperations.WithLabelValues(op, "not_found").Inc()
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Movie not found")
	case errors.Is(err, shared.ErrDuplicate):
		WatchlistOperations.WithLabelValues(op, "duplicate").Inc()
		respondError(w, http.StatusConflict, "DUPLICATE", "Movie already saved")
	default:
		WatchlistOperations.WithLabelValues(op, "error").Inc()
		s.logger.Error("watchlist operation failed", "op", op, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}
