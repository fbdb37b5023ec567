package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// PosterSentinel is the value the catalog uses for a missing poster.
	PosterSentinel = "N/A"
	// ItemPlaceholder is shown in list rows when a saved item has no poster.
	ItemPlaceholder = "https://placehold.co/50x75/1a202c/ffffff?text=N/A"
	// MoviePlaceholder is shown in search results when a movie has no poster.
	MoviePlaceholder = "https://placehold.co/500x750/1a202c/ffffff?text=No+Image"
	// DefaultImageBase prefixes catalog poster paths.
	DefaultImageBase = "https://image.tmdb.org/t/p/w500"
)

// Model defines the base interface for persistent models in the reference service.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines data access operations for a user-scoped model.
type Repository[T Model] interface {
	List(userID string) ([]T, error)
	Create(userID string, model T) error
	Delete(userID, id string) error
}

// SavedItem is one movie on a user's watchlist.
//
// JSON field names follow the remote store's wire format.
type SavedItem struct {
	ID      string `json:"imdbID"`
	Title   string `json:"Title"`
	Year    string `json:"Year"`
	Poster  string `json:"Poster"`
	Watched bool   `json:"watched"`
}

// HasPoster reports whether Poster is a usable URL.
func (s SavedItem) HasPoster() bool {
	return s.Poster != "" && s.Poster != PosterSentinel
}

// PosterOrPlaceholder returns the poster URL or the list placeholder image.
func (s SavedItem) PosterOrPlaceholder() string {
	if s.HasPoster() {
		return s.Poster
	}
	return ItemPlaceholder
}

// ItemUpdate is the partial body sent to update-by-id. Nil fields are left unchanged.
type ItemUpdate struct {
	Watched *bool `json:"watched,omitempty" validate:"required"`
}

// Movie is a catalog search result.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview,omitempty"`
	VoteAverage float64 `json:"vote_average,omitempty"`
}

// Year returns the release year, or "N/A" when the date is missing.
func (m Movie) Year() string {
	if len(m.ReleaseDate) < 4 {
		return PosterSentinel
	}
	return m.ReleaseDate[:4]
}

// PosterURL joins the poster path onto base, or returns the search placeholder.
func (m Movie) PosterURL(base string) string {
	if m.PosterPath == "" {
		return MoviePlaceholder
	}
	if base == "" {
		base = DefaultImageBase
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(m.PosterPath, "/")
}

// SavedID is the identifier the store assigns to a saved catalog movie.
func (m Movie) SavedID() string {
	return fmt.Sprintf("tmdb-%d", m.ID)
}

// Identity is the signed-in user.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// Label returns the display name, falling back to the email address.
func (i *Identity) Label() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// Sender identifies the author of a [ChatMessage].
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is one entry in the assistant conversation.
type ChatMessage struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Sender Sender    `json:"sender"`
	SentAt time.Time `json:"sentAt"`
}
