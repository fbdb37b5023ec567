package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

// MovieRepository implements [models.Repository] for [models.SavedMovie] rows.
//
// Every method is scoped to one user; ids are unique per user only.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new [MovieRepository] with the given database connection
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// List returns the user's saved movies in insertion order.
func (r *MovieRepository) List(userID string) ([]*models.SavedMovie, error) {
	return r.ListContext(context.Background(), userID)
}

// ListContext is [MovieRepository.List] with a context.
func (r *MovieRepository) ListContext(ctx context.Context, userID string) ([]*models.SavedMovie, error) {
	query := `
		SELECT id, sequence, title, year, poster, watched, created_at, updated_at
		FROM saved_movies
		WHERE user_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved movies: %w", err)
	}
	defer rows.Close()

	var movies []*models.SavedMovie
	for rows.Next() {
		movie, err := scanMovie(rows, userID)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved movies: %w", err)
	}
	return movies, nil
}

// Get returns one saved movie.
func (r *MovieRepository) Get(ctx context.Context, userID, id string) (*models.SavedMovie, error) {
	query := `
		SELECT id, sequence, title, year, poster, watched, created_at, updated_at
		FROM saved_movies
		WHERE user_id = ? AND id = ?
	`

	movie, err := scanMovie(r.db.QueryRowContext(ctx, query, userID, id), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: movie %s", shared.ErrNotFound, id)
	}
	return movie, err
}

// Create stores movie for userID. Saving an id the user already has returns [shared.ErrDuplicate].
func (r *MovieRepository) Create(userID string, movie *models.SavedMovie) error {
	return r.CreateContext(context.Background(), userID, movie)
}

// CreateContext is [MovieRepository.Create] with a context.
func (r *MovieRepository) CreateContext(ctx context.Context, userID string, movie *models.SavedMovie) error {
	movie.UserID = userID
	if err := movie.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequence(ctx, tx, "saved_movies")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO saved_movies (user_id, id, sequence, title, year, poster, watched, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	item := movie.Item
	_, err = tx.ExecContext(ctx, query, userID, item.ID, sequence, item.Title, item.Year, item.Poster, item.Watched,
		movie.CreatedAt(), movie.UpdatedAt())
	if isConstraint(err) {
		return fmt.Errorf("%w: movie %s", shared.ErrDuplicate, item.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert saved movie: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit saved movie: %w", err)
	}
	movie.Sequence = sequence
	return nil
}

// SetWatched updates the watched flag of one saved movie.
func (r *MovieRepository) SetWatched(ctx context.Context, userID, id string, watched bool) error {
	query := `UPDATE saved_movies SET watched = ?, updated_at = ? WHERE user_id = ? AND id = ?`
	result, err := r.db.ExecContext(ctx, query, watched, time.Now(), userID, id)
	if err != nil {
		return fmt.Errorf("failed to update saved movie: %w", err)
	}
	return expectRow(result, "movie", id)
}

// Delete removes one saved movie.
func (r *MovieRepository) Delete(userID, id string) error {
	return r.DeleteContext(context.Background(), userID, id)
}

// DeleteContext is [MovieRepository.Delete] with a context.
func (r *MovieRepository) DeleteContext(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_movies WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved movie: %w", err)
	}
	return expectRow(result, "movie", id)
}

// Count returns the number of saved movies across all users.
func (r *MovieRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count saved movies: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMovie(row scanner, userID string) (*models.SavedMovie, error) {
	var (
		item      models.SavedItem
		sequence  int
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&item.ID, &sequence, &item.Title, &item.Year, &item.Poster, &item.Watched, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan saved movie: %w", err)
	}

	movie := models.NewSavedMovie(userID, item)
	movie.Sequence = sequence
	movie.SetTimestamps(createdAt, updatedAt)
	return movie, nil
}
