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

// UserRepository persists [models.User] accounts.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts user with a fresh sequence number, or refreshes the email and name of an existing
// account. Empty profile fields never overwrite stored ones.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sequence int
	err = tx.QueryRowContext(ctx, `SELECT sequence FROM users WHERE id = ?`, user.ID()).Scan(&sequence)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		sequence, err = nextSequence(ctx, tx, "users")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		query := `INSERT INTO users (id, sequence, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, user.ID(), sequence, user.Email(), user.Name(), user.CreatedAt(), user.UpdatedAt()); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to query user: %w", err)
	default:
		now := time.Now()
		query := `
			UPDATE users
			SET email = CASE WHEN ? = '' THEN email ELSE ? END,
			    name = CASE WHEN ? = '' THEN name ELSE ? END,
			    updated_at = ?
			WHERE id = ?
		`
		if _, err := tx.ExecContext(ctx, query, user.Email(), user.Email(), user.Name(), user.Name(), now, user.ID()); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		user.SetUpdatedAt(now)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}
	user.SetSequence(sequence)
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, sequence, email, name, created_at, updated_at FROM users WHERE id = ?`

	var (
		userID    string
		sequence  int
		email     string
		name      string
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&userID, &sequence, &email, &name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user := models.NewUser(userID, email, name)
	user.SetSequence(sequence)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	return user, nil
}

// Delete removes a user and, through the foreign keys, their saved movies and chat history.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectRow(result, "user", id)
}

// expectRow maps a statement that touched no rows to [shared.ErrNotFound].
func expectRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, id)
	}
	return nil
}
