package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
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

func createUser(t *testing.T, db *sql.DB, id string) *models.User {
	t.Helper()
	user := models.NewUser(id, id+"@example.com", "")
	if err := NewUserRepository(db).Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func savedMovie(id, title string) *models.SavedMovie {
	return models.NewSavedMovie("", models.SavedItem{ID: id, Title: title, Year: "1999", Poster: "p"})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "users")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		user := models.NewUser("uid-1", "a@example.com", "Ann")
		if err := repo.Upsert(ctx, user); err != nil {
			t.Fatalf("failed to upsert user: %v", err)
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}

		again := models.NewUser("uid-1", "", "Annie")
		if err := repo.Upsert(ctx, again); err != nil {
			t.Fatalf("failed to upsert existing user: %v", err)
		}
		if again.Sequence() != 1 {
			t.Errorf("existing user should keep sequence 1, got %d", again.Sequence())
		}

		got, err := repo.Get(ctx, "uid-1")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Email() != "a@example.com" || got.Name() != "Annie" {
			t.Errorf("expected kept email and new name, got %s / %s", got.Email(), got.Name())
		}
	})

	t.Run("Upsert Validation", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if err := repo.Upsert(ctx, models.NewUser("", "a@example.com", "")); err == nil {
			t.Fatal("expected validation error for empty id")
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if _, err := repo.Get(ctx, "nobody"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete Cascades", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "uid-1")
		movies := NewMovieRepository(db)
		if err := movies.Create("uid-1", savedMovie("tmdb-1", "Alien")); err != nil {
			t.Fatalf("failed to create movie: %v", err)
		}

		if err := NewUserRepository(db).Delete(ctx, "uid-1"); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		n, _ := movies.Count(ctx)
		if n != 0 {
			t.Errorf("expected saved movies to be removed, %d left", n)
		}

		if err := NewUserRepository(db).Delete(ctx, "uid-1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestMovieRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create And List In Order", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "uid-1")
		repo := NewMovieRepository(db)

		for i, title := range []string{"Alien", "Brazil", "Casablanca"} {
			if err := repo.Create("uid-1", savedMovie(fmt.Sprintf("tmdb-%d", i), title)); err != nil {
				t.Fatalf("failed to create movie: %v", err)
			}
		}

		movies, err := repo.List("uid-1")
		if err != nil {
			t.Fatalf("failed to list movies: %v", err)
		}
		if len(movies) != 3 {
			t.Fatalf("expected 3 movies, got %d", len(movies))
		}
		for i, want := range []string{"Alien", "Brazil", "Casablanca"} {
			if movies[i].Item.Title != want {
				t.Errorf("position %d: expected %s, got %s", i, want, movies[i].Item.Title)
			}
			if movies[i].UserID != "uid-1" {
				t.Errorf("expected user uid-1, got %s", movies[i].UserID)
			}
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "uid-1")
		createUser(t, db, "uid-2")
		repo := NewMovieRepository(db)

		if err := repo.Create("uid-1", savedMovie("tmdb-1", "Alien")); err != nil {
			t.Fatalf("failed to create movie: %v", err)
		}
		if err := repo.Create("uid-1", savedMovie("tmdb-1", "Alien")); !errors.Is(err, shared.ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
		if err := repo.Create("uid-2", savedMovie("tmdb-1", "Alien")); err != nil {
			t.Errorf("another user may save the same movie: %v", err)
		}
	})

	t.Run("Create Requires User", func(t *testing.T) {
		repo := NewMovieRepository(setupTestDB(t))
		if err := repo.Create("ghost", savedMovie("tmdb-1", "Alien")); err == nil {
			t.Error("expected foreign key error")
		}
	})

	t.Run("SetWatched", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "uid-1")
		repo := NewMovieRepository(db)
		repo.Create("uid-1", savedMovie("tmdb-1", "Alien"))

		if err := repo.SetWatched(ctx, "uid-1", "tmdb-1", true); err != nil {
			t.Fatalf("failed to set watched: %v", err)
		}
		movie, err := repo.Get(ctx, "uid-1", "tmdb-1")
		if err != nil {
			t.Fatalf("failed to get movie: %v", err)
		}
		if !movie.Item.Watched {
			t.Error("expected movie to be watched")
		}

		if err := repo.SetWatched(ctx, "uid-2", "tmdb-1", true); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for another user, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "uid-1")
		repo := NewMovieRepository(db)
		repo.Create("uid-1", savedMovie("tmdb-1", "Alien"))

		if err := repo.Delete("uid-1", "tmdb-1"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete("uid-1", "tmdb-1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.Get(ctx, "uid-1", "tmdb-1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Concurrent Creates", func(t *testing.T) {
		db := setupTestDB(t)
		createUser(t, db, "uid-1")
		repo := NewMovieRepository(db)

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := repo.Create("uid-1", savedMovie(fmt.Sprintf("tmdb-%d", i), "Movie")); err != nil {
					t.Errorf("create %d failed: %v", i, err)
				}
			}()
		}
		wg.Wait()

		movies, _ := repo.List("uid-1")
		seen := make(map[int]bool)
		for _, m := range movies {
			if seen[m.Sequence] {
				t.Errorf("duplicate sequence %d", m.Sequence)
			}
			seen[m.Sequence] = true
		}
		if len(movies) != 10 {
			t.Errorf("expected 10 movies, got %d", len(movies))
		}
	})
}

func TestChatRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	createUser(t, db, "uid-1")
	repo := NewChatRepository(db)

	for i, sender := range []models.Sender{models.SenderUser, models.SenderBot, models.SenderUser} {
		msg := &models.ChatMessage{Text: fmt.Sprintf("m%d", i), Sender: sender}
		if err := repo.Append(ctx, "uid-1", msg); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
		if msg.ID == "" || msg.SentAt.IsZero() {
			t.Error("expected id and timestamp to be assigned")
		}
	}

	history, err := repo.History(ctx, "uid-1", 2)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 2 || history[0].Text != "m1" || history[1].Text != "m2" {
		t.Errorf("expected the last two messages oldest first, got %+v", history)
	}
	if history[0].Sender != models.SenderBot {
		t.Errorf("expected bot sender, got %s", history[0].Sender)
	}

	empty, err := repo.History(ctx, "uid-2", 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected no history for unknown user, got %v, %v", empty, err)
	}
}
