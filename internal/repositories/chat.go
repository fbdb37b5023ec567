package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/shared"
)

// ChatRepository stores assistant conversations per user.
type ChatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new [ChatRepository] with the given database connection
func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append stores msg for userID, assigning an ID and timestamp when missing.
func (r *ChatRepository) Append(ctx context.Context, userID string, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = shared.GenerateID()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	query := `INSERT INTO chat_messages (id, user_id, role, text, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, msg.ID, userID, string(msg.Sender), msg.Text, msg.SentAt); err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// History returns the latest limit messages of userID, oldest first.
func (r *ChatRepository) History(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, role, text, created_at
		FROM chat_messages
		WHERE user_id = ?
		ORDER BY rowid DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var (
			msg  models.ChatMessage
			role string
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Text, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msg.Sender = models.Sender(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	slices.Reverse(messages)
	return messages, nil
}
