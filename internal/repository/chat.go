package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/finance-tracker/backend/internal/models"
)

// ChatRepository persists the append-only conversation log. Proposed actions
// are stored alongside the message as jsonb.
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository builds a chat repository over the pool.
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append inserts one message and returns it with its id and timestamp set.
func (r *ChatRepository) Append(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error) {
	actions, err := encodeActions(message.Actions)
	if err != nil {
		return message, fmt.Errorf("encode actions: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO chat_messages (user_id, role, content, formatted, actions)
		 VALUES ($1, $2, $3, $4, NULLIF($5, '')::jsonb)
		 RETURNING id, created_at`,
		message.UserID, message.Role, message.Content, message.Formatted, actions,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return message, err
	}

	return message, nil
}

// ListRecent returns the user's last messages, oldest first.
func (r *ChatRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		return []models.ChatMessage{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, role, content, formatted, actions, created_at
		 FROM (
			SELECT id, user_id, role, content, formatted, actions, created_at
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 ) recent
		 ORDER BY created_at, id`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListByUser returns the full conversation, oldest first.
func (r *ChatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, role, content, formatted, actions, created_at
		 FROM chat_messages
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// DeleteByUser clears the user's conversation.
func (r *ChatRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM chat_messages WHERE user_id = $1`,
		userID,
	)
	return err
}

func scanMessages(rows pgx.Rows) ([]models.ChatMessage, error) {
	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		var formatted *string
		var actions []byte

		if err := rows.Scan(&message.ID, &message.UserID, &message.Role, &message.Content, &formatted, &actions, &message.CreatedAt); err != nil {
			return nil, err
		}

		if formatted != nil {
			message.Formatted = *formatted
		}
		if len(actions) > 0 {
			if err := json.Unmarshal(actions, &message.Actions); err != nil {
				return nil, fmt.Errorf("decode actions: %w", err)
			}
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func encodeActions(actions []models.Action) (string, error) {
	if len(actions) == 0 {
		return "", nil
	}

	data, err := json.Marshal(actions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
