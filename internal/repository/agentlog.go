package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/finance-tracker/backend/internal/agent"
)

// AgentLogRepository is the audit trail for model round-trips.
type AgentLogRepository struct {
	db *pgxpool.Pool
}

// AgentLogEntry is one stored model call.
type AgentLogEntry struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Intent     string
	Prompt     string
	Response   string
	TokensUsed int
	Success    bool
	Error      *string
	CreatedAt  time.Time
}

// NewAgentLogRepository builds an agent-log repository over the pool.
func NewAgentLogRepository(db *pgxpool.Pool) *AgentLogRepository {
	return &AgentLogRepository{db: db}
}

// LogRequest stores one model round-trip.
func (r *AgentLogRepository) LogRequest(ctx context.Context, entry agent.AuditEntry) error {
	var errorMessage *string
	if entry.Error != "" {
		errorMessage = &entry.Error
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO agent_requests (user_id, intent, prompt, response, tokens_used, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.UserID,
		entry.Intent,
		entry.Prompt,
		entry.Response,
		entry.TokensUsed,
		entry.Success,
		errorMessage,
	)
	return err
}

// ListRecent returns the user's latest model calls, newest first.
func (r *AgentLogRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]AgentLogEntry, error) {
	if limit <= 0 {
		return []AgentLogEntry{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, intent, prompt, response, tokens_used, success, error_message, created_at
		 FROM agent_requests
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]AgentLogEntry, 0)
	for rows.Next() {
		var entry AgentLogEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Intent, &entry.Prompt, &entry.Response, &entry.TokensUsed, &entry.Success, &entry.Error, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
