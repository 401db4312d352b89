package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/session"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository backed by PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// GetByChatID retrieves the conversation session for a chat.
func (r *SessionRepository) GetByChatID(ctx context.Context, chatID int64) (*session.Session, error) {
	query := `
		SELECT chat_id, telegram_id, thread_id, last_message_at, created_at
		FROM sessions
		WHERE chat_id = $1`

	var s session.Session
	err := r.conn.QueryRow(ctx, query, chatID).Scan(
		&s.ChatID,
		&s.TelegramID,
		&s.ThreadID,
		&s.LastMessageAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	return &s, nil
}

// Upsert creates or refreshes the session for a chat.
func (r *SessionRepository) Upsert(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO sessions (chat_id, telegram_id, thread_id, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			telegram_id = EXCLUDED.telegram_id,
			thread_id = EXCLUDED.thread_id,
			last_message_at = EXCLUDED.last_message_at`

	_, err := r.conn.Exec(ctx, query,
		s.ChatID,
		s.TelegramID,
		s.ThreadID,
		s.LastMessageAt,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}
