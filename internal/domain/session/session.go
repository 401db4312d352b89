// Package session contains the conversation session entity. A session binds
// a Telegram chat to an agent conversation thread; the thread id keys the
// agent's conversational memory, which is opaque to the rest of the system.
package session

import (
	"context"
	"time"
)

// Session binds a chat to an agent thread.
type Session struct {
	// ChatID is the Telegram chat identifier. One session per chat.
	ChatID int64

	// TelegramID is the external identity of the chat's user.
	TelegramID int64

	// ThreadID keys the agent's conversational memory (UUID string).
	ThreadID string

	// LastMessageAt is when the last inbound message was handled.
	LastMessageAt time.Time

	// CreatedAt is when the session was first created.
	CreatedAt time.Time
}

// Repository defines storage operations over sessions.
type Repository interface {
	// GetByChatID returns the session for a chat.
	// Returns shared.ErrSessionNotFound when missing.
	GetByChatID(ctx context.Context, chatID int64) (*Session, error)

	// Upsert creates the session on first contact or refreshes
	// last_message_at on subsequent messages.
	Upsert(ctx context.Context, s *Session) error
}
