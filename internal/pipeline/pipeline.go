// Package pipeline wires an incoming chat message through the agent and
// back out to the user. Processing is two-staged: first the agent turn
// runs to completion, then the reply is delivered best-effort. A failed
// delivery never rolls back what the tools already did.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/agent"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/session"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Responder runs one agent turn for a thread.
type Responder interface {
	Respond(ctx context.Context, threadID string, caller agent.Caller, message string) (string, error)
}

// Sender delivers a reply to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Incoming is one user message entering the pipeline.
type Incoming struct {
	ChatID     int64
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Text       string
}

// Outcome reports what happened to a message.
type Outcome struct {
	// Reply is the text produced by the agent.
	Reply string

	// Delivered reports whether the reply reached the chat.
	Delivered bool
}

// ══════════════════════════════════════════════════════════════════════════════
// PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// Pipeline resolves the conversation session, runs the agent turn and
// delivers the reply.
type Pipeline struct {
	sessions  session.Repository
	responder Responder
	sender    Sender
	log       *logger.Logger
}

// New creates a message pipeline.
func New(sessions session.Repository, responder Responder, sender Sender, log *logger.Logger) *Pipeline {
	return &Pipeline{
		sessions:  sessions,
		responder: responder,
		sender:    sender,
		log:       log.With(logger.Component("pipeline")),
	}
}

// Process runs both stages for one message. An error means the agent
// turn itself failed and no reply exists; delivery failures are reported
// through Outcome.Delivered instead.
func (p *Pipeline) Process(ctx context.Context, msg Incoming) (*Outcome, error) {
	threadID := p.resolveThread(ctx, msg)

	caller := agent.Caller{
		TelegramID: msg.TelegramID,
		Username:   msg.Username,
		FirstName:  msg.FirstName,
		LastName:   msg.LastName,
	}

	reply, err := p.responder.Respond(ctx, threadID, caller, msg.Text)
	if err != nil {
		return nil, fmt.Errorf("pipeline: agent turn failed: %w", err)
	}

	outcome := &Outcome{Reply: reply, Delivered: true}

	if err := p.sender.Send(ctx, msg.ChatID, reply); err != nil {
		// Tool effects are already committed; the reply is simply lost.
		p.log.Warn("reply delivery failed",
			logger.ChatID(msg.ChatID),
			logger.TelegramID(msg.TelegramID),
			logger.Err(err),
		)
		outcome.Delivered = false
	}

	return outcome, nil
}

// resolveThread finds or creates the session for a chat and refreshes
// its activity timestamp. Persistence failures degrade to an ephemeral
// thread id so the turn can still run.
func (p *Pipeline) resolveThread(ctx context.Context, msg Incoming) string {
	now := time.Now().UTC()

	existing, err := p.sessions.GetByChatID(ctx, msg.ChatID)
	switch {
	case err == nil:
		existing.LastMessageAt = now
		if upErr := p.sessions.Upsert(ctx, existing); upErr != nil {
			p.log.Warn("session refresh failed", logger.ChatID(msg.ChatID), logger.Err(upErr))
		}
		return existing.ThreadID

	case errors.Is(err, shared.ErrSessionNotFound):
		created := &session.Session{
			ChatID:        msg.ChatID,
			TelegramID:    msg.TelegramID,
			ThreadID:      uuid.New().String(),
			LastMessageAt: now,
			CreatedAt:     now,
		}
		if upErr := p.sessions.Upsert(ctx, created); upErr != nil {
			p.log.Warn("session create failed", logger.ChatID(msg.ChatID), logger.Err(upErr))
		}
		return created.ThreadID

	default:
		p.log.Warn("session lookup failed, using ephemeral thread",
			logger.ChatID(msg.ChatID), logger.Err(err))
		return uuid.New().String()
	}
}
