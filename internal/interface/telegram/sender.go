package telegram

import (
	"context"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/telegram"
)

// ReplySender adapts the API client to the pipeline's Sender interface.
type ReplySender struct {
	client *telegram.Client
}

// NewReplySender creates a reply sender over the API client.
func NewReplySender(client *telegram.Client) *ReplySender {
	return &ReplySender{client: client}
}

// Send delivers a text reply to a chat.
func (s *ReplySender) Send(ctx context.Context, chatID int64, text string) error {
	_, err := s.client.SendText(ctx, chatID, text)
	return err
}
