package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
)

// resolveCaller re-reads the caller's student record by Telegram ID.
// Access decisions are always made against this fresh record, never against
// anything supplied in the request. Returns a non-empty denial message for
// unregistered or deactivated callers.
func resolveCaller(ctx context.Context, students student.Repository, telegramID int64) (*student.Student, string, error) {
	s, err := students.GetByTelegramID(ctx, student.TelegramID(telegramID))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, "You are not registered. Send your student code to register first.", nil
		}
		return nil, "", fmt.Errorf("resolve caller: %w", err)
	}
	if !s.IsActive {
		return nil, "Your account is deactivated. Contact your teacher.", nil
	}
	return s, "", nil
}
