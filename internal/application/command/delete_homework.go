package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/homework"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE HOMEWORK COMMAND
// Deleting a non-existent id is a reported failure, not a silent no-op: the
// row is fetched first so the confirmation can name its title.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteHomeworkCommand identifies the row to delete.
type DeleteHomeworkCommand struct {
	// TelegramID is the caller's external identity.
	TelegramID int64

	// HomeworkID is the id of the row to delete.
	HomeworkID string
}

// Validate validates the command.
func (c DeleteHomeworkCommand) Validate() error {
	if c.TelegramID <= 0 {
		return errors.New("delete_homework: telegram_id must be positive")
	}
	if c.HomeworkID == "" {
		return errors.New("delete_homework: homework_id is required")
	}
	return nil
}

// DeleteHomeworkResult is the structured outcome.
type DeleteHomeworkResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeleteHomeworkHandler handles homework deletion.
type DeleteHomeworkHandler struct {
	students  student.Repository
	homeworks homework.Repository
	log       *logger.Logger
}

// NewDeleteHomeworkHandler creates a new handler.
func NewDeleteHomeworkHandler(
	students student.Repository,
	homeworks homework.Repository,
	log *logger.Logger,
) *DeleteHomeworkHandler {
	return &DeleteHomeworkHandler{
		students:  students,
		homeworks: homeworks,
		log:       log.With(logger.Component("delete_homework")),
	}
}

// Handle deletes a homework row after re-resolving the caller and checking
// the tier gate.
func (h *DeleteHomeworkHandler) Handle(ctx context.Context, cmd DeleteHomeworkCommand) (*DeleteHomeworkResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	caller, denied, err := resolveCaller(ctx, h.students, cmd.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("delete_homework: %w", err)
	}
	if denied != "" {
		return &DeleteHomeworkResult{Success: false, Message: denied}, nil
	}

	if !caller.AccessLevel.CanManageHomework() {
		return &DeleteHomeworkResult{
			Success: false,
			Message: "You do not have permission to delete homework.",
		}, nil
	}

	hw, err := h.homeworks.GetByID(ctx, cmd.HomeworkID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &DeleteHomeworkResult{
				Success: false,
				Message: fmt.Sprintf("Homework with id %q was not found.", cmd.HomeworkID),
			}, nil
		}
		return nil, fmt.Errorf("delete_homework: lookup: %w", err)
	}

	if err := h.homeworks.Delete(ctx, hw.ID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Deleted concurrently between the lookup and the delete.
			return &DeleteHomeworkResult{
				Success: false,
				Message: fmt.Sprintf("Homework with id %q was not found.", cmd.HomeworkID),
			}, nil
		}
		return nil, fmt.Errorf("delete_homework: delete: %w", err)
	}

	h.log.Info("homework deleted",
		logger.TelegramID(cmd.TelegramID),
		logger.String("homework_id", hw.ID),
	)

	return &DeleteHomeworkResult{
		Success: true,
		Message: fmt.Sprintf("Homework %q deleted.", hw.Title),
	}, nil
}
