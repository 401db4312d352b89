package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/homework"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD HOMEWORK COMMAND
// Creates a homework row on behalf of an authorized caller. The caller's
// access level is always re-read from the store, never taken from the request.
// ══════════════════════════════════════════════════════════════════════════════

// dueDateLayouts are the date formats accepted from users, tried in order.
// An unparseable date degrades to "no deadline" rather than failing the call.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseDueDate parses a user-supplied due date string leniently.
// Returns nil for empty or unparseable input.
func ParseDueDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// AddHomeworkCommand contains the data needed to create a homework row.
type AddHomeworkCommand struct {
	// TelegramID is the caller's external identity.
	TelegramID int64

	// Title is the assignment title. Required.
	Title string

	// Description is an optional longer text.
	Description string

	// Subject is an optional subject name.
	Subject string

	// DueDate is an optional due date string; parsed leniently.
	DueDate string

	// GroupName optionally targets another group. Defaults to the caller's
	// own group when empty.
	GroupName string
}

// Validate validates the command.
func (c AddHomeworkCommand) Validate() error {
	if c.TelegramID <= 0 {
		return errors.New("add_homework: telegram_id must be positive")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("add_homework: title is required")
	}
	return nil
}

// AddHomeworkResult is the structured outcome.
type AddHomeworkResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// AddHomeworkHandler handles homework creation.
type AddHomeworkHandler struct {
	students  student.Repository
	groups    group.Repository
	homeworks homework.Repository
	log       *logger.Logger
}

// NewAddHomeworkHandler creates a new handler.
func NewAddHomeworkHandler(
	students student.Repository,
	groups group.Repository,
	homeworks homework.Repository,
	log *logger.Logger,
) *AddHomeworkHandler {
	return &AddHomeworkHandler{
		students:  students,
		groups:    groups,
		homeworks: homeworks,
		log:       log.With(logger.Component("add_homework")),
	}
}

// Handle creates a homework row after re-resolving the caller and checking
// the tier gate.
func (h *AddHomeworkHandler) Handle(ctx context.Context, cmd AddHomeworkCommand) (*AddHomeworkResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	caller, denied, err := resolveCaller(ctx, h.students, cmd.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("add_homework: %w", err)
	}
	if denied != "" {
		return &AddHomeworkResult{Success: false, Message: denied}, nil
	}

	if !caller.AccessLevel.CanManageHomework() {
		return &AddHomeworkResult{
			Success: false,
			Message: "You do not have permission to add homework. Ask your group monitor.",
		}, nil
	}

	// Resolve the target group: explicit name wins, otherwise the caller's own.
	var g *group.Group
	if name := strings.TrimSpace(cmd.GroupName); name != "" {
		g, err = h.groups.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return &AddHomeworkResult{
					Success: false,
					Message: fmt.Sprintf("Group %q was not found.", name),
				}, nil
			}
			return nil, fmt.Errorf("add_homework: resolve group: %w", err)
		}
	} else if caller.GroupID != "" {
		g, err = h.groups.GetByID(ctx, caller.GroupID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return &AddHomeworkResult{
					Success: false,
					Message: "Your group could not be resolved. Contact your teacher.",
				}, nil
			}
			return nil, fmt.Errorf("add_homework: resolve caller group: %w", err)
		}
	} else {
		return &AddHomeworkResult{
			Success: false,
			Message: "No target group: you are not assigned to a group and none was specified.",
		}, nil
	}

	hw := &homework.Homework{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(cmd.Title),
		Description: strings.TrimSpace(cmd.Description),
		Subject:     strings.TrimSpace(cmd.Subject),
		DueDate:     ParseDueDate(cmd.DueDate),
		GroupID:     g.ID,
		CreatedBy:   caller.ID,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := hw.Validate(); err != nil {
		return nil, fmt.Errorf("add_homework: invalid entity: %w", err)
	}

	if err := h.homeworks.Create(ctx, hw); err != nil {
		return nil, fmt.Errorf("add_homework: insert: %w", err)
	}

	h.log.Info("homework added",
		logger.TelegramID(cmd.TelegramID),
		logger.GroupName(g.Name),
		logger.String("homework_id", hw.ID),
	)

	msg := fmt.Sprintf("Homework %q added for group %s.", hw.Title, g.Name)
	if hw.DueDate != nil {
		msg = fmt.Sprintf("Homework %q added for group %s, due %s.", hw.Title, g.Name, hw.DueDate.Format("2006-01-02 15:04"))
	} else if strings.TrimSpace(cmd.DueDate) != "" {
		msg += " The due date could not be parsed and was left empty."
	}

	return &AddHomeworkResult{Success: true, ID: hw.ID, Message: msg}, nil
}
