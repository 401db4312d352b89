package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/homework"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST HOMEWORK QUERY
// Group scope is enforced server-side: a non-admin caller gets their own
// group no matter which group the request names.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultListLimit is used when the caller does not supply a limit.
	DefaultListLimit = 10

	// MaxListLimit caps caller-supplied limits.
	MaxListLimit = 50
)

// ListHomeworkQuery describes the listing request.
type ListHomeworkQuery struct {
	// TelegramID is the caller's external identity.
	TelegramID int64

	// GroupName optionally requests another group. Honored only for
	// admin/owner callers; silently replaced by the caller's own group
	// otherwise.
	GroupName string

	// Limit is the maximum number of rows to return. Zero means
	// DefaultListLimit.
	Limit int
}

// Validate validates the query.
func (q ListHomeworkQuery) Validate() error {
	if q.TelegramID <= 0 {
		return errors.New("list_homework: telegram_id must be positive")
	}
	if q.Limit < 0 {
		return errors.New("list_homework: limit must not be negative")
	}
	return nil
}

// HomeworkItem is one row of the listing.
type HomeworkItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	GroupName   string `json:"group_name"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
}

// ListHomeworkResult is the structured outcome.
type ListHomeworkResult struct {
	Success   bool           `json:"success"`
	Items     []HomeworkItem `json:"items,omitempty"`
	Message   string         `json:"message"`
	GroupName string         `json:"group_name,omitempty"`
}

// ListHomeworkHandler handles homework listing.
type ListHomeworkHandler struct {
	students  student.Repository
	groups    group.Repository
	homeworks homework.Repository
	log       *logger.Logger
}

// NewListHomeworkHandler creates a new handler.
func NewListHomeworkHandler(
	students student.Repository,
	groups group.Repository,
	homeworks homework.Repository,
	log *logger.Logger,
) *ListHomeworkHandler {
	return &ListHomeworkHandler{
		students:  students,
		groups:    groups,
		homeworks: homeworks,
		log:       log.With(logger.Component("list_homework")),
	}
}

// Handle lists homework for the effective group, newest first.
func (h *ListHomeworkHandler) Handle(ctx context.Context, q ListHomeworkQuery) (*ListHomeworkResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	caller, err := h.students.GetByTelegramID(ctx, student.TelegramID(q.TelegramID))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &ListHomeworkResult{
				Success: false,
				Message: "You are not registered. Send your student code to register first.",
			}, nil
		}
		return nil, fmt.Errorf("list_homework: resolve caller: %w", err)
	}
	if !caller.IsActive {
		return &ListHomeworkResult{
			Success: false,
			Message: "Your account is deactivated. Contact your teacher.",
		}, nil
	}

	// Effective group: requested name counts only for cross-group viewers.
	groupID := caller.GroupID
	requested := strings.TrimSpace(q.GroupName)
	if requested != "" && caller.AccessLevel.CanViewAllGroups() {
		g, err := h.groups.GetByName(ctx, requested)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return &ListHomeworkResult{
					Success: false,
					Message: fmt.Sprintf("Group %q was not found.", requested),
				}, nil
			}
			return nil, fmt.Errorf("list_homework: resolve group: %w", err)
		}
		groupID = g.ID
	}

	if groupID == "" {
		return &ListHomeworkResult{
			Success: false,
			Message: "You are not assigned to a group yet.",
		}, nil
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := h.homeworks.ListByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("list_homework: list: %w", err)
	}

	groupName := ""
	items := make([]HomeworkItem, 0, len(rows))
	for _, r := range rows {
		item := HomeworkItem{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Subject:     r.Subject,
			GroupName:   r.GroupName,
			CreatedBy:   r.CreatorName,
			CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04"),
		}
		if r.DueDate != nil {
			item.DueDate = r.DueDate.Format("2006-01-02 15:04")
		}
		items = append(items, item)
		groupName = r.GroupName
	}

	if len(items) == 0 {
		// Listing an empty group is a success with an informative message.
		if g, gErr := h.groups.GetByID(ctx, groupID); gErr == nil {
			groupName = g.Name
		}
		return &ListHomeworkResult{
			Success:   true,
			Items:     items,
			GroupName: groupName,
			Message:   "No homework found for this group.",
		}, nil
	}

	return &ListHomeworkResult{
		Success:   true,
		Items:     items,
		GroupName: groupName,
		Message:   fmt.Sprintf("Found %d homework assignment(s) for group %s.", len(items), groupName),
	}, nil
}
