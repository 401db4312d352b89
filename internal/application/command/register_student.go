// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/query"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/roster"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER STUDENT COMMAND
// Binds a Telegram identity to a roster entry exactly once. The precedence of
// the checks below is the idempotency and conflict-resolution core; do not
// reorder them.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterStudentCommand contains the data needed to register a student.
type RegisterStudentCommand struct {
	// TelegramID is the caller's external identity.
	TelegramID int64

	// Username is the caller's current @username, if known.
	Username string

	// StudentCode is the roster key the caller claims, in raw form.
	StudentCode string

	// FirstName optionally overrides the roster-provided first name.
	FirstName string

	// LastName optionally overrides the roster-provided last name.
	LastName string
}

// Validate validates the command.
func (c RegisterStudentCommand) Validate() error {
	if c.TelegramID <= 0 {
		return errors.New("register_student: telegram_id must be positive")
	}
	if !student.NormalizeCode(c.StudentCode).IsValid() {
		return errors.New("register_student: student_code is required")
	}
	return nil
}

// RegisteredStudent is the projection returned on success.
type RegisteredStudent struct {
	ID          string              `json:"id"`
	StudentID   string              `json:"student_id"`
	FirstName   string              `json:"first_name,omitempty"`
	LastName    string              `json:"last_name,omitempty"`
	GroupID     string              `json:"group_id"`
	GroupName   string              `json:"group_name"`
	AccessLevel student.AccessLevel `json:"access_level"`
}

// RegisterStudentResult is the structured outcome of registration.
type RegisterStudentResult struct {
	Success bool               `json:"success"`
	Student *RegisteredStudent `json:"student,omitempty"`
	Message string             `json:"message"`

	// AlreadyRegistered is true for the idempotent re-registration case.
	AlreadyRegistered bool `json:"already_registered,omitempty"`
}

// RegisterStudentHandler handles student registration.
type RegisterStudentHandler struct {
	roster   *roster.Roster
	students student.Repository
	groups   group.Repository
	cache    query.StudentCache
	log      *logger.Logger
}

// NewRegisterStudentHandler creates a new handler.
func NewRegisterStudentHandler(
	r *roster.Roster,
	students student.Repository,
	groups group.Repository,
	cache query.StudentCache,
	log *logger.Logger,
) *RegisterStudentHandler {
	return &RegisterStudentHandler{
		roster:   r,
		students: students,
		groups:   groups,
		cache:    cache,
		log:      log.With(logger.Component("register_student")),
	}
}

// Handle runs the registration algorithm:
//
//  1. Normalize the code and consult the roster. A miss fails without
//     touching the store.
//  2. An existing student with this code: same identity means idempotent
//     success, a different identity means a conflict.
//  3. An existing student with this identity but another code is a conflict
//     naming the code it is bound to.
//  4. Otherwise insert, taking group and access level from the roster entry.
//     The unique constraints on telegram_id and student_code are the
//     correctness backstop for concurrent registrations; a unique violation
//     here is reported as the "already claimed" outcome, not a fatal error.
//  5. Resolve the group display name for the reply.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*RegisterStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	code := student.NormalizeCode(cmd.StudentCode)

	// Step 1: roster gate, no store access on a miss.
	entry, ok := h.roster.Lookup(cmd.StudentCode)
	if !ok {
		return &RegisterStudentResult{
			Success: false,
			Message: fmt.Sprintf("Student code %q is not authorized for registration. Check the code with your teacher.", code),
		}, nil
	}

	// Step 2: is the code already claimed?
	existing, err := h.students.GetByCode(ctx, code)
	switch {
	case err == nil:
		if existing.TelegramID == student.TelegramID(cmd.TelegramID) {
			// Idempotent re-registration by the same identity.
			reg, rErr := h.projection(ctx, existing)
			if rErr != nil {
				return nil, rErr
			}
			return &RegisterStudentResult{
				Success:           true,
				Student:           reg,
				AlreadyRegistered: true,
				Message:           fmt.Sprintf("You are already registered as %s in group %s.", existing.DisplayName(), reg.GroupName),
			}, nil
		}
		return &RegisterStudentResult{
			Success: false,
			Message: fmt.Sprintf("Student code %q is already claimed by another account.", code),
		}, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("register_student: lookup by code: %w", err)
	}

	// Step 3: one identity cannot hold two roster slots.
	bound, err := h.students.GetByTelegramID(ctx, student.TelegramID(cmd.TelegramID))
	switch {
	case err == nil:
		return &RegisterStudentResult{
			Success: false,
			Message: fmt.Sprintf("Your account is already registered with student code %q.", bound.Code),
		}, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("register_student: lookup by telegram id: %w", err)
	}

	// Step 4: insert. Roster entry is authoritative for group and tier;
	// caller names fall back to roster names.
	g, err := h.groups.GetByName(ctx, entry.GroupName)
	if err != nil {
		return nil, fmt.Errorf("register_student: resolve roster group %q: %w", entry.GroupName, err)
	}

	firstName := cmd.FirstName
	if firstName == "" {
		firstName = entry.FirstName
	}
	lastName := cmd.LastName
	if lastName == "" {
		lastName = entry.LastName
	}

	s, err := student.NewStudent(student.NewStudentParams{
		ID:               uuid.New().String(),
		TelegramID:       student.TelegramID(cmd.TelegramID),
		TelegramUsername: cmd.Username,
		Code:             code,
		FirstName:        firstName,
		LastName:         lastName,
		GroupID:          g.ID,
		AccessLevel:      entry.AccessLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("register_student: build entity: %w", err)
	}

	if err := h.students.Create(ctx, s); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Lost the race against a concurrent registration; the unique
			// constraint is the final arbiter.
			h.log.Warn("registration lost unique-constraint race",
				logger.TelegramID(cmd.TelegramID),
				logger.StudentCode(code.String()),
			)
			return &RegisterStudentResult{
				Success: false,
				Message: fmt.Sprintf("Student code %q is already claimed by another account.", code),
			}, nil
		}
		return nil, fmt.Errorf("register_student: insert: %w", err)
	}

	if h.cache != nil {
		h.cache.Invalidate(ctx, cmd.TelegramID)
	}

	h.log.Info("student registered",
		logger.TelegramID(cmd.TelegramID),
		logger.StudentCode(code.String()),
		logger.GroupName(g.Name),
		logger.String("access_level", string(s.AccessLevel)),
	)

	return &RegisterStudentResult{
		Success: true,
		Student: &RegisteredStudent{
			ID:          s.ID,
			StudentID:   s.Code.String(),
			FirstName:   s.FirstName,
			LastName:    s.LastName,
			GroupID:     g.ID,
			GroupName:   g.Name,
			AccessLevel: s.AccessLevel,
		},
		Message: fmt.Sprintf("Welcome, %s! You are registered in group %s.", s.DisplayName(), g.Name),
	}, nil
}

// projection builds the success payload for an existing student.
func (h *RegisterStudentHandler) projection(ctx context.Context, s *student.Student) (*RegisteredStudent, error) {
	reg := &RegisteredStudent{
		ID:          s.ID,
		StudentID:   s.Code.String(),
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		GroupID:     s.GroupID,
		AccessLevel: s.AccessLevel,
	}
	if s.GroupID != "" {
		g, err := h.groups.GetByID(ctx, s.GroupID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("register_student: resolve group: %w", err)
			}
		} else {
			reg.GroupName = g.Name
		}
	}
	return reg, nil
}
