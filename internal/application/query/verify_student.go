// Package query contains read operations (CQRS - Queries).
// Queries never mutate system state, with one documented exception:
// verification opportunistically refreshes a drifted Telegram username.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// VERIFY STUDENT QUERY
// The gate every other tool relies on: resolves a Telegram identity to a
// student record and enforces the active-binding check. Safe to run on every
// inbound message.
// ══════════════════════════════════════════════════════════════════════════════

// VerifyStudentQuery identifies the caller to verify.
type VerifyStudentQuery struct {
	// TelegramID is the caller's external identity.
	TelegramID int64

	// Username is the caller's current @username, if known. When it differs
	// from the stored one, the stored value is refreshed best-effort.
	Username string
}

// Validate validates the query.
func (q VerifyStudentQuery) Validate() error {
	if q.TelegramID <= 0 {
		return errors.New("verify_student: telegram_id must be positive")
	}
	return nil
}

// VerifiedStudent is the projection returned for an active student.
type VerifiedStudent struct {
	ID          string              `json:"id"`
	StudentID   string              `json:"student_id"`
	FirstName   string              `json:"first_name,omitempty"`
	LastName    string              `json:"last_name,omitempty"`
	GroupID     string              `json:"group_id,omitempty"`
	GroupName   string              `json:"group_name,omitempty"`
	AccessLevel student.AccessLevel `json:"access_level"`
	IsActive    bool                `json:"is_active"`
}

// VerifyStudentResult is the structured outcome of verification.
type VerifyStudentResult struct {
	Verified bool             `json:"verified"`
	Student  *VerifiedStudent `json:"student,omitempty"`
	Message  string           `json:"message"`
}

// StudentCache caches verified projections to keep the per-message gate cheap.
// The cache is a display hint only: the student row, including is_active, is
// re-read from the store on every verification, so a stale projection can
// never outlive a deactivation. Implementations live in
// infrastructure/persistence.
type StudentCache interface {
	// GetVerified returns a cached projection, or false on miss.
	// Cache errors must degrade to a miss, never fail verification.
	GetVerified(ctx context.Context, telegramID int64) (*VerifiedStudent, bool)

	// SetVerified stores a projection with the cache's TTL.
	SetVerified(ctx context.Context, telegramID int64, v *VerifiedStudent)

	// Invalidate drops a cached projection (after registration or
	// profile changes).
	Invalidate(ctx context.Context, telegramID int64)
}

// VerifyStudentHandler handles student verification.
type VerifyStudentHandler struct {
	students student.Repository
	groups   group.Repository
	cache    StudentCache
	log      *logger.Logger
}

// NewVerifyStudentHandler creates a new handler.
func NewVerifyStudentHandler(
	students student.Repository,
	groups group.Repository,
	cache StudentCache,
	log *logger.Logger,
) *VerifyStudentHandler {
	return &VerifyStudentHandler{
		students: students,
		groups:   groups,
		cache:    cache,
		log:      log.With(logger.Component("verify_student")),
	}
}

// Handle resolves the caller's identity and applies the activity gate.
// Unknown identity and deactivated students are reported as structured
// failures; only store errors surface as Go errors.
//
// The activity gate always runs against the store: a cached projection is
// consulted only after the fresh row passed it, and only to spare the
// group-name join. A projection cached before a deactivation is dropped.
func (h *VerifyStudentHandler) Handle(ctx context.Context, q VerifyStudentQuery) (*VerifyStudentResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s, err := h.students.GetByTelegramID(ctx, student.TelegramID(q.TelegramID))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.invalidate(ctx, q.TelegramID)
			return &VerifyStudentResult{
				Verified: false,
				Message:  "You are not registered. Send your student code to register first.",
			}, nil
		}
		return nil, fmt.Errorf("verify_student: lookup: %w", err)
	}

	if !s.IsActive {
		h.invalidate(ctx, q.TelegramID)
		return &VerifyStudentResult{
			Verified: false,
			Message:  "Your account is deactivated. Contact your teacher.",
		}, nil
	}

	// Opportunistic username refresh: failure is logged and swallowed,
	// it must never fail verification.
	if q.Username != "" && q.Username != s.TelegramUsername {
		if err := h.students.UpdateUsername(ctx, s.ID, q.Username); err != nil {
			h.log.Warn("failed to refresh telegram username",
				logger.TelegramID(q.TelegramID),
				logger.Err(err),
			)
		} else {
			s.TelegramUsername = q.Username
		}
	}

	projection := &VerifiedStudent{
		ID:          s.ID,
		StudentID:   s.Code.String(),
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		GroupID:     s.GroupID,
		AccessLevel: s.AccessLevel,
		IsActive:    s.IsActive,
	}

	fromCache := false
	if s.GroupID != "" {
		if cached, ok := h.cachedProjection(ctx, q.TelegramID); ok && cached.GroupID == s.GroupID && cached.GroupName != "" {
			projection.GroupName = cached.GroupName
			fromCache = true
		} else {
			g, err := h.groups.GetByID(ctx, s.GroupID)
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) {
					return nil, fmt.Errorf("verify_student: resolve group: %w", err)
				}
				// Stale group reference is not fatal for verification.
				h.log.Warn("student references missing group",
					logger.TelegramID(q.TelegramID),
					logger.String("group_id", s.GroupID),
				)
			} else {
				projection.GroupName = g.Name
			}
		}
	}

	if !fromCache && h.cache != nil {
		h.cache.SetVerified(ctx, q.TelegramID, projection)
	}

	return &VerifyStudentResult{
		Verified: true,
		Student:  projection,
		Message:  fmt.Sprintf("Verified: %s (%s, %s).", s.DisplayName(), projection.GroupName, s.AccessLevel),
	}, nil
}

func (h *VerifyStudentHandler) cachedProjection(ctx context.Context, telegramID int64) (*VerifiedStudent, bool) {
	if h.cache == nil {
		return nil, false
	}
	return h.cache.GetVerified(ctx, telegramID)
}

func (h *VerifyStudentHandler) invalidate(ctx context.Context, telegramID int64) {
	if h.cache != nil {
		h.cache.Invalidate(ctx, telegramID)
	}
}
