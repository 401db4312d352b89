package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/homework"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// HomeworkRepository implements homework.Repository backed by PostgreSQL.
type HomeworkRepository struct {
	conn *Connection
}

// NewHomeworkRepository creates a new homework repository.
func NewHomeworkRepository(conn *Connection) *HomeworkRepository {
	return &HomeworkRepository{conn: conn}
}

// Create inserts a new homework record.
func (r *HomeworkRepository) Create(ctx context.Context, hw *homework.Homework) error {
	query := `
		INSERT INTO homeworks (
			id, title, description, subject, due_date,
			group_id, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.conn.Exec(ctx, query,
		hw.ID,
		hw.Title,
		hw.Description,
		hw.Subject,
		hw.DueDate,
		hw.GroupID,
		hw.CreatedBy,
		hw.CreatedAt,
		hw.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.NewDomainError("homework", "create", shared.ErrValidation,
				"homework references an unknown group or creator")
		}
		return fmt.Errorf("failed to create homework: %w", err)
	}

	return nil
}

// GetByID retrieves a homework entry by ID.
func (r *HomeworkRepository) GetByID(ctx context.Context, id string) (*homework.Homework, error) {
	query := `
		SELECT id, title, description, subject, due_date,
		       group_id, created_by, created_at, updated_at
		FROM homeworks
		WHERE id = $1`

	var hw homework.Homework
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&hw.ID,
		&hw.Title,
		&hw.Description,
		&hw.Subject,
		&hw.DueDate,
		&hw.GroupID,
		&hw.CreatedBy,
		&hw.CreatedAt,
		&hw.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrHomeworkNotFound
		}
		return nil, fmt.Errorf("failed to scan homework: %w", err)
	}

	return &hw, nil
}

// ListByGroup returns the newest homework entries for a group, enriched
// with the group name and creator display name.
func (r *HomeworkRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]homework.Detailed, error) {
	// LEFT JOINs: a row must survive a missing group or creator and
	// degrade to the display fallbacks instead of disappearing.
	query := `
		SELECT h.id, h.title, h.description, h.subject, h.due_date,
		       h.group_id, h.created_by, h.created_at, h.updated_at,
		       COALESCE(g.name, 'unknown group'),
		       COALESCE(s.first_name, ''), COALESCE(s.last_name, ''),
		       COALESCE(s.telegram_username, ''), COALESCE(s.student_code, '')
		FROM homeworks h
		LEFT JOIN groups g ON g.id = h.group_id
		LEFT JOIN students s ON s.id = h.created_by
		WHERE h.group_id = $1
		ORDER BY h.created_at DESC
		LIMIT $2`

	rows, err := r.conn.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list homework: %w", err)
	}
	defer rows.Close()

	var items []homework.Detailed
	for rows.Next() {
		var d homework.Detailed
		var firstName, lastName, username, code string

		err := rows.Scan(
			&d.ID,
			&d.Title,
			&d.Description,
			&d.Subject,
			&d.DueDate,
			&d.GroupID,
			&d.CreatedBy,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.GroupName,
			&firstName,
			&lastName,
			&username,
			&code,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan homework row: %w", err)
		}

		d.CreatorName = displayName(firstName, lastName, username, code)
		items = append(items, d)
	}

	return items, rows.Err()
}

// Delete removes a homework entry by ID.
func (r *HomeworkRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM homeworks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete homework: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shared.ErrHomeworkNotFound
	}

	return nil
}

func displayName(firstName, lastName, username, code string) string {
	full := strings.TrimSpace(firstName + " " + lastName)
	if full != "" {
		return full
	}
	if username != "" {
		return "@" + username
	}
	if code != "" {
		return code
	}
	return "unknown"
}
