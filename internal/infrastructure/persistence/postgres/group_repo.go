package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROUP REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// GroupRepository implements group.Repository backed by PostgreSQL.
type GroupRepository struct {
	conn *Connection
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(conn *Connection) *GroupRepository {
	return &GroupRepository{conn: conn}
}

// GetByID retrieves a group by its ID.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*group.Group, error) {
	query := `
		SELECT id, name, description, created_at
		FROM groups
		WHERE id = $1`

	return r.scanGroup(r.conn.QueryRow(ctx, query, id))
}

// GetByName retrieves a group by its unique name.
func (r *GroupRepository) GetByName(ctx context.Context, name string) (*group.Group, error) {
	query := `
		SELECT id, name, description, created_at
		FROM groups
		WHERE name = $1`

	return r.scanGroup(r.conn.QueryRow(ctx, query, name))
}

// Ensure returns the group with the given name, creating it if missing.
// Used at startup to provision groups referenced by the roster file.
func (r *GroupRepository) Ensure(ctx context.Context, name string, description string) (*group.Group, error) {
	query := `
		INSERT INTO groups (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, created_at`

	return r.scanGroup(r.conn.QueryRow(ctx, query, uuid.New().String(), name, description))
}

func (r *GroupRepository) scanGroup(row pgx.Row) (*group.Group, error) {
	var g group.Group

	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}

	return &g, nil
}
