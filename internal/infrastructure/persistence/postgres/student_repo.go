package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository backed by PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `
	id, telegram_id, telegram_username, student_code,
	first_name, last_name, group_id, access_level,
	is_active, created_at, updated_at`

// Create inserts a new student record.
// Unique constraint violations on telegram_id or student_code surface as
// shared.ErrAlreadyExists so the registration flow can resolve races.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (
			id, telegram_id, telegram_username, student_code,
			first_name, last_name, group_id, access_level,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		int64(s.TelegramID),
		s.TelegramUsername,
		string(s.Code),
		s.FirstName,
		s.LastName,
		s.GroupID,
		string(s.AccessLevel),
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("student", "create", shared.ErrAlreadyExists,
				"student with this telegram id or code already exists")
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID retrieves a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)

	return r.scanStudent(r.conn.QueryRow(ctx, query, id))
}

// GetByTelegramID retrieves a student by their Telegram account ID.
func (r *StudentRepository) GetByTelegramID(ctx context.Context, telegramID student.TelegramID) (*student.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE telegram_id = $1", studentColumns)

	return r.scanStudent(r.conn.QueryRow(ctx, query, int64(telegramID)))
}

// GetByCode retrieves a student by their roster code.
func (r *StudentRepository) GetByCode(ctx context.Context, code student.Code) (*student.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE student_code = $1", studentColumns)

	return r.scanStudent(r.conn.QueryRow(ctx, query, string(code)))
}

// UpdateUsername refreshes the cached Telegram username for a student.
func (r *StudentRepository) UpdateUsername(ctx context.Context, id string, username string) error {
	query := `
		UPDATE students
		SET telegram_username = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.conn.Exec(ctx, query, id, username)
	if err != nil {
		return fmt.Errorf("failed to update student username: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var telegramID int64
	var code, accessLevel string

	err := row.Scan(
		&s.ID,
		&telegramID,
		&s.TelegramUsername,
		&code,
		&s.FirstName,
		&s.LastName,
		&s.GroupID,
		&accessLevel,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.TelegramID = student.TelegramID(telegramID)
	s.Code = student.Code(code)
	s.AccessLevel = student.AccessLevel(accessLevel)

	return &s, nil
}
