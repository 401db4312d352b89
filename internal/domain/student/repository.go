package student

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Контракт для работы с хранилищем. Реализация - в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища над учениками.
type Repository interface {
	// Create создаёт нового ученика.
	// Возвращает shared.ErrAlreadyExists при нарушении уникальности
	// telegram_id или student_code.
	Create(ctx context.Context, s *Student) error

	// GetByID возвращает ученика по внутреннему ID.
	// Возвращает shared.ErrStudentNotFound, если ученик не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByTelegramID возвращает ученика по Telegram ID.
	// Возвращает shared.ErrStudentNotFound, если ученик не найден.
	GetByTelegramID(ctx context.Context, telegramID TelegramID) (*Student, error)

	// GetByCode возвращает ученика по нормализованному коду.
	// Возвращает shared.ErrStudentNotFound, если ученик не найден.
	GetByCode(ctx context.Context, code Code) (*Student, error)

	// UpdateUsername обновляет @username ученика.
	UpdateUsername(ctx context.Context, id string, username string) error
}
