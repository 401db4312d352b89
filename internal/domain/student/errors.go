package student

import "errors"

// Доменные ошибки пакета student.
var (
	// ErrInvalidID - пустой внутренний идентификатор.
	ErrInvalidID = errors.New("invalid student id: must not be empty")

	// ErrInvalidTelegramID - невалидный Telegram ID.
	ErrInvalidTelegramID = errors.New("invalid telegram id: must be positive")

	// ErrInvalidCode - невалидный код ученика.
	ErrInvalidCode = errors.New("invalid student code: must be 2-50 chars without whitespace")

	// ErrInvalidAccessLevel - неизвестный уровень доступа.
	ErrInvalidAccessLevel = errors.New("invalid access level")
)
