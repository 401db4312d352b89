// Package student содержит доменную модель ученика классного бота.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// TelegramID представляет уникальный идентификатор пользователя Telegram.
// Это "внешняя личность" ученика - она приходит из транспорта и не совпадает
// с внутренним ID записи.
type TelegramID int64

// IsValid проверяет, что TelegramID положительный.
func (t TelegramID) IsValid() bool {
	return t > 0
}

// Code представляет код ученика из списочного состава (roster key),
// например "st001". Хранится и сравнивается в нормализованной форме.
type Code string

// NormalizeCode приводит код ученика к канонической форме:
// обрезает пробелы и переводит в нижний регистр.
func NormalizeCode(raw string) Code {
	return Code(strings.ToLower(strings.TrimSpace(raw)))
}

// IsValid проверяет корректность кода ученика.
func (c Code) IsValid() bool {
	s := string(c)
	return len(s) >= 2 && len(s) <= 50 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление кода.
func (c Code) String() string {
	return string(c)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCESS LEVELS
// Четыре уровня доступа по возрастанию привилегий:
// student ⊂ monitor ⊂ admin ⊂ owner.
// ══════════════════════════════════════════════════════════════════════════════

// AccessLevel определяет уровень доступа ученика.
type AccessLevel string

const (
	// AccessStudent - просмотр домашних заданий своей группы.
	AccessStudent AccessLevel = "student"
	// AccessMonitor - староста: плюс добавление и удаление заданий.
	AccessMonitor AccessLevel = "monitor"
	// AccessAdmin - администратор: плюс просмотр заданий любых групп.
	AccessAdmin AccessLevel = "admin"
	// AccessOwner - владелец бота: надмножество admin, зарезервирован
	// для будущих операций управления группами.
	AccessOwner AccessLevel = "owner"
)

// IsValid проверяет, что уровень доступа корректен.
func (a AccessLevel) IsValid() bool {
	switch a {
	case AccessStudent, AccessMonitor, AccessAdmin, AccessOwner:
		return true
	default:
		return false
	}
}

// rank возвращает числовой ранг уровня для сравнения привилегий.
func (a AccessLevel) rank() int {
	switch a {
	case AccessStudent:
		return 0
	case AccessMonitor:
		return 1
	case AccessAdmin:
		return 2
	case AccessOwner:
		return 3
	default:
		return -1
	}
}

// AtLeast возвращает true, если уровень не ниже указанного.
func (a AccessLevel) AtLeast(other AccessLevel) bool {
	return a.rank() >= other.rank()
}

// CanManageHomework возвращает true, если уровень позволяет добавлять
// и удалять домашние задания.
func (a AccessLevel) CanManageHomework() bool {
	return a.AtLeast(AccessMonitor)
}

// CanViewAllGroups возвращает true, если уровень позволяет смотреть
// задания чужих групп.
func (a AccessLevel) CanViewAllGroups() bool {
	return a.AtLeast(AccessAdmin)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - центральная сущность системы: привязка Telegram-личности
// к записи списочного состава.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// TelegramID - идентификатор пользователя в Telegram. Уникален.
	TelegramID TelegramID

	// TelegramUsername - @username в Telegram (может меняться со временем).
	TelegramUsername string

	// Code - нормализованный код ученика из списочного состава. Уникален.
	Code Code

	// FirstName - имя (может быть пустым).
	FirstName string

	// LastName - фамилия (может быть пустой).
	LastName string

	// GroupID - группа ученика (может быть пустым до распределения).
	GroupID string

	// AccessLevel - уровень доступа, назначается по списочному составу.
	AccessLevel AccessLevel

	// IsActive - деактивированный ученик считается неаутентифицированным
	// для всех последующих проверок.
	IsActive bool

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewStudentParams содержит параметры для создания ученика.
type NewStudentParams struct {
	ID               string
	TelegramID       TelegramID
	TelegramUsername string
	Code             Code
	FirstName        string
	LastName         string
	GroupID          string
	AccessLevel      AccessLevel
}

// NewStudent создаёт нового активного ученика с валидацией.
func NewStudent(p NewStudentParams) (*Student, error) {
	if p.ID == "" {
		return nil, ErrInvalidID
	}
	if !p.TelegramID.IsValid() {
		return nil, ErrInvalidTelegramID
	}
	if !p.Code.IsValid() {
		return nil, ErrInvalidCode
	}
	level := p.AccessLevel
	if level == "" {
		level = AccessStudent
	}
	if !level.IsValid() {
		return nil, ErrInvalidAccessLevel
	}

	now := time.Now().UTC()
	return &Student{
		ID:               p.ID,
		TelegramID:       p.TelegramID,
		TelegramUsername: p.TelegramUsername,
		Code:             p.Code,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		GroupID:          p.GroupID,
		AccessLevel:      level,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// DisplayName возвращает отображаемое имя ученика.
// Если имя и фамилия пустые - возвращает @username или код.
func (s *Student) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name != "" {
		return name
	}
	if s.TelegramUsername != "" {
		return "@" + s.TelegramUsername
	}
	return s.Code.String()
}

// UpdateUsername обновляет @username, если он изменился.
// Возвращает true, если было изменение.
func (s *Student) UpdateUsername(username string) bool {
	if username == "" || username == s.TelegramUsername {
		return false
	}
	s.TelegramUsername = username
	s.UpdatedAt = time.Now().UTC()
	return true
}

// Deactivate деактивирует ученика.
func (s *Student) Deactivate() {
	s.IsActive = false
	s.UpdatedAt = time.Now().UTC()
}
