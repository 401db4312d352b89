package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, Code("st2024015"), NormalizeCode("ST2024015"))
	assert.Equal(t, Code("st2024015"), NormalizeCode("  st2024015  "))
	assert.Equal(t, Code("st2024015"), NormalizeCode("\tSt2024015\n"))
}

func TestCode_IsValid(t *testing.T) {
	assert.True(t, Code("st001").IsValid())
	assert.True(t, Code("ab").IsValid())

	assert.False(t, Code("").IsValid())
	assert.False(t, Code("a").IsValid())
	assert.False(t, Code("st 001").IsValid())
	assert.False(t, Code("st\t001").IsValid())
}

func TestAccessLevel_AtLeast(t *testing.T) {
	assert.True(t, AccessStudent.AtLeast(AccessStudent))
	assert.True(t, AccessMonitor.AtLeast(AccessStudent))
	assert.True(t, AccessAdmin.AtLeast(AccessMonitor))
	assert.True(t, AccessOwner.AtLeast(AccessAdmin))

	assert.False(t, AccessStudent.AtLeast(AccessMonitor))
	assert.False(t, AccessMonitor.AtLeast(AccessAdmin))
	assert.False(t, AccessAdmin.AtLeast(AccessOwner))

	// Неизвестный уровень ниже любого валидного
	assert.False(t, AccessLevel("teacher").AtLeast(AccessStudent))
}

func TestAccessLevel_Capabilities(t *testing.T) {
	assert.False(t, AccessStudent.CanManageHomework())
	assert.True(t, AccessMonitor.CanManageHomework())
	assert.True(t, AccessAdmin.CanManageHomework())
	assert.True(t, AccessOwner.CanManageHomework())

	assert.False(t, AccessStudent.CanViewAllGroups())
	assert.False(t, AccessMonitor.CanViewAllGroups())
	assert.True(t, AccessAdmin.CanViewAllGroups())
	assert.True(t, AccessOwner.CanViewAllGroups())
}

func TestNewStudent(t *testing.T) {
	s, err := NewStudent(NewStudentParams{
		ID:         "id-1",
		TelegramID: 12345,
		Code:       "st001",
		FirstName:  "Aidana",
		GroupID:    "group-1",
	})
	assert.NoError(t, err)
	assert.True(t, s.IsActive)
	assert.Equal(t, AccessStudent, s.AccessLevel, "empty access level defaults to student")
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewStudent_Validation(t *testing.T) {
	_, err := NewStudent(NewStudentParams{TelegramID: 1, Code: "st001"})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewStudent(NewStudentParams{ID: "id-1", TelegramID: 0, Code: "st001"})
	assert.ErrorIs(t, err, ErrInvalidTelegramID)

	_, err = NewStudent(NewStudentParams{ID: "id-1", TelegramID: -5, Code: "st001"})
	assert.ErrorIs(t, err, ErrInvalidTelegramID)

	_, err = NewStudent(NewStudentParams{ID: "id-1", TelegramID: 1, Code: ""})
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = NewStudent(NewStudentParams{ID: "id-1", TelegramID: 1, Code: "st001", AccessLevel: "teacher"})
	assert.ErrorIs(t, err, ErrInvalidAccessLevel)
}

func TestStudent_DisplayName(t *testing.T) {
	s := &Student{FirstName: "Aidana", LastName: "Serik", TelegramUsername: "aidana", Code: "st001"}
	assert.Equal(t, "Aidana Serik", s.DisplayName())

	s = &Student{TelegramUsername: "aidana", Code: "st001"}
	assert.Equal(t, "@aidana", s.DisplayName())

	s = &Student{Code: "st001"}
	assert.Equal(t, "st001", s.DisplayName())
}

func TestStudent_UpdateUsername(t *testing.T) {
	s := &Student{TelegramUsername: "old"}

	assert.False(t, s.UpdateUsername(""))
	assert.False(t, s.UpdateUsername("old"))
	assert.Equal(t, "old", s.TelegramUsername)

	assert.True(t, s.UpdateUsername("new"))
	assert.Equal(t, "new", s.TelegramUsername)
}

func TestStudent_Deactivate(t *testing.T) {
	s := &Student{IsActive: true}
	s.Deactivate()
	assert.False(t, s.IsActive)
}
