package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/roster"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

const registrationRoster = `
students:
  - student_code: st001
    group: "10-A"
    first_name: Aidana
    last_name: Serik
  - student_code: st002
    group: "10-A"
    access_level: monitor
`

func newRegisterFixture(t *testing.T) (*RegisterStudentHandler, *memStudents, *recordingCache) {
	t.Helper()

	r, err := roster.Parse([]byte(registrationRoster))
	require.NoError(t, err)

	students := newMemStudents()
	groups := newMemGroups(&group.Group{ID: "grp-10a", Name: "10-A"})
	cache := &recordingCache{}

	h := NewRegisterStudentHandler(r, students, groups, cache, logger.Default())
	return h, students, cache
}

func TestRegisterStudent_Success(t *testing.T) {
	h, students, cache := newRegisterFixture(t)

	res, err := h.Handle(context.Background(), RegisterStudentCommand{
		TelegramID:  100,
		Username:    "aidana",
		StudentCode: "ST001",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.AlreadyRegistered)
	require.NotNil(t, res.Student)
	assert.Equal(t, "st001", res.Student.StudentID)
	assert.Equal(t, "10-A", res.Student.GroupName)
	assert.Equal(t, student.AccessStudent, res.Student.AccessLevel)
	// Имена берутся из ростера, если вызов их не передал
	assert.Equal(t, "Aidana", res.Student.FirstName)

	stored, err := students.GetByCode(context.Background(), "st001")
	require.NoError(t, err)
	assert.Equal(t, student.TelegramID(100), stored.TelegramID)
	assert.True(t, stored.IsActive)

	assert.Equal(t, []int64{100}, cache.invalidated)
}

func TestRegisterStudent_MonitorTierFromRoster(t *testing.T) {
	h, _, _ := newRegisterFixture(t)

	res, err := h.Handle(context.Background(), RegisterStudentCommand{
		TelegramID:  200,
		StudentCode: "st002",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, student.AccessMonitor, res.Student.AccessLevel)
}

func TestRegisterStudent_Idempotent(t *testing.T) {
	h, _, _ := newRegisterFixture(t)
	ctx := context.Background()

	first, err := h.Handle(ctx, RegisterStudentCommand{TelegramID: 100, StudentCode: "st001"})
	require.NoError(t, err)
	require.True(t, first.Success)

	// Повторная регистрация той же личностью с тем же кодом
	second, err := h.Handle(ctx, RegisterStudentCommand{TelegramID: 100, StudentCode: "st001"})
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.True(t, second.AlreadyRegistered)
	assert.Equal(t, first.Student.ID, second.Student.ID)
}

func TestRegisterStudent_CodeClaimedByOther(t *testing.T) {
	h, _, _ := newRegisterFixture(t)
	ctx := context.Background()

	_, err := h.Handle(ctx, RegisterStudentCommand{TelegramID: 100, StudentCode: "st001"})
	require.NoError(t, err)

	res, err := h.Handle(ctx, RegisterStudentCommand{TelegramID: 999, StudentCode: "st001"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already claimed")
}

func TestRegisterStudent_IdentityAlreadyBound(t *testing.T) {
	h, _, _ := newRegisterFixture(t)
	ctx := context.Background()

	_, err := h.Handle(ctx, RegisterStudentCommand{TelegramID: 100, StudentCode: "st001"})
	require.NoError(t, err)

	// Та же личность пытается занять второй код
	res, err := h.Handle(ctx, RegisterStudentCommand{TelegramID: 100, StudentCode: "st002"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "st001")
}

func TestRegisterStudent_RosterMiss(t *testing.T) {
	h, students, _ := newRegisterFixture(t)

	res, err := h.Handle(context.Background(), RegisterStudentCommand{
		TelegramID:  100,
		StudentCode: "st999",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not authorized")

	// Хранилище не тронуто
	_, err = students.GetByCode(context.Background(), "st999")
	assert.Error(t, err)
}

func TestRegisterStudent_UniqueConstraintRace(t *testing.T) {
	h, students, _ := newRegisterFixture(t)

	// Вставка проигрывает гонку: уникальное ограничение срабатывает,
	// хотя предварительные проверки ничего не нашли.
	students.createErr = shared.ErrStudentExists

	res, err := h.Handle(context.Background(), RegisterStudentCommand{
		TelegramID:  100,
		StudentCode: "st001",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already claimed")
}

func TestRegisterStudent_Validation(t *testing.T) {
	h, _, _ := newRegisterFixture(t)

	_, err := h.Handle(context.Background(), RegisterStudentCommand{TelegramID: 0, StudentCode: "st001"})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), RegisterStudentCommand{TelegramID: 100, StudentCode: "   "})
	assert.Error(t, err)
}
