package agent

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/command"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/query"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/homework"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/roster"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/gemini"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY STORES
// The dispatcher is wired to real handlers over map-backed repositories, so
// these tests cover the whole tool path below the model.
// ══════════════════════════════════════════════════════════════════════════════

type stubStudents struct {
	byID map[string]*student.Student
}

func (m *stubStudents) Create(ctx context.Context, s *student.Student) error {
	for _, existing := range m.byID {
		if existing.TelegramID == s.TelegramID || existing.Code == s.Code {
			return shared.ErrStudentExists
		}
	}
	m.byID[s.ID] = s
	return nil
}

func (m *stubStudents) GetByID(ctx context.Context, id string) (*student.Student, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (m *stubStudents) GetByTelegramID(ctx context.Context, telegramID student.TelegramID) (*student.Student, error) {
	for _, s := range m.byID {
		if s.TelegramID == telegramID {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (m *stubStudents) GetByCode(ctx context.Context, code student.Code) (*student.Student, error) {
	for _, s := range m.byID {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (m *stubStudents) UpdateUsername(ctx context.Context, id string, username string) error {
	if s, ok := m.byID[id]; ok {
		s.TelegramUsername = username
		return nil
	}
	return shared.ErrStudentNotFound
}

type stubGroups struct {
	byName map[string]*group.Group
}

func (m *stubGroups) GetByID(ctx context.Context, id string) (*group.Group, error) {
	for _, g := range m.byName {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, shared.ErrGroupNotFound
}

func (m *stubGroups) GetByName(ctx context.Context, name string) (*group.Group, error) {
	if g, ok := m.byName[name]; ok {
		return g, nil
	}
	return nil, shared.ErrGroupNotFound
}

func (m *stubGroups) Ensure(ctx context.Context, name, description string) (*group.Group, error) {
	if g, ok := m.byName[name]; ok {
		return g, nil
	}
	g := &group.Group{ID: "group-" + name, Name: name}
	m.byName[name] = g
	return g, nil
}

type stubHomeworks struct {
	byID map[string]*homework.Homework
}

func (m *stubHomeworks) Create(ctx context.Context, h *homework.Homework) error {
	m.byID[h.ID] = h
	return nil
}

func (m *stubHomeworks) GetByID(ctx context.Context, id string) (*homework.Homework, error) {
	if h, ok := m.byID[id]; ok {
		return h, nil
	}
	return nil, shared.ErrHomeworkNotFound
}

func (m *stubHomeworks) ListByGroup(ctx context.Context, groupID string, limit int) ([]homework.Detailed, error) {
	var rows []homework.Detailed
	for _, h := range m.byID {
		if h.GroupID == groupID {
			rows = append(rows, homework.Detailed{Homework: *h, GroupName: groupID, CreatorName: "monitor"})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *stubHomeworks) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrHomeworkNotFound
	}
	delete(m.byID, id)
	return nil
}

const dispatcherRoster = `
students:
  - student_code: st001
    group: "10-A"
  - student_code: st002
    group: "10-A"
    access_level: monitor
`

func newDispatcherFixture(t *testing.T) (*Dispatcher, *stubHomeworks) {
	t.Helper()

	r, err := roster.Parse([]byte(dispatcherRoster))
	require.NoError(t, err)

	students := &stubStudents{byID: map[string]*student.Student{
		"s-monitor": {
			ID: "s-monitor", TelegramID: 200, Code: "st002", GroupID: "grp-10a",
			AccessLevel: student.AccessMonitor, IsActive: true,
		},
	}}
	groups := &stubGroups{byName: map[string]*group.Group{
		"10-A": {ID: "grp-10a", Name: "10-A"},
	}}
	homeworks := &stubHomeworks{byID: map[string]*homework.Homework{
		"hw-1": {
			ID: "hw-1", Title: "Algebra", GroupID: "grp-10a",
			CreatedBy: "s-monitor", CreatedAt: time.Now().UTC(),
		},
	}}

	log := logger.Default()
	verify := query.NewVerifyStudentHandler(students, groups, nil, log)
	register := command.NewRegisterStudentHandler(r, students, groups, nil, log)
	add := command.NewAddHomeworkHandler(students, groups, homeworks, log)
	list := query.NewListHomeworkHandler(students, groups, homeworks, log)
	del := command.NewDeleteHomeworkHandler(students, homeworks, log)

	return NewDispatcher(verify, register, add, list, del, log), homeworks
}

func decodeResult(t *testing.T, res gemini.ToolResult) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &payload))
	return payload
}

func TestDispatch_VerifyStudent(t *testing.T) {
	d, _ := newDispatcherFixture(t)

	res := d.Dispatch(context.Background(), Caller{TelegramID: 200}, gemini.ToolCall{Name: ToolVerifyStudent})
	assert.False(t, res.IsError)
	payload := decodeResult(t, res)
	assert.Equal(t, true, payload["verified"])

	res = d.Dispatch(context.Background(), Caller{TelegramID: 999}, gemini.ToolCall{Name: ToolVerifyStudent})
	assert.False(t, res.IsError, "business failures are results, not errors")
	payload = decodeResult(t, res)
	assert.Equal(t, false, payload["verified"])
}

func TestDispatch_RegisterInjectsCallerIdentity(t *testing.T) {
	d, _ := newDispatcherFixture(t)

	// Модель передаёт только student_id; личность берётся из caller
	res := d.Dispatch(context.Background(),
		Caller{TelegramID: 100, Username: "aidana"},
		gemini.ToolCall{Name: ToolRegisterStudent, Args: map[string]interface{}{
			"student_id": "st001",
			// Попытка модели подменить личность игнорируется
			"telegram_id": float64(999),
		}},
	)
	assert.False(t, res.IsError)
	payload := decodeResult(t, res)
	require.Equal(t, true, payload["success"])

	st := payload["student"].(map[string]interface{})
	assert.Equal(t, "st001", st["student_id"])
}

func TestDispatch_AddAndDeleteHomework(t *testing.T) {
	d, homeworks := newDispatcherFixture(t)
	ctx := context.Background()

	res := d.Dispatch(ctx, Caller{TelegramID: 200}, gemini.ToolCall{
		Name: ToolAddHomework,
		Args: map[string]interface{}{"title": "Essay", "due_date": "2026-09-15"},
	})
	payload := decodeResult(t, res)
	require.Equal(t, true, payload["success"])
	id := payload["id"].(string)

	res = d.Dispatch(ctx, Caller{TelegramID: 200}, gemini.ToolCall{
		Name: ToolDeleteHomework,
		Args: map[string]interface{}{"homework_id": id},
	})
	payload = decodeResult(t, res)
	assert.Equal(t, true, payload["success"])

	_, err := homeworks.GetByID(ctx, id)
	assert.Error(t, err)
}

func TestDispatch_ListHomeworkCoercesLimit(t *testing.T) {
	d, _ := newDispatcherFixture(t)

	// JSON числа приходят как float64
	res := d.Dispatch(context.Background(), Caller{TelegramID: 200}, gemini.ToolCall{
		Name: ToolListHomework,
		Args: map[string]interface{}{"limit": float64(5)},
	})
	payload := decodeResult(t, res)
	assert.Equal(t, true, payload["success"])
	assert.Len(t, payload["items"], 1)
}

func TestDispatch_UnknownTool(t *testing.T) {
	d, _ := newDispatcherFixture(t)

	res := d.Dispatch(context.Background(), Caller{TelegramID: 200}, gemini.ToolCall{Name: "drop_tables"})
	assert.True(t, res.IsError)
	payload := decodeResult(t, res)
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["message"], "unknown tool")
}

func TestToolDefinitions_HaveNoIdentityParameters(t *testing.T) {
	for _, def := range ToolDefinitions() {
		data, err := json.Marshal(def.InputSchema)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "telegram_id",
			"tool %s must not accept identity from the model", def.Name)
	}
}
