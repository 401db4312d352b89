package command

import (
	"context"
	"sort"
	"sync"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/query"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/homework"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
)

// In-memory repository fakes shared by the command handler tests.

type memStudents struct {
	mu   sync.Mutex
	byID map[string]*student.Student

	// createErr, when set, is returned by Create instead of inserting.
	createErr error
}

func newMemStudents(students ...*student.Student) *memStudents {
	m := &memStudents{byID: make(map[string]*student.Student)}
	for _, s := range students {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memStudents) Create(ctx context.Context, s *student.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.byID {
		if existing.TelegramID == s.TelegramID || existing.Code == s.Code {
			return shared.ErrStudentExists
		}
	}
	m.byID[s.ID] = s
	return nil
}

func (m *memStudents) GetByID(ctx context.Context, id string) (*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudents) GetByTelegramID(ctx context.Context, telegramID student.TelegramID) (*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.TelegramID == telegramID {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudents) GetByCode(ctx context.Context, code student.Code) (*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudents) UpdateUsername(ctx context.Context, id string, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return shared.ErrStudentNotFound
	}
	s.TelegramUsername = username
	return nil
}

type memGroups struct {
	byName map[string]*group.Group
}

func newMemGroups(groups ...*group.Group) *memGroups {
	m := &memGroups{byName: make(map[string]*group.Group)}
	for _, g := range groups {
		m.byName[g.Name] = g
	}
	return m
}

func (m *memGroups) GetByID(ctx context.Context, id string) (*group.Group, error) {
	for _, g := range m.byName {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, shared.ErrGroupNotFound
}

func (m *memGroups) GetByName(ctx context.Context, name string) (*group.Group, error) {
	if g, ok := m.byName[name]; ok {
		return g, nil
	}
	return nil, shared.ErrGroupNotFound
}

func (m *memGroups) Ensure(ctx context.Context, name, description string) (*group.Group, error) {
	if g, ok := m.byName[name]; ok {
		return g, nil
	}
	g := &group.Group{ID: "group-" + name, Name: name, Description: description}
	m.byName[name] = g
	return g, nil
}

type memHomeworks struct {
	mu   sync.Mutex
	byID map[string]*homework.Homework
}

func newMemHomeworks(rows ...*homework.Homework) *memHomeworks {
	m := &memHomeworks{byID: make(map[string]*homework.Homework)}
	for _, h := range rows {
		m.byID[h.ID] = h
	}
	return m
}

func (m *memHomeworks) Create(ctx context.Context, h *homework.Homework) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[h.ID] = h
	return nil
}

func (m *memHomeworks) GetByID(ctx context.Context, id string) (*homework.Homework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.byID[id]; ok {
		return h, nil
	}
	return nil, shared.ErrHomeworkNotFound
}

func (m *memHomeworks) ListByGroup(ctx context.Context, groupID string, limit int) ([]homework.Detailed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []homework.Detailed
	for _, h := range m.byID {
		if h.GroupID == groupID {
			rows = append(rows, homework.Detailed{Homework: *h, GroupName: groupID, CreatorName: h.CreatedBy})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memHomeworks) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return shared.ErrHomeworkNotFound
	}
	delete(m.byID, id)
	return nil
}

// recordingCache records invalidations; lookups always miss.
type recordingCache struct {
	invalidated []int64
}

func (c *recordingCache) GetVerified(ctx context.Context, telegramID int64) (*query.VerifiedStudent, bool) {
	return nil, false
}

func (c *recordingCache) SetVerified(ctx context.Context, telegramID int64, v *query.VerifiedStudent) {}

func (c *recordingCache) Invalidate(ctx context.Context, telegramID int64) {
	c.invalidated = append(c.invalidated, telegramID)
}
