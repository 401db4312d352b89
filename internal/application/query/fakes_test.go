package query

import (
	"context"
	"sort"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/group"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/homework"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/shared"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
)

// In-memory repository fakes shared by the query handler tests.

type memStudents struct {
	byID map[string]*student.Student

	// usernameErr, when set, is returned by UpdateUsername.
	usernameErr error
}

func newMemStudents(students ...*student.Student) *memStudents {
	m := &memStudents{byID: make(map[string]*student.Student)}
	for _, s := range students {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memStudents) Create(ctx context.Context, s *student.Student) error {
	m.byID[s.ID] = s
	return nil
}

func (m *memStudents) GetByID(ctx context.Context, id string) (*student.Student, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudents) GetByTelegramID(ctx context.Context, telegramID student.TelegramID) (*student.Student, error) {
	for _, s := range m.byID {
		if s.TelegramID == telegramID {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudents) GetByCode(ctx context.Context, code student.Code) (*student.Student, error) {
	for _, s := range m.byID {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudents) UpdateUsername(ctx context.Context, id string, username string) error {
	if m.usernameErr != nil {
		return m.usernameErr
	}
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
	rows []homework.Detailed
}

func (m *memHomeworks) Create(ctx context.Context, h *homework.Homework) error {
	m.rows = append(m.rows, homework.Detailed{Homework: *h})
	return nil
}

func (m *memHomeworks) GetByID(ctx context.Context, id string) (*homework.Homework, error) {
	for _, r := range m.rows {
		if r.ID == id {
			hw := r.Homework
			return &hw, nil
		}
	}
	return nil, shared.ErrHomeworkNotFound
}

func (m *memHomeworks) ListByGroup(ctx context.Context, groupID string, limit int) ([]homework.Detailed, error) {
	var out []homework.Detailed
	for _, r := range m.rows {
		if r.GroupID == groupID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memHomeworks) Delete(ctx context.Context, id string) error {
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return shared.ErrHomeworkNotFound
}

// memCache is a map-backed StudentCache.
type memCache struct {
	entries map[int64]*VerifiedStudent
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[int64]*VerifiedStudent)}
}

func (c *memCache) GetVerified(ctx context.Context, telegramID int64) (*VerifiedStudent, bool) {
	v, ok := c.entries[telegramID]
	return v, ok
}

func (c *memCache) SetVerified(ctx context.Context, telegramID int64, v *VerifiedStudent) {
	c.entries[telegramID] = v
	c.sets++
}

func (c *memCache) Invalidate(ctx context.Context, telegramID int64) {
	delete(c.entries, telegramID)
}
