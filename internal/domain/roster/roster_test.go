package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
)

const sampleRoster = `
students:
  - student_code: ST2024001
    group: "10-A"
    first_name: Aidana
    last_name: Serik
  - student_code: st2024002
    group: "10-A"
    access_level: monitor
  - student_code: st2024003
    group: "10-B"
    access_level: admin
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sampleRoster))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	// Коды нормализуются при загрузке
	e, ok := r.Lookup("st2024001")
	require.True(t, ok)
	assert.Equal(t, student.Code("st2024001"), e.Code)
	assert.Equal(t, "10-A", e.GroupName)
	assert.Equal(t, "Aidana", e.FirstName)
	assert.Equal(t, student.AccessStudent, e.AccessLevel, "missing access level defaults to student")

	e, ok = r.Lookup("st2024002")
	require.True(t, ok)
	assert.Equal(t, student.AccessMonitor, e.AccessLevel)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("students: []"))
	assert.ErrorContains(t, err, "no students")

	_, err = Parse([]byte("students:\n  - student_code: x\n    group: 10-A\n"))
	assert.ErrorContains(t, err, "invalid student code")

	_, err = Parse([]byte("students:\n  - student_code: st001\n"))
	assert.ErrorContains(t, err, "group is required")

	_, err = Parse([]byte("students:\n  - student_code: st001\n    group: 10-A\n    access_level: teacher\n"))
	assert.ErrorContains(t, err, "invalid access level")

	dup := `
students:
  - student_code: st001
    group: "10-A"
  - student_code: ST001
    group: "10-B"
`
	_, err = Parse([]byte(dup))
	assert.ErrorContains(t, err, "duplicate student code")

	_, err = Parse([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestLookup_Normalization(t *testing.T) {
	r, err := Parse([]byte(sampleRoster))
	require.NoError(t, err)

	_, ok := r.Lookup("  ST2024001  ")
	assert.True(t, ok)

	_, ok = r.Lookup("st9999999")
	assert.False(t, ok)
}

func TestGroupNames(t *testing.T) {
	r, err := Parse([]byte(sampleRoster))
	require.NoError(t, err)

	names := r.GroupNames()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "10-A")
	assert.Contains(t, names, "10-B")
}
