// Package roster implements the authorization seed: the static mapping that
// says which student codes may register and at what access tier. The roster
// is provisioned out of band as a YAML file and loaded once at process start;
// it is the sole source of truth for enrollment.
package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/student"
)

// Entry describes one enrollment: a student code, its group and access tier,
// and optional roster-provided names used as fallbacks during registration.
type Entry struct {
	// Code is the roster key, stored normalized (lowercase, trimmed).
	Code student.Code `yaml:"student_code"`

	// GroupName is the name of the group this code belongs to.
	GroupName string `yaml:"group"`

	// AccessLevel is the tier assigned on registration. Empty means student.
	AccessLevel student.AccessLevel `yaml:"access_level"`

	// FirstName is the optional roster-provided first name.
	FirstName string `yaml:"first_name"`

	// LastName is the optional roster-provided last name.
	LastName string `yaml:"last_name"`
}

// Roster is the loaded mapping from normalized student code to its entry.
type Roster struct {
	entries map[student.Code]Entry
}

// rosterFile is the on-disk YAML layout.
type rosterFile struct {
	Students []Entry `yaml:"students"`
}

// Load reads and validates a roster YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses roster YAML content.
func Parse(data []byte) (*Roster, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("roster: parse yaml: %w", err)
	}

	if len(file.Students) == 0 {
		return nil, fmt.Errorf("roster: no students defined")
	}

	entries := make(map[student.Code]Entry, len(file.Students))
	for i, e := range file.Students {
		code := student.NormalizeCode(string(e.Code))
		if !code.IsValid() {
			return nil, fmt.Errorf("roster: entry %d: invalid student code %q", i, e.Code)
		}
		if strings.TrimSpace(e.GroupName) == "" {
			return nil, fmt.Errorf("roster: entry %d (%s): group is required", i, code)
		}
		if e.AccessLevel == "" {
			e.AccessLevel = student.AccessStudent
		}
		if !e.AccessLevel.IsValid() {
			return nil, fmt.Errorf("roster: entry %d (%s): invalid access level %q", i, code, e.AccessLevel)
		}
		if _, dup := entries[code]; dup {
			return nil, fmt.Errorf("roster: duplicate student code %q", code)
		}
		e.Code = code
		entries[code] = e
	}

	return &Roster{entries: entries}, nil
}

// Lookup returns the entry for a raw (not yet normalized) student code.
func (r *Roster) Lookup(raw string) (Entry, bool) {
	e, ok := r.entries[student.NormalizeCode(raw)]
	return e, ok
}

// Len returns the number of roster entries.
func (r *Roster) Len() int {
	return len(r.entries)
}

// GroupNames returns the distinct group names referenced by the roster.
// Used at startup to provision group rows.
func (r *Roster) GroupNames() []string {
	seen := make(map[string]bool, len(r.entries))
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if !seen[e.GroupName] {
			seen[e.GroupName] = true
			names = append(names, e.GroupName)
		}
	}
	return names
}
