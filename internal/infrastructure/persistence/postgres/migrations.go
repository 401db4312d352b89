package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all database migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_groups_table",
			UpSQL:   migrationGroups,
		},
		{
			Version: 2,
			Name:    "create_students_table",
			UpSQL:   migrationStudents,
		},
		{
			Version: 3,
			Name:    "create_homeworks_table",
			UpSQL:   migrationHomeworks,
		},
		{
			Version: 4,
			Name:    "create_sessions_table",
			UpSQL:   migrationSessions,
		},
	}
}

const migrationGroups = `
CREATE TABLE IF NOT EXISTS groups (
    id UUID PRIMARY KEY,
    name VARCHAR(100) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_groups_name ON groups(name);
`

const migrationStudents = `
CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    telegram_id BIGINT NOT NULL UNIQUE,
    telegram_username VARCHAR(100) NOT NULL DEFAULT '',
    student_code VARCHAR(50) NOT NULL UNIQUE,
    first_name VARCHAR(100) NOT NULL DEFAULT '',
    last_name VARCHAR(100) NOT NULL DEFAULT '',
    group_id UUID NOT NULL REFERENCES groups(id) ON DELETE RESTRICT,
    access_level VARCHAR(20) NOT NULL DEFAULT 'student',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_students_access_level
        CHECK (access_level IN ('student', 'monitor', 'admin', 'owner'))
);

CREATE INDEX IF NOT EXISTS idx_students_telegram_id ON students(telegram_id);
CREATE INDEX IF NOT EXISTS idx_students_student_code ON students(student_code);
CREATE INDEX IF NOT EXISTS idx_students_group_id ON students(group_id);
`

const migrationHomeworks = `
CREATE TABLE IF NOT EXISTS homeworks (
    id UUID PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    subject VARCHAR(100) NOT NULL DEFAULT '',
    due_date TIMESTAMP WITH TIME ZONE,
    group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    created_by UUID NOT NULL REFERENCES students(id) ON DELETE RESTRICT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_homeworks_group_id ON homeworks(group_id);
CREATE INDEX IF NOT EXISTS idx_homeworks_created_at ON homeworks(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_homeworks_due_date ON homeworks(due_date) WHERE due_date IS NOT NULL;
`

const migrationSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    chat_id BIGINT PRIMARY KEY,
    telegram_id BIGINT NOT NULL,
    thread_id VARCHAR(100) NOT NULL,
    last_message_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sessions_telegram_id ON sessions(telegram_id);
`
