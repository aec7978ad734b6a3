package store

import "context"

// Schema is applied idempotently at startup. The unique indexes on
// students.nfc_uid and attendance(session_id, student_id) are load-bearing:
// card resolution and duplicate-tap absorption both rely on them.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		student_number TEXT NOT NULL,
		nfc_uid TEXT UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lecturers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'lecturer'
	)`,
	`CREATE TABLE IF NOT EXISTS modules (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lecturer_modules (
		lecturer_id BIGINT NOT NULL REFERENCES lecturers(id) ON DELETE CASCADE,
		module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
		PRIMARY KEY (lecturer_id, module_id)
	)`,
	`CREATE TABLE IF NOT EXISTS timetable (
		id BIGSERIAL PRIMARY KEY,
		module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
		day TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		room TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS module_students (
		module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		PRIMARY KEY (module_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id BIGSERIAL PRIMARY KEY,
		module_id BIGINT NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
		lecturer_id BIGINT NOT NULL REFERENCES lecturers(id) ON DELETE CASCADE,
		start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_time TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id BIGSERIAL PRIMARY KEY,
		session_id BIGINT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (session_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS readers (
		reader_id TEXT PRIMARY KEY,
		registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token TEXT PRIMARY KEY,
		reader_id TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// EnsureSchema creates any missing tables.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
