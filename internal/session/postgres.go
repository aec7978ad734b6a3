package session

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore persists sessions in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LecturerTeaches(ctx context.Context, lecturerID, moduleID int64) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM lecturer_modules WHERE lecturer_id = $1 AND module_id = $2
	`, lecturerID, moduleID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) Create(ctx context.Context, moduleID, lecturerID int64) (Session, error) {
	sess := Session{ModuleID: moduleID, LecturerID: lecturerID}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (module_id, lecturer_id)
		VALUES ($1, $2)
		RETURNING id, start_time
	`, moduleID, lecturerID)
	if err := row.Scan(&sess.ID, &sess.StartTime); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *PostgresStore) End(ctx context.Context, sessionID, lecturerID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET end_time = NOW()
		WHERE id = $1 AND lecturer_id = $2 AND end_time IS NULL
	`, sessionID, lecturerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) EndAny(ctx context.Context, sessionID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET end_time = NOW()
		WHERE id = $1 AND end_time IS NULL
	`, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) EndActiveForModule(ctx context.Context, moduleID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET end_time = NOW()
		WHERE id = (
			SELECT id FROM sessions
			WHERE module_id = $1 AND end_time IS NULL
			ORDER BY start_time DESC
			LIMIT 1
		)
	`, moduleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) Active(ctx context.Context, moduleID int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, module_id, lecturer_id, start_time, end_time
		FROM sessions
		WHERE module_id = $1 AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`, moduleID)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.ModuleID, &sess.LecturerID, &sess.StartTime, &sess.EndTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) History(ctx context.Context, moduleID int64, startDate, endDate string) ([]HistoryRow, error) {
	query := `
		SELECT sessions.id, sessions.start_time, sessions.end_time,
		       modules.code, modules.name AS module_name,
		       COUNT(attendance.id) AS attendance_count
		FROM sessions
		JOIN modules ON sessions.module_id = modules.id
		LEFT JOIN attendance ON attendance.session_id = sessions.id
		WHERE sessions.module_id = $1`
	args := []any{moduleID}
	if startDate != "" {
		args = append(args, startDate)
		query += " AND sessions.start_time::date >= $2"
	}
	if endDate != "" {
		args = append(args, endDate)
		if startDate != "" {
			query += " AND sessions.start_time::date <= $3"
		} else {
			query += " AND sessions.start_time::date <= $2"
		}
	}
	query += `
		GROUP BY sessions.id, modules.code, modules.name
		ORDER BY sessions.start_time DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.ID, &h.StartTime, &h.EndTime, &h.Code, &h.ModuleName, &h.AttendanceCount); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Overview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sessions.id, sessions.start_time, sessions.end_time,
		       modules.id AS module_id, modules.code, modules.name AS module_name,
		       lecturers.id AS lecturer_id, lecturers.name AS lecturer_name
		FROM sessions
		JOIN modules ON sessions.module_id = modules.id
		JOIN lecturers ON sessions.lecturer_id = lecturers.id
		ORDER BY sessions.start_time DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Overview
	for rows.Next() {
		var o Overview
		if err := rows.Scan(&o.ID, &o.StartTime, &o.EndTime, &o.ModuleID, &o.Code, &o.ModuleName, &o.LecturerID, &o.LecturerName); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}
