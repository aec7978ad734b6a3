package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists attendance in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) StudentByCard(ctx context.Context, cardUID string) (*Student, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, student_number FROM students WHERE nfc_uid = $1
	`, cardUID)
	var st Student
	if err := row.Scan(&st.ID, &st.Name, &st.StudentNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// Insert lets the unique constraint arbitrate duplicate taps: ON CONFLICT
// DO NOTHING returns no row for the loser of the race, which maps to the
// already-logged outcome.
func (s *PostgresStore) Insert(ctx context.Context, sessionID, studentID int64) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance (session_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (session_id, student_id) DO NOTHING
		RETURNING id
	`, sessionID, studentID)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Row, error) {
	query := `
		SELECT students.name, students.student_number, modules.code, modules.name AS module_name,
		       attendance.timestamp, attendance.session_id
		FROM attendance
		JOIN students ON attendance.student_id = students.id
		JOIN sessions ON attendance.session_id = sessions.id
		JOIN modules ON sessions.module_id = modules.id`
	var clauses []string
	var args []any
	if f.SessionID != 0 {
		args = append(args, f.SessionID)
		clauses = append(clauses, fmt.Sprintf("attendance.session_id = $%d", len(args)))
	}
	if f.ModuleID != 0 {
		args = append(args, f.ModuleID)
		clauses = append(clauses, fmt.Sprintf("sessions.module_id = $%d", len(args)))
	}
	if f.StudentID != 0 {
		args = append(args, f.StudentID)
		clauses = append(clauses, fmt.Sprintf("attendance.student_id = $%d", len(args)))
	}
	if f.StartDate != "" {
		args = append(args, f.StartDate)
		clauses = append(clauses, fmt.Sprintf("attendance.timestamp::date >= $%d::date", len(args)))
	}
	if f.EndDate != "" {
		args = append(args, f.EndDate)
		clauses = append(clauses, fmt.Sprintf("attendance.timestamp::date <= $%d::date", len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY attendance.timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Name, &r.StudentNumber, &r.Code, &r.ModuleName, &r.Timestamp, &r.SessionID); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *PostgresStore) ExportRows(ctx context.Context, sessionID, moduleID int64) ([]ExportRow, error) {
	query := `
		SELECT students.name, students.student_number,
		       modules.code, modules.name AS module_name,
		       sessions.id AS session_id, sessions.start_time, sessions.end_time,
		       attendance.timestamp
		FROM attendance
		JOIN students ON attendance.student_id = students.id
		JOIN sessions ON attendance.session_id = sessions.id
		JOIN modules ON sessions.module_id = modules.id`
	var args []any
	if sessionID != 0 {
		args = append(args, sessionID)
		query += fmt.Sprintf(" WHERE attendance.session_id = $%d", len(args))
	}
	if moduleID != 0 {
		args = append(args, moduleID)
		if sessionID != 0 {
			query += fmt.Sprintf(" AND sessions.module_id = $%d", len(args))
		} else {
			query += fmt.Sprintf(" WHERE sessions.module_id = $%d", len(args))
		}
	}
	query += " ORDER BY attendance.timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ExportRow
	for rows.Next() {
		var r ExportRow
		if err := rows.Scan(&r.Name, &r.StudentNumber, &r.Code, &r.ModuleName, &r.SessionID, &r.SessionStart, &r.SessionEnd, &r.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *PostgresStore) ForStudent(ctx context.Context, studentID int64) ([]StudentRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attendance.timestamp, sessions.id AS session_id,
		       modules.code, modules.name AS module_name
		FROM attendance
		JOIN sessions ON attendance.session_id = sessions.id
		JOIN modules ON sessions.module_id = modules.id
		WHERE attendance.student_id = $1
		ORDER BY attendance.timestamp DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StudentRow
	for rows.Next() {
		var r StudentRow
		if err := rows.Scan(&r.Timestamp, &r.SessionID, &r.Code, &r.ModuleName); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}
