package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists the roster in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func changed(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	return n > 0, err
}

// ---------- Lecturers ----------

func (s *PostgresStore) ListLecturers(ctx context.Context) ([]Lecturer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, role FROM lecturers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Lecturer
	for rows.Next() {
		var l Lecturer
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Role); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (s *PostgresStore) CreateLecturer(ctx context.Context, name, email, passwordHash, role string) (Lecturer, error) {
	l := Lecturer{Name: name, Email: email, Role: role}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO lecturers (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, name, email, passwordHash, role)
	if err := row.Scan(&l.ID); err != nil {
		return Lecturer{}, err
	}
	return l, nil
}

func (s *PostgresStore) UpdateLecturer(ctx context.Context, id int64, name, email, passwordHash, role string) (bool, error) {
	var res sql.Result
	var err error
	if passwordHash != "" {
		res, err = s.db.ExecContext(ctx, `
			UPDATE lecturers SET name = $1, email = $2, password_hash = $3, role = $4 WHERE id = $5
		`, name, email, passwordHash, role, id)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE lecturers SET name = $1, email = $2, role = $3 WHERE id = $4
		`, name, email, role, id)
	}
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (s *PostgresStore) DeleteLecturer(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lecturers WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (s *PostgresStore) LecturerByEmail(ctx context.Context, email string) (*Lecturer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role FROM lecturers WHERE email = $1
	`, email)
	var l Lecturer
	if err := row.Scan(&l.ID, &l.Name, &l.Email, &l.PasswordHash, &l.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) AssignLecturer(ctx context.Context, lecturerID, moduleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lecturer_modules (lecturer_id, module_id)
		VALUES ($1, $2)
		ON CONFLICT (lecturer_id, module_id) DO NOTHING
	`, lecturerID, moduleID)
	return err
}

func (s *PostgresStore) UnassignLecturer(ctx context.Context, lecturerID, moduleID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM lecturer_modules WHERE lecturer_id = $1 AND module_id = $2
	`, lecturerID, moduleID)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (s *PostgresStore) ModulesForLecturer(ctx context.Context, lecturerID int64) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT modules.id, modules.code, modules.name
		FROM modules
		JOIN lecturer_modules ON modules.id = lecturer_modules.module_id
		WHERE lecturer_modules.lecturer_id = $1
		ORDER BY modules.code
	`, lecturerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

// ---------- Modules ----------

func scanModules(rows *sql.Rows) ([]Module, error) {
	var res []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Code, &m.Name); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (s *PostgresStore) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name FROM modules ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

func (s *PostgresStore) CreateModule(ctx context.Context, code, name string) (Module, error) {
	m := Module{Code: code, Name: name}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO modules (code, name) VALUES ($1, $2) RETURNING id
	`, code, name)
	if err := row.Scan(&m.ID); err != nil {
		return Module{}, err
	}
	return m, nil
}

func (s *PostgresStore) UpdateModule(ctx context.Context, id int64, code, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE modules SET code = $1, name = $2 WHERE id = $3`, code, name, id)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (s *PostgresStore) DeleteModule(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func (s *PostgresStore) StudentsForModule(ctx context.Context, moduleID int64) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT students.id, students.name, students.student_number, students.nfc_uid
		FROM module_students
		JOIN students ON module_students.student_id = students.id
		WHERE module_students.module_id = $1
		ORDER BY students.name
	`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.StudentNumber, &st.CardUID); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (s *PostgresStore) EnrollStudent(ctx context.Context, moduleID, studentID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO module_students (module_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (module_id, student_id) DO NOTHING
	`, moduleID, studentID)
	return err
}

func (s *PostgresStore) UnenrollStudent(ctx context.Context, moduleID, studentID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM module_students WHERE module_id = $1 AND student_id = $2
	`, moduleID, studentID)
	if err != nil {
		return false, err
	}
	return changed(res)
}

// ---------- Students ----------

func (s *PostgresStore) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, student_number, nfc_uid FROM students ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.StudentNumber, &st.CardUID); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (s *PostgresStore) CreateStudent(ctx context.Context, name, studentNumber string, cardUID *string) (Student, error) {
	st := Student{Name: name, StudentNumber: studentNumber, CardUID: cardUID}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO students (name, student_number, nfc_uid, password_hash)
		VALUES ($1, $2, $3, '')
		RETURNING id
	`, name, studentNumber, cardUID)
	if err := row.Scan(&st.ID); err != nil {
		if isUniqueViolation(err) {
			return Student{}, ErrCardInUse
		}
		return Student{}, err
	}
	return st, nil
}

func (s *PostgresStore) UpdateStudent(ctx context.Context, id int64, name, studentNumber string, cardUID *string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE students SET name = $1, student_number = $2, nfc_uid = $3 WHERE id = $4
	`, name, studentNumber, cardUID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrCardInUse
		}
		return false, err
	}
	return changed(res)
}

func (s *PostgresStore) DeleteStudent(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return changed(res)
}

func scanStudent(row *sql.Row) (*Student, error) {
	var st Student
	if err := row.Scan(&st.ID, &st.Name, &st.StudentNumber, &st.CardUID, &st.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) StudentByID(ctx context.Context, id int64) (*Student, error) {
	return scanStudent(s.db.QueryRowContext(ctx, `
		SELECT id, name, student_number, nfc_uid, password_hash FROM students WHERE id = $1
	`, id))
}

func (s *PostgresStore) StudentByNumber(ctx context.Context, studentNumber string) (*Student, error) {
	return scanStudent(s.db.QueryRowContext(ctx, `
		SELECT id, name, student_number, nfc_uid, password_hash FROM students WHERE student_number = $1
	`, studentNumber))
}

func (s *PostgresStore) SetStudentPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE students SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	return err
}

func (s *PostgresStore) StudentEnrolled(ctx context.Context, moduleID, studentID int64) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM module_students WHERE module_id = $1 AND student_id = $2
	`, moduleID, studentID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) AssignCard(ctx context.Context, studentID int64, cardUID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE students SET nfc_uid = $1 WHERE id = $2
	`, cardUID, studentID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrCardInUse
		}
		return false, err
	}
	return changed(res)
}

// ---------- Student-facing reads ----------

func (s *PostgresStore) ModulesForStudent(ctx context.Context, studentID int64) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT modules.id, modules.code, modules.name
		FROM module_students
		JOIN modules ON module_students.module_id = modules.id
		WHERE module_students.student_id = $1
		ORDER BY modules.code
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

func (s *PostgresStore) ModuleDetailsForStudent(ctx context.Context, studentID, moduleID int64) (*ModuleDetails, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT modules.id, modules.code, modules.name
		FROM module_students
		JOIN modules ON module_students.module_id = modules.id
		WHERE module_students.student_id = $1 AND module_students.module_id = $2
	`, studentID, moduleID)
	var m Module
	if err := row.Scan(&m.ID, &m.Code, &m.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	details := &ModuleDetails{Module: m, Lecturers: []string{}, Timetable: []TimetableRow{}}

	lecRows, err := s.db.QueryContext(ctx, `
		SELECT lecturers.name
		FROM lecturer_modules
		JOIN lecturers ON lecturer_modules.lecturer_id = lecturers.id
		WHERE lecturer_modules.module_id = $1
	`, moduleID)
	if err != nil {
		return nil, err
	}
	defer lecRows.Close()
	for lecRows.Next() {
		var name string
		if err := lecRows.Scan(&name); err != nil {
			return nil, err
		}
		details.Lecturers = append(details.Lecturers, name)
	}
	if err := lecRows.Err(); err != nil {
		return nil, err
	}

	ttRows, err := s.db.QueryContext(ctx, `
		SELECT day, start_time, end_time, room
		FROM timetable
		WHERE module_id = $1
		ORDER BY day, start_time
	`, moduleID)
	if err != nil {
		return nil, err
	}
	defer ttRows.Close()
	for ttRows.Next() {
		var t TimetableRow
		if err := ttRows.Scan(&t.Day, &t.StartTime, &t.EndTime, &t.Room); err != nil {
			return nil, err
		}
		details.Timetable = append(details.Timetable, t)
	}
	return details, ttRows.Err()
}

func (s *PostgresStore) TimetableForStudent(ctx context.Context, studentID int64) ([]TimetableRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timetable.day, timetable.start_time, timetable.end_time, timetable.room,
		       modules.id AS module_id, modules.code, modules.name
		FROM module_students
		JOIN timetable ON module_students.module_id = timetable.module_id
		JOIN modules ON modules.id = module_students.module_id
		WHERE module_students.student_id = $1
		ORDER BY timetable.day, timetable.start_time
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []TimetableRow
	for rows.Next() {
		var t TimetableRow
		if err := rows.Scan(&t.Day, &t.StartTime, &t.EndTime, &t.Room, &t.ModuleID, &t.Code, &t.Name); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *PostgresStore) Timetable(ctx context.Context) ([]TimetableRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timetable.id, modules.code, modules.name, timetable.day,
		       timetable.start_time, timetable.end_time
		FROM timetable
		JOIN modules ON timetable.module_id = modules.id
		ORDER BY timetable.day, timetable.start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []TimetableRow
	for rows.Next() {
		var t TimetableRow
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Day, &t.StartTime, &t.EndTime); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ---------- Tap hardware ----------

func (s *PostgresStore) RegisterReader(ctx context.Context, readerID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readers (reader_id)
		VALUES ($1)
		ON CONFLICT (reader_id) DO NOTHING
	`, readerID)
	return err
}

func (s *PostgresStore) SaveRefreshToken(ctx context.Context, readerID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, reader_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, readerID, expiresAt)
	return err
}

func (s *PostgresStore) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
