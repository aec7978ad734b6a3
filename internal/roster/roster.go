// Package roster holds the administrative data behind attendance taking:
// lecturers, modules, students, teaching assignments, enrollments and the
// timetable. It is plain parameterized-query plumbing around the store.
package roster

import (
	"context"
	"errors"
	"time"
)

// Lecturer is a staff account. Role is either "lecturer" or "admin".
type Lecturer struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

// Module is a taught unit identified by a unique code.
type Module struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Student carries the roster view of a student. CardUID is nil until a card
// is enrolled; when set it is globally unique.
type Student struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	StudentNumber string  `json:"student_number"`
	CardUID       *string `json:"nfc_uid"`
	PasswordHash  string  `json:"-"`
}

// TimetableRow is a joined timetable listing entry.
type TimetableRow struct {
	ID        int64  `json:"id,omitempty"`
	ModuleID  int64  `json:"module_id,omitempty"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Room      string `json:"room,omitempty"`
}

// ModuleDetails is the student-facing module page payload.
type ModuleDetails struct {
	Module    Module         `json:"module"`
	Lecturers []string       `json:"lecturers"`
	Timetable []TimetableRow `json:"timetable"`
}

var (
	// ErrCardInUse means the card identifier is already bound to another
	// student.
	ErrCardInUse = errors.New("card already assigned")
)

// Store is the relational surface behind the CRUD endpoints. Mutations that
// target one row report whether a row actually changed so handlers can map
// absence to 404.
type Store interface {
	// Lecturers.
	ListLecturers(ctx context.Context) ([]Lecturer, error)
	CreateLecturer(ctx context.Context, name, email, passwordHash, role string) (Lecturer, error)
	// UpdateLecturer keeps the stored hash when passwordHash is empty.
	UpdateLecturer(ctx context.Context, id int64, name, email, passwordHash, role string) (bool, error)
	DeleteLecturer(ctx context.Context, id int64) (bool, error)
	LecturerByEmail(ctx context.Context, email string) (*Lecturer, error)
	AssignLecturer(ctx context.Context, lecturerID, moduleID int64) error
	UnassignLecturer(ctx context.Context, lecturerID, moduleID int64) (bool, error)
	ModulesForLecturer(ctx context.Context, lecturerID int64) ([]Module, error)

	// Modules.
	ListModules(ctx context.Context) ([]Module, error)
	CreateModule(ctx context.Context, code, name string) (Module, error)
	UpdateModule(ctx context.Context, id int64, code, name string) (bool, error)
	DeleteModule(ctx context.Context, id int64) (bool, error)
	StudentsForModule(ctx context.Context, moduleID int64) ([]Student, error)
	EnrollStudent(ctx context.Context, moduleID, studentID int64) error
	UnenrollStudent(ctx context.Context, moduleID, studentID int64) (bool, error)

	// Students.
	ListStudents(ctx context.Context) ([]Student, error)
	CreateStudent(ctx context.Context, name, studentNumber string, cardUID *string) (Student, error)
	UpdateStudent(ctx context.Context, id int64, name, studentNumber string, cardUID *string) (bool, error)
	DeleteStudent(ctx context.Context, id int64) (bool, error)
	StudentByID(ctx context.Context, id int64) (*Student, error)
	StudentByNumber(ctx context.Context, studentNumber string) (*Student, error)
	SetStudentPassword(ctx context.Context, id int64, passwordHash string) error
	StudentEnrolled(ctx context.Context, moduleID, studentID int64) (bool, error)
	// AssignCard binds a card to a student; ErrCardInUse when the card is
	// taken, false when the student does not exist.
	AssignCard(ctx context.Context, studentID int64, cardUID string) (bool, error)

	// Student-facing reads.
	ModulesForStudent(ctx context.Context, studentID int64) ([]Module, error)
	ModuleDetailsForStudent(ctx context.Context, studentID, moduleID int64) (*ModuleDetails, error)
	TimetableForStudent(ctx context.Context, studentID int64) ([]TimetableRow, error)
	Timetable(ctx context.Context) ([]TimetableRow, error)

	// Tap hardware registration.
	RegisterReader(ctx context.Context, readerID string) error
	SaveRefreshToken(ctx context.Context, readerID, token string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) error
}
