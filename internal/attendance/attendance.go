package attendance

import (
	"context"
	"errors"
	"time"
)

// Student is the identity a card resolves to.
type Student struct {
	ID            int64
	Name          string
	StudentNumber string
}

// TapResult is the outcome of a recorded tap. AlreadyLogged marks the benign
// duplicate case: the student was recorded earlier in the same session.
type TapResult struct {
	StudentID     int64
	StudentName   string
	ModuleID      int64
	SessionID     int64
	AlreadyLogged bool
}

// Filter narrows attendance listings. Zero values mean "no filter".
type Filter struct {
	SessionID int64
	ModuleID  int64
	StudentID int64
	StartDate string
	EndDate   string
}

// Row is a joined attendance listing entry.
type Row struct {
	Name          string    `json:"name"`
	StudentNumber string    `json:"student_number"`
	Code          string    `json:"code"`
	ModuleName    string    `json:"module_name"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     int64     `json:"session_id"`
}

// ExportRow carries the columns of the admin export.
type ExportRow struct {
	Name          string     `json:"name"`
	StudentNumber string     `json:"student_number"`
	Code          string     `json:"code"`
	ModuleName    string     `json:"module_name"`
	SessionID     int64      `json:"session_id"`
	SessionStart  time.Time  `json:"start_time"`
	SessionEnd    *time.Time `json:"end_time"`
	Timestamp     time.Time  `json:"timestamp"`
}

// StudentRow is one entry of a student's own attendance history.
type StudentRow struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  int64     `json:"session_id"`
	Code       string    `json:"code"`
	ModuleName string    `json:"module_name"`
}

// ErrUnknownCard means no student carries the presented card identifier.
var ErrUnknownCard = errors.New("unknown card")

// Store persists attendance facts. Insert must rely on the storage layer's
// (session_id, student_id) uniqueness so that racing duplicate taps resolve
// to exactly one row.
type Store interface {
	// StudentByCard returns nil without error when the card is unknown.
	StudentByCard(ctx context.Context, cardUID string) (*Student, error)
	// Insert records one attendance fact and reports false when the
	// (session, student) pair already exists.
	Insert(ctx context.Context, sessionID, studentID int64) (bool, error)
	List(ctx context.Context, f Filter) ([]Row, error)
	ExportRows(ctx context.Context, sessionID, moduleID int64) ([]ExportRow, error)
	ForStudent(ctx context.Context, studentID int64) ([]StudentRow, error)
}
