package session

import (
	"context"
	"errors"
	"time"
)

// Session is an attendance-taking window for one module and lecturer.
// EndTime is nil while the session is open.
type Session struct {
	ID         int64      `json:"id"`
	ModuleID   int64      `json:"module_id"`
	LecturerID int64      `json:"lecturer_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
}

// HistoryRow is one session of a module with its attendance count.
type HistoryRow struct {
	ID              int64      `json:"id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	Code            string     `json:"code"`
	ModuleName      string     `json:"module_name"`
	AttendanceCount int        `json:"attendance_count"`
}

// Overview is the admin-facing joined session listing.
type Overview struct {
	ID           int64      `json:"id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	ModuleID     int64      `json:"module_id"`
	Code         string     `json:"code"`
	ModuleName   string     `json:"module_name"`
	LecturerID   int64      `json:"lecturer_id"`
	LecturerName string     `json:"lecturer_name"`
}

var (
	// ErrNotAssigned means the lecturer does not teach the module.
	ErrNotAssigned = errors.New("not assigned to module")
	// ErrNotFoundOrEnded means the session does not exist, is already
	// closed, or belongs to a different lecturer.
	ErrNotFoundOrEnded = errors.New("session not found or already ended")
	// ErrNoActiveSession means the module has no open session.
	ErrNoActiveSession = errors.New("no active session for module")
)

// Store persists sessions. Every read of "the" active session must use the
// same tie-break: latest start_time among open sessions wins.
type Store interface {
	LecturerTeaches(ctx context.Context, lecturerID, moduleID int64) (bool, error)
	Create(ctx context.Context, moduleID, lecturerID int64) (Session, error)
	// End closes the session only when it is open and owned by lecturerID;
	// it reports whether a row changed.
	End(ctx context.Context, sessionID, lecturerID int64) (bool, error)
	// EndAny is the admin close, without the ownership check.
	EndAny(ctx context.Context, sessionID int64) (bool, error)
	// EndActiveForModule closes the latest open session of the module.
	EndActiveForModule(ctx context.Context, moduleID int64) (bool, error)
	// Active returns the latest open session, or nil when none exists.
	Active(ctx context.Context, moduleID int64) (*Session, error)
	History(ctx context.Context, moduleID int64, startDate, endDate string) ([]HistoryRow, error)
	ListAll(ctx context.Context) ([]Overview, error)
}
