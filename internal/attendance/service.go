package attendance

import (
	"context"

	"campustap/internal/session"
)

// Service converts card taps into attendance records.
type Service struct {
	store    Store
	sessions *session.Service
}

// NewService creates a recorder backed by a store and the session lifecycle
// service.
func NewService(store Store, sessions *session.Service) *Service {
	return &Service{store: store, sessions: sessions}
}

// RecordTap resolves a card to a student, finds the module's active session
// and records the attendance. A duplicate tap for the same session is not an
// error: the result comes back with AlreadyLogged set and no new row is
// written. Tap hardware cannot tell a first tap from a re-tap, so the
// operation has to be idempotent from the caller's side.
func (s *Service) RecordTap(ctx context.Context, cardUID string, moduleID int64) (TapResult, error) {
	student, err := s.store.StudentByCard(ctx, cardUID)
	if err != nil {
		return TapResult{}, err
	}
	if student == nil {
		return TapResult{}, ErrUnknownCard
	}

	active, err := s.sessions.GetActive(ctx, moduleID)
	if err != nil {
		return TapResult{}, err
	}
	if active == nil {
		return TapResult{}, session.ErrNoActiveSession
	}

	inserted, err := s.store.Insert(ctx, active.ID, student.ID)
	if err != nil {
		return TapResult{}, err
	}
	return TapResult{
		StudentID:     student.ID,
		StudentName:   student.Name,
		ModuleID:      moduleID,
		SessionID:     active.ID,
		AlreadyLogged: !inserted,
	}, nil
}

// List returns joined attendance rows for the lecturer-facing report.
func (s *Service) List(ctx context.Context, f Filter) ([]Row, error) {
	return s.store.List(ctx, f)
}

// ExportRows returns the rows of the admin export, optionally narrowed to a
// session or module.
func (s *Service) ExportRows(ctx context.Context, sessionID, moduleID int64) ([]ExportRow, error) {
	return s.store.ExportRows(ctx, sessionID, moduleID)
}

// ForStudent returns a student's own attendance history, newest first.
func (s *Service) ForStudent(ctx context.Context, studentID int64) ([]StudentRow, error) {
	return s.store.ForStudent(ctx, studentID)
}
