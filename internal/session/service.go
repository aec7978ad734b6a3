package session

import "context"

// Service controls the open/closed lifecycle of sessions.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Open creates a new session after checking the teaching assignment.
// It does not reject a module that already has an open session; readers
// resolve that ambiguity by always taking the latest start time.
func (s *Service) Open(ctx context.Context, moduleID, lecturerID int64) (Session, error) {
	teaches, err := s.store.LecturerTeaches(ctx, lecturerID, moduleID)
	if err != nil {
		return Session{}, err
	}
	if !teaches {
		return Session{}, ErrNotAssigned
	}
	return s.store.Create(ctx, moduleID, lecturerID)
}

// Close ends a session owned by the lecturer. Closing a session that is
// missing, already ended, or owned by someone else fails the same way.
func (s *Service) Close(ctx context.Context, sessionID, lecturerID int64) error {
	ended, err := s.store.End(ctx, sessionID, lecturerID)
	if err != nil {
		return err
	}
	if !ended {
		return ErrNotFoundOrEnded
	}
	return nil
}

// CloseByAdmin ends a session regardless of its owner.
func (s *Service) CloseByAdmin(ctx context.Context, sessionID int64) error {
	ended, err := s.store.EndAny(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ended {
		return ErrNotFoundOrEnded
	}
	return nil
}

// CloseActiveForModule ends the most recently started open session of the
// module.
func (s *Service) CloseActiveForModule(ctx context.Context, moduleID int64) error {
	ended, err := s.store.EndActiveForModule(ctx, moduleID)
	if err != nil {
		return err
	}
	if !ended {
		return ErrNoActiveSession
	}
	return nil
}

// GetActive returns the active session for a module, or nil when there is
// none. Absence is not an error.
func (s *Service) GetActive(ctx context.Context, moduleID int64) (*Session, error) {
	return s.store.Active(ctx, moduleID)
}

// History lists a module's sessions with attendance counts, newest first.
func (s *Service) History(ctx context.Context, moduleID int64, startDate, endDate string) ([]HistoryRow, error) {
	return s.store.History(ctx, moduleID, startDate, endDate)
}

// ListAll returns every session joined with module and lecturer info.
func (s *Service) ListAll(ctx context.Context) ([]Overview, error) {
	return s.store.ListAll(ctx)
}
