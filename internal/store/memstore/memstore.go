// Package memstore is an in-memory implementation of the session, attendance
// and roster stores. It backs STORE_BACKEND=memory for local development and
// the handler/service tests, with the same row-changed and uniqueness
// semantics as the Postgres stores.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"campustap/internal/attendance"
	"campustap/internal/roster"
	"campustap/internal/session"
)

type pair struct{ a, b int64 }

type attendanceRec struct {
	ID        int64
	SessionID int64
	StudentID int64
	Timestamp time.Time
}

type timetableRec struct {
	ID       int64
	ModuleID int64
	Day      string
	Start    string
	End      string
	Room     string
}

type refreshRec struct {
	ReaderID  string
	ExpiresAt time.Time
	Revoked   bool
}

// Store holds everything behind one mutex, like the single-file database of
// the system it replaces in dev.
type Store struct {
	mu sync.Mutex

	nextID int64

	lecturers map[int64]*roster.Lecturer
	modules   map[int64]*roster.Module
	students  map[int64]*roster.Student

	lecturerModules map[pair]bool // lecturer, module
	moduleStudents  map[pair]bool // module, student
	timetable       []timetableRec

	sessions   map[int64]*session.Session
	lastStart  time.Time
	attendance []attendanceRec

	readers map[string]bool
	refresh map[string]refreshRec
}

// New creates an empty store.
func New() *Store {
	return &Store{
		lecturers:       make(map[int64]*roster.Lecturer),
		modules:         make(map[int64]*roster.Module),
		students:        make(map[int64]*roster.Student),
		lecturerModules: make(map[pair]bool),
		moduleStudents:  make(map[pair]bool),
		sessions:        make(map[int64]*session.Session),
		readers:         make(map[string]bool),
		refresh:         make(map[string]refreshRec),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// dropSessionLocked removes a session and its attendance, matching the
// ON DELETE CASCADE of the relational schema.
func (s *Store) dropSessionLocked(sessionID int64) {
	delete(s.sessions, sessionID)
	kept := s.attendance[:0]
	for _, rec := range s.attendance {
		if rec.SessionID != sessionID {
			kept = append(kept, rec)
		}
	}
	s.attendance = kept
}

// ---------- session.Store ----------

func (s *Store) LecturerTeaches(_ context.Context, lecturerID, moduleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lecturerModules[pair{lecturerID, moduleID}], nil
}

func (s *Store) Create(_ context.Context, moduleID, lecturerID int64) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Strictly increasing start times keep the latest-start tie-break
	// deterministic even on a coarse clock.
	start := time.Now().UTC()
	if !start.After(s.lastStart) {
		start = s.lastStart.Add(time.Microsecond)
	}
	s.lastStart = start
	sess := &session.Session{
		ID:         s.id(),
		ModuleID:   moduleID,
		LecturerID: lecturerID,
		StartTime:  start,
	}
	s.sessions[sess.ID] = sess
	return *sess, nil
}

func (s *Store) End(_ context.Context, sessionID, lecturerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.EndTime != nil || sess.LecturerID != lecturerID {
		return false, nil
	}
	now := time.Now().UTC()
	sess.EndTime = &now
	return true, nil
}

func (s *Store) EndAny(_ context.Context, sessionID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.EndTime != nil {
		return false, nil
	}
	now := time.Now().UTC()
	sess.EndTime = &now
	return true, nil
}

func (s *Store) EndActiveForModule(_ context.Context, moduleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.activeLocked(moduleID)
	if sess == nil {
		return false, nil
	}
	now := time.Now().UTC()
	sess.EndTime = &now
	return true, nil
}

func (s *Store) activeLocked(moduleID int64) *session.Session {
	var latest *session.Session
	for _, sess := range s.sessions {
		if sess.ModuleID != moduleID || sess.EndTime != nil {
			continue
		}
		if latest == nil || sess.StartTime.After(latest.StartTime) {
			latest = sess
		}
	}
	return latest
}

func (s *Store) Active(_ context.Context, moduleID int64) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.activeLocked(moduleID)
	if sess == nil {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) History(_ context.Context, moduleID int64, startDate, endDate string) ([]session.HistoryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []session.HistoryRow
	for _, sess := range s.sessions {
		if sess.ModuleID != moduleID {
			continue
		}
		day := sess.StartTime.Format("2006-01-02")
		if startDate != "" && day < startDate {
			continue
		}
		if endDate != "" && day > endDate {
			continue
		}
		mod := s.modules[moduleID]
		row := session.HistoryRow{ID: sess.ID, StartTime: sess.StartTime, EndTime: sess.EndTime}
		if mod != nil {
			row.Code = mod.Code
			row.ModuleName = mod.Name
		}
		for _, rec := range s.attendance {
			if rec.SessionID == sess.ID {
				row.AttendanceCount++
			}
		}
		res = append(res, row)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartTime.After(res[j].StartTime) })
	return res, nil
}

func (s *Store) ListAll(_ context.Context) ([]session.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []session.Overview
	for _, sess := range s.sessions {
		o := session.Overview{
			ID:         sess.ID,
			StartTime:  sess.StartTime,
			EndTime:    sess.EndTime,
			ModuleID:   sess.ModuleID,
			LecturerID: sess.LecturerID,
		}
		if mod := s.modules[sess.ModuleID]; mod != nil {
			o.Code = mod.Code
			o.ModuleName = mod.Name
		}
		if lec := s.lecturers[sess.LecturerID]; lec != nil {
			o.LecturerName = lec.Name
		}
		res = append(res, o)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartTime.After(res[j].StartTime) })
	return res, nil
}

// ---------- attendance.Store ----------

func (s *Store) StudentByCard(_ context.Context, cardUID string) (*attendance.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.CardUID != nil && *st.CardUID == cardUID {
			return &attendance.Student{ID: st.ID, Name: st.Name, StudentNumber: st.StudentNumber}, nil
		}
	}
	return nil, nil
}

func (s *Store) Insert(_ context.Context, sessionID, studentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.attendance {
		if rec.SessionID == sessionID && rec.StudentID == studentID {
			return false, nil
		}
	}
	s.attendance = append(s.attendance, attendanceRec{
		ID:        s.id(),
		SessionID: sessionID,
		StudentID: studentID,
		Timestamp: time.Now().UTC(),
	})
	return true, nil
}

func (s *Store) List(_ context.Context, f attendance.Filter) ([]attendance.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []attendance.Row
	for _, rec := range s.attendance {
		sess := s.sessions[rec.SessionID]
		if sess == nil {
			continue
		}
		if f.SessionID != 0 && rec.SessionID != f.SessionID {
			continue
		}
		if f.ModuleID != 0 && sess.ModuleID != f.ModuleID {
			continue
		}
		if f.StudentID != 0 && rec.StudentID != f.StudentID {
			continue
		}
		day := rec.Timestamp.Format("2006-01-02")
		if f.StartDate != "" && day < f.StartDate {
			continue
		}
		if f.EndDate != "" && day > f.EndDate {
			continue
		}
		row := attendance.Row{Timestamp: rec.Timestamp, SessionID: rec.SessionID}
		if st := s.students[rec.StudentID]; st != nil {
			row.Name = st.Name
			row.StudentNumber = st.StudentNumber
		}
		if mod := s.modules[sess.ModuleID]; mod != nil {
			row.Code = mod.Code
			row.ModuleName = mod.Name
		}
		res = append(res, row)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.After(res[j].Timestamp) })
	return res, nil
}

func (s *Store) ExportRows(_ context.Context, sessionID, moduleID int64) ([]attendance.ExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []attendance.ExportRow
	for _, rec := range s.attendance {
		sess := s.sessions[rec.SessionID]
		if sess == nil {
			continue
		}
		if sessionID != 0 && rec.SessionID != sessionID {
			continue
		}
		if moduleID != 0 && sess.ModuleID != moduleID {
			continue
		}
		row := attendance.ExportRow{
			SessionID:    sess.ID,
			SessionStart: sess.StartTime,
			SessionEnd:   sess.EndTime,
			Timestamp:    rec.Timestamp,
		}
		if st := s.students[rec.StudentID]; st != nil {
			row.Name = st.Name
			row.StudentNumber = st.StudentNumber
		}
		if mod := s.modules[sess.ModuleID]; mod != nil {
			row.Code = mod.Code
			row.ModuleName = mod.Name
		}
		res = append(res, row)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.After(res[j].Timestamp) })
	return res, nil
}

func (s *Store) ForStudent(_ context.Context, studentID int64) ([]attendance.StudentRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []attendance.StudentRow
	for _, rec := range s.attendance {
		if rec.StudentID != studentID {
			continue
		}
		sess := s.sessions[rec.SessionID]
		if sess == nil {
			continue
		}
		row := attendance.StudentRow{Timestamp: rec.Timestamp, SessionID: rec.SessionID}
		if mod := s.modules[sess.ModuleID]; mod != nil {
			row.Code = mod.Code
			row.ModuleName = mod.Name
		}
		res = append(res, row)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.After(res[j].Timestamp) })
	return res, nil
}

// ---------- roster.Store ----------

func (s *Store) ListLecturers(_ context.Context) ([]roster.Lecturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.Lecturer
	for _, l := range s.lecturers {
		cp := *l
		cp.PasswordHash = ""
		res = append(res, cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *Store) CreateLecturer(_ context.Context, name, email, passwordHash, role string) (roster.Lecturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &roster.Lecturer{ID: s.id(), Name: name, Email: email, Role: role, PasswordHash: passwordHash}
	s.lecturers[l.ID] = l
	cp := *l
	cp.PasswordHash = ""
	return cp, nil
}

func (s *Store) UpdateLecturer(_ context.Context, id int64, name, email, passwordHash, role string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lecturers[id]
	if !ok {
		return false, nil
	}
	l.Name, l.Email, l.Role = name, email, role
	if passwordHash != "" {
		l.PasswordHash = passwordHash
	}
	return true, nil
}

func (s *Store) DeleteLecturer(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lecturers[id]; !ok {
		return false, nil
	}
	delete(s.lecturers, id)
	for p := range s.lecturerModules {
		if p.a == id {
			delete(s.lecturerModules, p)
		}
	}
	for sid, sess := range s.sessions {
		if sess.LecturerID == id {
			s.dropSessionLocked(sid)
		}
	}
	return true, nil
}

func (s *Store) LecturerByEmail(_ context.Context, email string) (*roster.Lecturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lecturers {
		if l.Email == email {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) AssignLecturer(_ context.Context, lecturerID, moduleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lecturerModules[pair{lecturerID, moduleID}] = true
	return nil
}

func (s *Store) UnassignLecturer(_ context.Context, lecturerID, moduleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pair{lecturerID, moduleID}
	if !s.lecturerModules[p] {
		return false, nil
	}
	delete(s.lecturerModules, p)
	return true, nil
}

func (s *Store) ModulesForLecturer(_ context.Context, lecturerID int64) ([]roster.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.Module
	for p := range s.lecturerModules {
		if p.a != lecturerID {
			continue
		}
		if mod := s.modules[p.b]; mod != nil {
			res = append(res, *mod)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}

func (s *Store) ListModules(_ context.Context) ([]roster.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.Module
	for _, m := range s.modules {
		res = append(res, *m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}

func (s *Store) CreateModule(_ context.Context, code, name string) (roster.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &roster.Module{ID: s.id(), Code: code, Name: name}
	s.modules[m.ID] = m
	return *m, nil
}

func (s *Store) UpdateModule(_ context.Context, id int64, code, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modules[id]
	if !ok {
		return false, nil
	}
	m.Code, m.Name = code, name
	return true, nil
}

func (s *Store) DeleteModule(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[id]; !ok {
		return false, nil
	}
	delete(s.modules, id)
	for p := range s.moduleStudents {
		if p.a == id {
			delete(s.moduleStudents, p)
		}
	}
	for p := range s.lecturerModules {
		if p.b == id {
			delete(s.lecturerModules, p)
		}
	}
	kept := s.timetable[:0]
	for _, row := range s.timetable {
		if row.ModuleID != id {
			kept = append(kept, row)
		}
	}
	s.timetable = kept
	for sid, sess := range s.sessions {
		if sess.ModuleID == id {
			s.dropSessionLocked(sid)
		}
	}
	return true, nil
}

func (s *Store) StudentsForModule(_ context.Context, moduleID int64) ([]roster.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.Student
	for p := range s.moduleStudents {
		if p.a != moduleID {
			continue
		}
		if st := s.students[p.b]; st != nil {
			cp := *st
			cp.PasswordHash = ""
			res = append(res, cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *Store) EnrollStudent(_ context.Context, moduleID, studentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moduleStudents[pair{moduleID, studentID}] = true
	return nil
}

func (s *Store) UnenrollStudent(_ context.Context, moduleID, studentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pair{moduleID, studentID}
	if !s.moduleStudents[p] {
		return false, nil
	}
	delete(s.moduleStudents, p)
	return true, nil
}

func (s *Store) ListStudents(_ context.Context) ([]roster.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.Student
	for _, st := range s.students {
		cp := *st
		cp.PasswordHash = ""
		res = append(res, cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *Store) cardTakenLocked(cardUID string, exceptID int64) bool {
	for _, st := range s.students {
		if st.ID != exceptID && st.CardUID != nil && *st.CardUID == cardUID {
			return true
		}
	}
	return false
}

func (s *Store) CreateStudent(_ context.Context, name, studentNumber string, cardUID *string) (roster.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cardUID != nil && s.cardTakenLocked(*cardUID, 0) {
		return roster.Student{}, roster.ErrCardInUse
	}
	st := &roster.Student{ID: s.id(), Name: name, StudentNumber: studentNumber, CardUID: cardUID}
	s.students[st.ID] = st
	cp := *st
	return cp, nil
}

func (s *Store) UpdateStudent(_ context.Context, id int64, name, studentNumber string, cardUID *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return false, nil
	}
	if cardUID != nil && s.cardTakenLocked(*cardUID, id) {
		return false, roster.ErrCardInUse
	}
	st.Name, st.StudentNumber, st.CardUID = name, studentNumber, cardUID
	return true, nil
}

func (s *Store) DeleteStudent(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[id]; !ok {
		return false, nil
	}
	delete(s.students, id)
	for p := range s.moduleStudents {
		if p.b == id {
			delete(s.moduleStudents, p)
		}
	}
	kept := s.attendance[:0]
	for _, rec := range s.attendance {
		if rec.StudentID != id {
			kept = append(kept, rec)
		}
	}
	s.attendance = kept
	return true, nil
}

func (s *Store) StudentByID(_ context.Context, id int64) (*roster.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *Store) StudentByNumber(_ context.Context, studentNumber string) (*roster.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.StudentNumber == studentNumber {
			cp := *st
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) SetStudentPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.students[id]; ok {
		st.PasswordHash = passwordHash
	}
	return nil
}

func (s *Store) StudentEnrolled(_ context.Context, moduleID, studentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moduleStudents[pair{moduleID, studentID}], nil
}

func (s *Store) AssignCard(_ context.Context, studentID int64, cardUID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return false, nil
	}
	if s.cardTakenLocked(cardUID, studentID) {
		return false, roster.ErrCardInUse
	}
	uid := cardUID
	st.CardUID = &uid
	return true, nil
}

func (s *Store) ModulesForStudent(_ context.Context, studentID int64) ([]roster.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.Module
	for p := range s.moduleStudents {
		if p.b != studentID {
			continue
		}
		if mod := s.modules[p.a]; mod != nil {
			res = append(res, *mod)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res, nil
}

func (s *Store) ModuleDetailsForStudent(_ context.Context, studentID, moduleID int64) (*roster.ModuleDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.moduleStudents[pair{moduleID, studentID}] {
		return nil, nil
	}
	mod := s.modules[moduleID]
	if mod == nil {
		return nil, nil
	}
	details := &roster.ModuleDetails{Module: *mod, Lecturers: []string{}, Timetable: []roster.TimetableRow{}}
	for p := range s.lecturerModules {
		if p.b != moduleID {
			continue
		}
		if lec := s.lecturers[p.a]; lec != nil {
			details.Lecturers = append(details.Lecturers, lec.Name)
		}
	}
	sort.Strings(details.Lecturers)
	for _, t := range s.timetable {
		if t.ModuleID == moduleID {
			details.Timetable = append(details.Timetable, roster.TimetableRow{
				Day: t.Day, StartTime: t.Start, EndTime: t.End, Room: t.Room,
			})
		}
	}
	return details, nil
}

func (s *Store) TimetableForStudent(_ context.Context, studentID int64) ([]roster.TimetableRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.TimetableRow
	for _, t := range s.timetable {
		if !s.moduleStudents[pair{t.ModuleID, studentID}] {
			continue
		}
		row := roster.TimetableRow{
			ModuleID: t.ModuleID, Day: t.Day, StartTime: t.Start, EndTime: t.End, Room: t.Room,
		}
		if mod := s.modules[t.ModuleID]; mod != nil {
			row.Code = mod.Code
			row.Name = mod.Name
		}
		res = append(res, row)
	}
	sortTimetable(res)
	return res, nil
}

func (s *Store) Timetable(_ context.Context) ([]roster.TimetableRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []roster.TimetableRow
	for _, t := range s.timetable {
		row := roster.TimetableRow{
			ID: t.ID, Day: t.Day, StartTime: t.Start, EndTime: t.End,
		}
		if mod := s.modules[t.ModuleID]; mod != nil {
			row.Code = mod.Code
			row.Name = mod.Name
		}
		res = append(res, row)
	}
	sortTimetable(res)
	return res, nil
}

func sortTimetable(rows []roster.TimetableRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day < rows[j].Day
		}
		return rows[i].StartTime < rows[j].StartTime
	})
}

// AddTimetableEntry inserts a timetable row; used by seeding and tests.
func (s *Store) AddTimetableEntry(moduleID int64, day, start, end, room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timetable = append(s.timetable, timetableRec{
		ID: s.id(), ModuleID: moduleID, Day: day, Start: start, End: end, Room: room,
	})
}

func (s *Store) RegisterReader(_ context.Context, readerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers[readerID] = true
	return nil
}

func (s *Store) SaveRefreshToken(_ context.Context, readerID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = refreshRec{ReaderID: readerID, ExpiresAt: expiresAt}
	return nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.refresh[token]; ok {
		rec.Revoked = true
		s.refresh[token] = rec
	}
	return nil
}
