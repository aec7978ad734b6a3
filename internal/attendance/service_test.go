package attendance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustap/internal/attendance"
	"campustap/internal/session"
	"campustap/internal/store/memstore"
)

type fixture struct {
	svc      *attendance.Service
	sessions *session.Service
	mem      *memstore.Store
	moduleID int64
	lecturer int64
	cardUID  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := memstore.New()
	sessions := session.NewService(mem)
	svc := attendance.NewService(mem, sessions)
	ctx := context.Background()

	lec, err := mem.CreateLecturer(ctx, "Mia Toretto", "mia@mtu.ie", "x", "lecturer")
	require.NoError(t, err)
	mod, err := mem.CreateModule(ctx, "CS401", "Computer Networks")
	require.NoError(t, err)
	require.NoError(t, mem.AssignLecturer(ctx, lec.ID, mod.ID))

	uid := "04A1B2C3"
	stu, err := mem.CreateStudent(ctx, "Kelvin O'Brien", "MTU001", &uid)
	require.NoError(t, err)
	require.NoError(t, mem.EnrollStudent(ctx, mod.ID, stu.ID))

	return fixture{svc: svc, sessions: sessions, mem: mem, moduleID: mod.ID, lecturer: lec.ID, cardUID: uid}
}

func TestRecordTapUnknownCard(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RecordTap(context.Background(), "DEADBEEF", f.moduleID)
	assert.ErrorIs(t, err, attendance.ErrUnknownCard)
}

func TestRecordTapWithoutActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordTap(ctx, f.cardUID, f.moduleID)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)

	rows, err := f.mem.List(ctx, attendance.Filter{ModuleID: f.moduleID})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRecordTapIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Open(ctx, f.moduleID, f.lecturer)
	require.NoError(t, err)

	first, err := f.svc.RecordTap(ctx, f.cardUID, f.moduleID)
	require.NoError(t, err)
	assert.Equal(t, "Kelvin O'Brien", first.StudentName)
	assert.Equal(t, sess.ID, first.SessionID)
	assert.False(t, first.AlreadyLogged)

	second, err := f.svc.RecordTap(ctx, f.cardUID, f.moduleID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyLogged)
	assert.Equal(t, first.SessionID, second.SessionID)

	rows, err := f.mem.List(ctx, attendance.Filter{SessionID: sess.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordTapGoesToLatestSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Open(ctx, f.moduleID, f.lecturer)
	require.NoError(t, err)
	latest, err := f.sessions.Open(ctx, f.moduleID, f.lecturer)
	require.NoError(t, err)

	res, err := f.svc.RecordTap(ctx, f.cardUID, f.moduleID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, res.SessionID)
}

func TestRecordTapAfterCloseReopens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Open(ctx, f.moduleID, f.lecturer)
	require.NoError(t, err)
	_, err = f.svc.RecordTap(ctx, f.cardUID, f.moduleID)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Close(ctx, sess.ID, f.lecturer))

	// A new session means the same card counts as a fresh tap.
	next, err := f.sessions.Open(ctx, f.moduleID, f.lecturer)
	require.NoError(t, err)
	res, err := f.svc.RecordTap(ctx, f.cardUID, f.moduleID)
	require.NoError(t, err)
	assert.Equal(t, next.ID, res.SessionID)
	assert.False(t, res.AlreadyLogged)
}
