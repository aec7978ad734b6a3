package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustap/internal/session"
	"campustap/internal/store/memstore"
)

func setup(t *testing.T) (*session.Service, *memstore.Store, int64, int64) {
	t.Helper()
	mem := memstore.New()
	svc := session.NewService(mem)
	ctx := context.Background()

	lec, err := mem.CreateLecturer(ctx, "Mia Toretto", "mia@mtu.ie", "x", "lecturer")
	require.NoError(t, err)
	mod, err := mem.CreateModule(ctx, "CS401", "Computer Networks")
	require.NoError(t, err)
	require.NoError(t, mem.AssignLecturer(ctx, lec.ID, mod.ID))

	return svc, mem, mod.ID, lec.ID
}

func TestOpenRequiresTeachingAssignment(t *testing.T) {
	svc, mem, moduleID, lecturerID := setup(t)
	ctx := context.Background()

	other, err := mem.CreateLecturer(ctx, "Angela Wright", "angela@mtu.ie", "x", "lecturer")
	require.NoError(t, err)

	_, err = svc.Open(ctx, moduleID, other.ID)
	assert.ErrorIs(t, err, session.ErrNotAssigned)

	sess, err := svc.Open(ctx, moduleID, lecturerID)
	require.NoError(t, err)
	assert.Equal(t, moduleID, sess.ModuleID)
	assert.Equal(t, lecturerID, sess.LecturerID)
	assert.Nil(t, sess.EndTime)
	assert.False(t, sess.StartTime.IsZero())
}

func TestGetActiveNoneIsNotAnError(t *testing.T) {
	svc, _, moduleID, _ := setup(t)

	sess, err := svc.GetActive(context.Background(), moduleID)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestCloseTwiceFailsAndKeepsEndTime(t *testing.T) {
	svc, mem, moduleID, lecturerID := setup(t)
	ctx := context.Background()

	sess, err := svc.Open(ctx, moduleID, lecturerID)
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, sess.ID, lecturerID))

	all, err := mem.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].EndTime)
	firstEnd := *all[0].EndTime

	err = svc.Close(ctx, sess.ID, lecturerID)
	assert.ErrorIs(t, err, session.ErrNotFoundOrEnded)

	all, err = mem.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstEnd, *all[0].EndTime)
}

func TestCloseChecksOwnership(t *testing.T) {
	svc, mem, moduleID, lecturerID := setup(t)
	ctx := context.Background()

	other, err := mem.CreateLecturer(ctx, "Katie Power", "katie@mtu.ie", "x", "lecturer")
	require.NoError(t, err)

	sess, err := svc.Open(ctx, moduleID, lecturerID)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Close(ctx, sess.ID, other.ID), session.ErrNotFoundOrEnded)

	// Admin close skips the ownership check.
	require.NoError(t, svc.CloseByAdmin(ctx, sess.ID))
}

func TestCloseMissingSession(t *testing.T) {
	svc, _, _, lecturerID := setup(t)
	assert.ErrorIs(t, svc.Close(context.Background(), 9999, lecturerID), session.ErrNotFoundOrEnded)
}

func TestTieBreakLatestStartWins(t *testing.T) {
	svc, _, moduleID, lecturerID := setup(t)
	ctx := context.Background()

	s1, err := svc.Open(ctx, moduleID, lecturerID)
	require.NoError(t, err)
	s2, err := svc.Open(ctx, moduleID, lecturerID)
	require.NoError(t, err)
	require.True(t, s2.StartTime.After(s1.StartTime))

	active, err := svc.GetActive(ctx, moduleID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, s2.ID, active.ID)

	// CloseActiveForModule must pick the same session GetActive does.
	require.NoError(t, svc.CloseActiveForModule(ctx, moduleID))

	active, err = svc.GetActive(ctx, moduleID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, s1.ID, active.ID)
}

func TestCloseActiveForModuleWithoutSession(t *testing.T) {
	svc, _, moduleID, _ := setup(t)
	err := svc.CloseActiveForModule(context.Background(), moduleID)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
}
