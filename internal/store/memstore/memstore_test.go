package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustap/internal/roster"
)

func TestDuplicateInsertReportsFalse(t *testing.T) {
	s := New()
	ctx := context.Background()

	sess, err := s.Create(ctx, 1, 1)
	require.NoError(t, err)

	inserted, err := s.Insert(ctx, sess.ID, 42)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.Insert(ctx, sess.ID, 42)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestCardUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	uid := "04A1B2C3"
	kelvin, err := s.CreateStudent(ctx, "Kelvin O'Brien", "MTU001", &uid)
	require.NoError(t, err)
	aoife, err := s.CreateStudent(ctx, "Aoife Murphy", "MTU002", nil)
	require.NoError(t, err)

	_, err = s.CreateStudent(ctx, "Liam Walsh", "MTU003", &uid)
	assert.ErrorIs(t, err, roster.ErrCardInUse)

	_, err = s.AssignCard(ctx, aoife.ID, uid)
	assert.ErrorIs(t, err, roster.ErrCardInUse)

	// Reassigning a student their own card is a no-op, not a conflict.
	changed, err := s.AssignCard(ctx, kelvin.ID, uid)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.AssignCard(ctx, 9999, "0499FFFF")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSessionStartTimesStrictlyIncrease(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.Create(ctx, 1, 1)
	require.NoError(t, err)
	b, err := s.Create(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, b.StartTime.After(a.StartTime))
}

func TestDeleteModuleCascades(t *testing.T) {
	s := New()
	ctx := context.Background()

	mod, err := s.CreateModule(ctx, "CS401", "Computer Networks")
	require.NoError(t, err)
	uid := "04A1B2C3"
	stu, err := s.CreateStudent(ctx, "Kelvin O'Brien", "MTU001", &uid)
	require.NoError(t, err)
	require.NoError(t, s.EnrollStudent(ctx, mod.ID, stu.ID))

	sess, err := s.Create(ctx, mod.ID, 1)
	require.NoError(t, err)
	_, err = s.Insert(ctx, sess.ID, stu.ID)
	require.NoError(t, err)

	changed, err := s.DeleteModule(ctx, mod.ID)
	require.NoError(t, err)
	require.True(t, changed)

	active, err := s.Active(ctx, mod.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	enrolled, err := s.StudentEnrolled(ctx, mod.ID, stu.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
}
