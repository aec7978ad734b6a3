package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campustap/internal/roster"
)

type sessionFixture struct {
	*env
	lecturer roster.Lecturer
	module   roster.Module
	cookies  []*http.Cookie
}

func newSessionFixture(t *testing.T) sessionFixture {
	e := newEnv(t)
	lec := e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")
	mod := e.seedModule(t, "CS401", "Computer Networks")
	require.NoError(t, e.mem.AssignLecturer(context.Background(), lec.ID, mod.ID))
	return sessionFixture{env: e, lecturer: lec, module: mod, cookies: e.loginStaff(t, "mia@mtu.ie")}
}

func (f sessionFixture) open(t *testing.T) int64 {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/sessions", gin.H{"module_id": f.module.ID}, f.cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	require.Equal(t, float64(f.module.ID), body["module_id"])
	require.Equal(t, float64(f.lecturer.ID), body["lecturer_id"])
	return int64(body["id"].(float64))
}

func TestOpenSessionRejectsUnassignedLecturer(t *testing.T) {
	f := newSessionFixture(t)
	f.seedLecturer(t, "Angela Wright", "angela@mtu.ie", "lecturer")
	cookies := f.loginStaff(t, "angela@mtu.ie")

	w := f.do(t, http.MethodPost, "/api/sessions", gin.H{"module_id": f.module.ID}, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not assigned to module", decode(t, w)["error"])
}

func TestOpenSessionValidation(t *testing.T) {
	f := newSessionFixture(t)
	w := f.do(t, http.MethodPost, "/api/sessions", gin.H{}, f.cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing module_id", decode(t, w)["error"])
}

func TestActiveSessionNullWhenNoneOpen(t *testing.T) {
	f := newSessionFixture(t)

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/active?module_id=%d", f.module.ID), nil, f.cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	w = f.do(t, http.MethodGet, "/api/sessions/active", nil, f.cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActiveSessionReturnsLatestOpen(t *testing.T) {
	f := newSessionFixture(t)
	f.open(t)
	second := f.open(t)

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/active?module_id=%d", f.module.ID), nil, f.cookies)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(second), body["id"])
	assert.Nil(t, body["end_time"])
}

func TestCloseSessionTwice(t *testing.T) {
	f := newSessionFixture(t)
	id := f.open(t)

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/end", id), nil, f.cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/end", id), nil, f.cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Session not found or already ended", decode(t, w)["error"])
}

func TestCloseSessionOfOtherLecturer(t *testing.T) {
	f := newSessionFixture(t)
	id := f.open(t)

	f.seedLecturer(t, "Angela Wright", "angela@mtu.ie", "lecturer")
	cookies := f.loginStaff(t, "angela@mtu.ie")

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/end", id), nil, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Session not found or already ended", decode(t, w)["error"])
}

func TestSessionHistoryCountsAttendance(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	id := f.open(t)

	stu := f.seedStudent(t, "Kelvin O'Brien", "MTU001", "04A1B2C3")
	require.NoError(t, f.mem.EnrollStudent(ctx, f.module.ID, stu.ID))
	inserted, err := f.mem.Insert(ctx, id, stu.ID)
	require.NoError(t, err)
	require.True(t, inserted)

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/history?module_id=%d", f.module.ID), nil, f.cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, float64(id), rows[0]["id"])
	assert.Equal(t, float64(1), rows[0]["attendance_count"])
}

func TestLiveCountWithoutRedis(t *testing.T) {
	f := newSessionFixture(t)
	id := f.open(t)

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/%d/live", id), nil, f.cookies)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
