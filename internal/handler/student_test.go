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
	"golang.org/x/crypto/bcrypt"

	"campustap/internal/roster"
	"campustap/internal/session"
)

func (e *env) seedPortalStudent(t *testing.T) roster.Student {
	t.Helper()
	stu := e.seedStudent(t, "Kelvin O'Brien", "MTU001", "04A1B2C3")
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), e.cfg.BcryptCost)
	require.NoError(t, err)
	require.NoError(t, e.mem.SetStudentPassword(context.Background(), stu.ID, string(hash)))
	return stu
}

func TestStudentLoginAndMe(t *testing.T) {
	e := newEnv(t)
	stu := e.seedPortalStudent(t)

	w := e.do(t, http.MethodPost, "/api/student/auth/login", gin.H{"student_number": "MTU001", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookies := e.loginStudent(t, "MTU001")
	w = e.do(t, http.MethodGet, "/api/student/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	principal, ok := decode(t, w)["student"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(stu.ID), principal["id"])
	assert.Equal(t, "MTU001", principal["student_number"])
}

func TestStudentRoutesRequireStudentSession(t *testing.T) {
	e := newEnv(t)
	e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")
	staffCookies := e.loginStaff(t, "mia@mtu.ie")

	// A staff cookie is not a student session.
	w := e.do(t, http.MethodGet, "/api/student/modules", nil, staffCookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/student/timetable", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStudentChangePassword(t *testing.T) {
	e := newEnv(t)
	e.seedPortalStudent(t)
	cookies := e.loginStudent(t, "MTU001")

	w := e.do(t, http.MethodPost, "/api/student/auth/change-password",
		gin.H{"current_password": "wrong", "new_password": "newpass456"}, cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid current password", decode(t, w)["error"])

	w = e.do(t, http.MethodPost, "/api/student/auth/change-password",
		gin.H{"current_password": "password123", "new_password": "newpass456"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/student/auth/login",
		gin.H{"student_number": "MTU001", "password": "newpass456"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/student/auth/login",
		gin.H{"student_number": "MTU001", "password": "password123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStudentModulesAndDetails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stu := e.seedPortalStudent(t)
	lec := e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")
	mod := e.seedModule(t, "CS401", "Computer Networks")
	other := e.seedModule(t, "CS402", "Distributed Systems")
	require.NoError(t, e.mem.AssignLecturer(ctx, lec.ID, mod.ID))
	require.NoError(t, e.mem.EnrollStudent(ctx, mod.ID, stu.ID))
	e.mem.AddTimetableEntry(mod.ID, "Monday", "09:00", "11:00", "B180")

	cookies := e.loginStudent(t, "MTU001")

	w := e.do(t, http.MethodGet, "/api/student/modules", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var modules []roster.Module
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &modules))
	require.Len(t, modules, 1)
	assert.Equal(t, "CS401", modules[0].Code)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/student/modules/%d/details", mod.ID), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	details := decode(t, w)
	modPayload, ok := details["module"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CS401", modPayload["code"])
	assert.Contains(t, details["lecturers"], "Mia Toretto")

	// Details of a module the student is not enrolled in are hidden.
	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/student/modules/%d/details", other.ID), nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/api/student/timetable", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "B180")
}

func TestStudentAttendanceHistory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stu := e.seedPortalStudent(t)
	lec := e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")
	mod := e.seedModule(t, "CS401", "Computer Networks")
	require.NoError(t, e.mem.AssignLecturer(ctx, lec.ID, mod.ID))
	require.NoError(t, e.mem.EnrollStudent(ctx, mod.ID, stu.ID))

	lifecycle := session.NewService(e.mem)
	sess, err := lifecycle.Open(ctx, mod.ID, lec.ID)
	require.NoError(t, err)
	inserted, err := e.mem.Insert(ctx, sess.ID, stu.ID)
	require.NoError(t, err)
	require.True(t, inserted)

	cookies := e.loginStudent(t, "MTU001")
	w := e.do(t, http.MethodGet, "/api/student/attendance", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "CS401", rows[0]["code"])
	assert.Equal(t, float64(sess.ID), rows[0]["session_id"])
}
