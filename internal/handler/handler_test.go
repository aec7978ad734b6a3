package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"campustap/internal/attendance"
	"campustap/internal/config"
	"campustap/internal/handler"
	"campustap/internal/queue"
	"campustap/internal/roster"
	"campustap/internal/session"
	"campustap/internal/store/memstore"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type env struct {
	r   *gin.Engine
	mem *memstore.Store
	cfg config.App
	q   *queue.InMemory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.App{
		Env:           "test",
		JWTIssuer:     "campustap",
		JWTSigningKey: "test-signing-key",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SessionSecret: "test-session-secret",
		BcryptCost:    bcrypt.MinCost,
	}

	mem := memstore.New()
	lifecycle := session.NewService(mem)
	att := attendance.NewService(mem, lifecycle)
	q := queue.NewInMemory(16)
	h := handler.New(cfg, lifecycle, att, mem, q, nil)

	r := gin.New()
	r.Use(sessions.Sessions("campustap", cookie.NewStore([]byte(cfg.SessionSecret))))
	h.Routes(r)

	return &env{r: r, mem: mem, cfg: cfg, q: q}
}

func (e *env) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (e *env) seedLecturer(t *testing.T, name, email, role string) roster.Lecturer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), e.cfg.BcryptCost)
	require.NoError(t, err)
	lec, err := e.mem.CreateLecturer(context.Background(), name, email, string(hash), role)
	require.NoError(t, err)
	return lec
}

func (e *env) seedModule(t *testing.T, code, name string) roster.Module {
	t.Helper()
	mod, err := e.mem.CreateModule(context.Background(), code, name)
	require.NoError(t, err)
	return mod
}

func (e *env) seedStudent(t *testing.T, name, number, cardUID string) roster.Student {
	t.Helper()
	var uid *string
	if cardUID != "" {
		uid = &cardUID
	}
	stu, err := e.mem.CreateStudent(context.Background(), name, number, uid)
	require.NoError(t, err)
	return stu
}

func (e *env) loginStaff(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w.Result().Cookies()
}

func (e *env) loginStudent(t *testing.T, studentNumber string) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/student/auth/login", gin.H{"student_number": studentNumber, "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w.Result().Cookies()
}

func TestStaffLoginBadCredentials(t *testing.T) {
	e := newEnv(t)
	e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")

	w := e.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "mia@mtu.ie", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["error"])

	w = e.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "nobody@mtu.ie", "password": "password123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStaffMeReflectsSession(t *testing.T) {
	e := newEnv(t)
	lec := e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")

	w := e.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["user"])

	cookies := e.loginStaff(t, "mia@mtu.ie")
	w = e.do(t, http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	user, ok := decode(t, w)["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(lec.ID), user["id"])
	assert.Equal(t, "Mia Toretto", user["name"])
	assert.Equal(t, "lecturer", user["role"])
}

func TestStaffLogoutClearsSession(t *testing.T) {
	e := newEnv(t)
	e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")
	cookies := e.loginStaff(t, "mia@mtu.ie")

	w := e.do(t, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	// The logout response carries the replacement cookie.
	w = e.do(t, http.MethodGet, "/api/auth/me", nil, w.Result().Cookies())
	assert.Nil(t, decode(t, w)["user"])
}

func TestStaffRoutesRequireLogin(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/api/sessions/active", "/api/students", "/api/modules", "/api/attendance"} {
		w := e.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	e := newEnv(t)
	e.seedLecturer(t, "Mia Toretto", "mia@mtu.ie", "lecturer")
	cookies := e.loginStaff(t, "mia@mtu.ie")

	w := e.do(t, http.MethodGet, "/api/admin/lecturers", nil, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", decode(t, w)["error"])
}
