// Package handler wires the HTTP surface: the reader-facing tap endpoint,
// the staff session and reporting endpoints, the admin CRUD and the student
// portal.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campustap/internal/attendance"
	"campustap/internal/auth"
	"campustap/internal/config"
	"campustap/internal/queue"
	"campustap/internal/roster"
	"campustap/internal/session"
	"campustap/internal/store"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	cfg        config.App
	sessions   *session.Service
	attendance *attendance.Service
	roster     roster.Store
	q          queue.Queue
	redis      *store.Redis
}

// New creates a handler. redis may be nil when no live counters are wanted.
func New(cfg config.App, sessions *session.Service, att *attendance.Service, ros roster.Store, q queue.Queue, redis *store.Redis) *Handler {
	return &Handler{
		cfg:        cfg,
		sessions:   sessions,
		attendance: att,
		roster:     ros,
		q:          q,
		redis:      redis,
	}
}

// Routes attaches all API routes under /api.
func (h *Handler) Routes(r *gin.Engine) {
	api := r.Group("/api")

	// Reader hardware.
	api.POST("/readers/register", h.RegisterReader)
	api.POST("/tap", auth.ReaderAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer), h.Tap)

	// Staff auth.
	api.POST("/auth/login", h.StaffLogin)
	api.POST("/auth/logout", h.StaffLogout)
	api.GET("/auth/me", h.StaffMe)

	// Staff surface.
	staff := api.Group("", auth.RequireLogin())
	staff.POST("/sessions", h.OpenSession)
	staff.POST("/sessions/:id/end", h.CloseSession)
	staff.GET("/sessions/active", h.ActiveSession)
	staff.GET("/sessions/history", h.SessionHistory)
	staff.GET("/sessions/:id/live", h.LiveCount)
	staff.GET("/attendance", h.ListAttendance)
	staff.GET("/students", h.ListStudents)
	staff.PUT("/students/:id/nfc", h.AssignCard)
	staff.GET("/modules", h.ListModules)
	staff.GET("/modules/:id/students", h.ModuleStudents)
	staff.GET("/lecturer/modules", h.MyModules)
	staff.GET("/lecturer/:id/modules", h.LecturerModules)
	staff.GET("/timetable", h.Timetable)

	// Admin surface.
	admin := api.Group("/admin", auth.RequireLogin(), auth.RequireRole("admin"))
	admin.GET("/lecturers", h.AdminListLecturers)
	admin.POST("/lecturers", h.AdminCreateLecturer)
	admin.PUT("/lecturers/:id", h.AdminUpdateLecturer)
	admin.DELETE("/lecturers/:id", h.AdminDeleteLecturer)
	admin.POST("/lecturers/:id/modules", h.AdminAssignLecturer)
	admin.DELETE("/lecturers/:id/modules/:module_id", h.AdminUnassignLecturer)
	admin.GET("/modules", h.AdminListModules)
	admin.POST("/modules", h.AdminCreateModule)
	admin.PUT("/modules/:id", h.AdminUpdateModule)
	admin.DELETE("/modules/:id", h.AdminDeleteModule)
	admin.GET("/modules/:id/students", h.ModuleStudents)
	admin.POST("/modules/:id/students", h.AdminEnrollStudent)
	admin.DELETE("/modules/:id/students/:student_id", h.AdminUnenrollStudent)
	admin.GET("/students", h.AdminListStudents)
	admin.POST("/students", h.AdminCreateStudent)
	admin.PUT("/students/:id", h.AdminUpdateStudent)
	admin.DELETE("/students/:id", h.AdminDeleteStudent)
	admin.GET("/sessions", h.AdminListSessions)
	admin.POST("/sessions/:id/end", h.AdminCloseSession)
	admin.POST("/sessions/end-active", h.AdminCloseActive)
	admin.GET("/attendance/export", h.AdminExportAttendance)

	// Student portal.
	api.POST("/student/auth/login", h.StudentLogin)
	api.POST("/student/auth/logout", h.StudentLogout)
	api.GET("/student/auth/me", h.StudentMe)
	student := api.Group("/student", auth.RequireStudent())
	student.POST("/auth/change-password", h.StudentChangePassword)
	student.GET("/modules", h.StudentModules)
	student.GET("/modules/:id/details", h.StudentModuleDetails)
	student.GET("/timetable", h.StudentTimetable)
	student.GET("/attendance", h.StudentAttendance)
}

// pathID parses a numeric path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
