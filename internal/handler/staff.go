package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"campustap/internal/attendance"
	"campustap/internal/auth"
	"campustap/internal/roster"
)

// StaffLogin authenticates a lecturer or admin by email and password.
func (h *Handler) StaffLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email or password"})
		return
	}

	lec, err := h.roster.LecturerByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if lec == nil || bcrypt.CompareHashAndPassword([]byte(lec.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := auth.LoginStaff(c, lec.ID, lec.Name, lec.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": lec.ID, "name": lec.Name, "email": lec.Email, "role": lec.Role})
}

// StaffLogout clears the cookie session.
func (h *Handler) StaffLogout(c *gin.Context) {
	if err := auth.Logout(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StaffMe reports the logged-in staff principal, or null.
func (h *Handler) StaffMe(c *gin.Context) {
	if staff, ok := auth.CurrentStaff(c); ok {
		c.JSON(http.StatusOK, gin.H{"user": staff})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": nil})
}

// ListStudents returns the full roster for staff.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if students == nil {
		students = []roster.Student{}
	}
	c.JSON(http.StatusOK, students)
}

// AssignCard binds a card identifier to a student. The student must be
// enrolled in the module the reader belongs to, and the card must not be
// bound to anyone else.
func (h *Handler) AssignCard(c *gin.Context) {
	studentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		CardUID  string `json:"nfc_uid"`
		ModuleID int64  `json:"module_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CardUID == "" || req.ModuleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing nfc_uid or module_id"})
		return
	}

	enrolled, err := h.roster.StudentEnrolled(c.Request.Context(), req.ModuleID, studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !enrolled {
		c.JSON(http.StatusForbidden, gin.H{"error": "Student not in module"})
		return
	}

	changed, err := h.roster.AssignCard(c.Request.Context(), studentID, req.CardUID)
	if err != nil {
		if errors.Is(err, roster.ErrCardInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": "Card already assigned"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": studentID, "nfc_uid": req.CardUID})
}

// ListModules returns all modules.
func (h *Handler) ListModules(c *gin.Context) {
	modules, err := h.roster.ListModules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if modules == nil {
		modules = []roster.Module{}
	}
	c.JSON(http.StatusOK, modules)
}

// ModuleStudents lists the students enrolled in a module.
func (h *Handler) ModuleStudents(c *gin.Context) {
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	students, err := h.roster.StudentsForModule(c.Request.Context(), moduleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if students == nil {
		students = []roster.Student{}
	}
	c.JSON(http.StatusOK, students)
}

// MyModules lists the modules the logged-in lecturer teaches.
func (h *Handler) MyModules(c *gin.Context) {
	staff, _ := auth.CurrentStaff(c)
	h.lecturerModules(c, staff.ID)
}

// LecturerModules lists another lecturer's modules; admins only, except for
// one's own id.
func (h *Handler) LecturerModules(c *gin.Context) {
	staff, _ := auth.CurrentStaff(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if staff.Role != "admin" && staff.ID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	h.lecturerModules(c, id)
}

func (h *Handler) lecturerModules(c *gin.Context, lecturerID int64) {
	modules, err := h.roster.ModulesForLecturer(c.Request.Context(), lecturerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if modules == nil {
		modules = []roster.Module{}
	}
	c.JSON(http.StatusOK, modules)
}

// Timetable returns the global timetable listing.
func (h *Handler) Timetable(c *gin.Context) {
	rows, err := h.roster.Timetable(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []roster.TimetableRow{}
	}
	c.JSON(http.StatusOK, rows)
}

// ListAttendance returns joined attendance rows with optional filters.
func (h *Handler) ListAttendance(c *gin.Context) {
	f := attendance.Filter{
		SessionID: queryID(c, "session_id"),
		ModuleID:  queryID(c, "module_id"),
		StudentID: queryID(c, "student_id"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	rows, err := h.attendance.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []attendance.Row{}
	}
	c.JSON(http.StatusOK, rows)
}
