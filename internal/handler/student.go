package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"campustap/internal/attendance"
	"campustap/internal/auth"
	"campustap/internal/roster"
)

// StudentLogin authenticates a student by student number and password.
func (h *Handler) StudentLogin(c *gin.Context) {
	var req struct {
		StudentNumber string `json:"student_number"`
		Password      string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StudentNumber == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing student_number or password"})
		return
	}

	st, err := h.roster.StudentByNumber(c.Request.Context(), req.StudentNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil || bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := auth.LoginStudent(c, st.ID, st.Name, st.StudentNumber); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": st.ID, "name": st.Name, "student_number": st.StudentNumber})
}

// StudentLogout clears the cookie session.
func (h *Handler) StudentLogout(c *gin.Context) {
	if err := auth.Logout(c); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StudentMe reports the logged-in student principal, or null.
func (h *Handler) StudentMe(c *gin.Context) {
	if st, ok := auth.CurrentStudent(c); ok {
		c.JSON(http.StatusOK, gin.H{"student": st})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": nil})
}

// StudentChangePassword verifies the current password and sets a new one.
func (h *Handler) StudentChangePassword(c *gin.Context) {
	principal, _ := auth.CurrentStudent(c)
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing current_password or new_password"})
		return
	}

	st, err := h.roster.StudentByID(c.Request.Context(), principal.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(req.CurrentPassword)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid current password"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.cfg.BcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.roster.SetStudentPassword(c.Request.Context(), st.ID, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StudentModules lists the modules the student is enrolled in.
func (h *Handler) StudentModules(c *gin.Context) {
	principal, _ := auth.CurrentStudent(c)
	modules, err := h.roster.ModulesForStudent(c.Request.Context(), principal.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if modules == nil {
		modules = []roster.Module{}
	}
	c.JSON(http.StatusOK, modules)
}

// StudentModuleDetails returns one enrolled module with its lecturers and
// timetable.
func (h *Handler) StudentModuleDetails(c *gin.Context) {
	principal, _ := auth.CurrentStudent(c)
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	details, err := h.roster.ModuleDetailsForStudent(c.Request.Context(), principal.ID, moduleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if details == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
		return
	}
	c.JSON(http.StatusOK, details)
}

// StudentTimetable lists the timetable across the student's modules.
func (h *Handler) StudentTimetable(c *gin.Context) {
	principal, _ := auth.CurrentStudent(c)
	rows, err := h.roster.TimetableForStudent(c.Request.Context(), principal.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []roster.TimetableRow{}
	}
	c.JSON(http.StatusOK, rows)
}

// StudentAttendance lists the student's own attendance history.
func (h *Handler) StudentAttendance(c *gin.Context) {
	principal, _ := auth.CurrentStudent(c)
	rows, err := h.attendance.ForStudent(c.Request.Context(), principal.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []attendance.StudentRow{}
	}
	c.JSON(http.StatusOK, rows)
}
