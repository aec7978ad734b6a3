package handler

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"campustap/internal/auth"
	"campustap/internal/roster"
	"campustap/internal/session"
)

func normalizeRole(role string) string {
	if role == "admin" {
		return "admin"
	}
	return "lecturer"
}

// AdminListLecturers lists staff accounts.
func (h *Handler) AdminListLecturers(c *gin.Context) {
	lecturers, err := h.roster.ListLecturers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if lecturers == nil {
		lecturers = []roster.Lecturer{}
	}
	c.JSON(http.StatusOK, lecturers)
}

// AdminCreateLecturer creates a staff account with a hashed password.
func (h *Handler) AdminCreateLecturer(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name, email, or password"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.BcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	lec, err := h.roster.CreateLecturer(c.Request.Context(), req.Name, req.Email, string(hash), normalizeRole(req.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lec)
}

// AdminUpdateLecturer updates a staff account; password only when supplied.
func (h *Handler) AdminUpdateLecturer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or email"})
		return
	}

	var hash string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.BcryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		hash = string(hashed)
	}

	role := normalizeRole(req.Role)
	changed, err := h.roster.UpdateLecturer(c.Request.Context(), id, req.Name, req.Email, hash, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "name": req.Name, "email": req.Email, "role": role})
}

// AdminDeleteLecturer removes a staff account, except one's own.
func (h *Handler) AdminDeleteLecturer(c *gin.Context) {
	staff, _ := auth.CurrentStaff(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if staff.ID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}
	changed, err := h.roster.DeleteLecturer(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminAssignLecturer adds a teaching assignment.
func (h *Handler) AdminAssignLecturer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ModuleID int64 `json:"module_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ModuleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing module_id"})
		return
	}
	if err := h.roster.AssignLecturer(c.Request.Context(), id, req.ModuleID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lecturer_id": id, "module_id": req.ModuleID})
}

// AdminUnassignLecturer removes a teaching assignment.
func (h *Handler) AdminUnassignLecturer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	moduleID, ok := pathID(c, "module_id")
	if !ok {
		return
	}
	changed, err := h.roster.UnassignLecturer(c.Request.Context(), id, moduleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminListModules lists modules ordered by code.
func (h *Handler) AdminListModules(c *gin.Context) {
	h.ListModules(c)
}

// AdminCreateModule creates a module.
func (h *Handler) AdminCreateModule(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code or name"})
		return
	}
	mod, err := h.roster.CreateModule(c.Request.Context(), req.Code, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mod)
}

// AdminUpdateModule updates a module.
func (h *Handler) AdminUpdateModule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code or name"})
		return
	}
	changed, err := h.roster.UpdateModule(c.Request.Context(), id, req.Code, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "code": req.Code, "name": req.Name})
}

// AdminDeleteModule removes a module and, via cascade, its sessions.
func (h *Handler) AdminDeleteModule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, err := h.roster.DeleteModule(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminEnrollStudent adds a student to a module.
func (h *Handler) AdminEnrollStudent(c *gin.Context) {
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		StudentID int64 `json:"student_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StudentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing student_id"})
		return
	}
	if err := h.roster.EnrollStudent(c.Request.Context(), moduleID, req.StudentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "module_id": moduleID, "student_id": req.StudentID})
}

// AdminUnenrollStudent removes a student from a module.
func (h *Handler) AdminUnenrollStudent(c *gin.Context) {
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	studentID, ok := pathID(c, "student_id")
	if !ok {
		return
	}
	changed, err := h.roster.UnenrollStudent(c.Request.Context(), moduleID, studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminListStudents lists the roster including card identifiers.
func (h *Handler) AdminListStudents(c *gin.Context) {
	h.ListStudents(c)
}

// AdminCreateStudent creates a student, optionally with a card.
func (h *Handler) AdminCreateStudent(c *gin.Context) {
	var req struct {
		Name          string  `json:"name"`
		StudentNumber string  `json:"student_number"`
		CardUID       *string `json:"nfc_uid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.StudentNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or student_number"})
		return
	}
	st, err := h.roster.CreateStudent(c.Request.Context(), req.Name, req.StudentNumber, emptyToNil(req.CardUID))
	if err != nil {
		if errors.Is(err, roster.ErrCardInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": "Card already assigned"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// AdminUpdateStudent updates a student, including clearing the card.
func (h *Handler) AdminUpdateStudent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name          string  `json:"name"`
		StudentNumber string  `json:"student_number"`
		CardUID       *string `json:"nfc_uid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.StudentNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or student_number"})
		return
	}
	changed, err := h.roster.UpdateStudent(c.Request.Context(), id, req.Name, req.StudentNumber, emptyToNil(req.CardUID))
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
	c.JSON(http.StatusOK, gin.H{"id": id, "name": req.Name, "student_number": req.StudentNumber, "nfc_uid": emptyToNil(req.CardUID)})
}

// AdminDeleteStudent removes a student.
func (h *Handler) AdminDeleteStudent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, err := h.roster.DeleteStudent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// AdminListSessions lists all sessions joined with module and lecturer.
func (h *Handler) AdminListSessions(c *gin.Context) {
	rows, err := h.sessions.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []session.Overview{}
	}
	c.JSON(http.StatusOK, rows)
}

// AdminCloseSession ends any session regardless of owner.
func (h *Handler) AdminCloseSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.CloseByAdmin(c.Request.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFoundOrEnded) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session not found or already ended"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminCloseActive ends the latest open session of a module.
func (h *Handler) AdminCloseActive(c *gin.Context) {
	var req struct {
		ModuleID int64 `json:"module_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ModuleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing module_id"})
		return
	}
	if err := h.sessions.CloseActiveForModule(c.Request.Context(), req.ModuleID); err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No active session for module"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminExportAttendance returns joined attendance rows, as JSON or CSV.
func (h *Handler) AdminExportAttendance(c *gin.Context) {
	rows, err := h.attendance.ExportRows(c.Request.Context(), queryID(c, "session_id"), queryID(c, "module_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") != "csv" {
		c.JSON(http.StatusOK, rows)
		return
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{
		"name", "student_number", "module_code", "module_name",
		"session_id", "session_start", "session_end", "attendance_timestamp",
	})
	for _, r := range rows {
		end := ""
		if r.SessionEnd != nil {
			end = r.SessionEnd.Format(time.RFC3339)
		}
		_ = w.Write([]string{
			r.Name, r.StudentNumber, r.Code, r.ModuleName,
			strconv.FormatInt(r.SessionID, 10),
			r.SessionStart.Format(time.RFC3339), end,
			r.Timestamp.Format(time.RFC3339),
		})
	}
	w.Flush()

	c.Header("Content-Disposition", "attachment; filename=attendance.csv")
	c.Data(http.StatusOK, "text/csv", []byte(sb.String()))
}
