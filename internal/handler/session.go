package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campustap/internal/auth"
	"campustap/internal/metrics"
	"campustap/internal/session"
)

// OpenSession starts an attendance window for a module the lecturer teaches.
func (h *Handler) OpenSession(c *gin.Context) {
	staff, _ := auth.CurrentStaff(c)
	var req struct {
		ModuleID int64 `json:"module_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ModuleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing module_id"})
		return
	}

	sess, err := h.sessions.Open(c.Request.Context(), req.ModuleID, staff.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotAssigned) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not assigned to module"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.SessionsOpened.Inc()
	c.JSON(http.StatusOK, gin.H{
		"id":          sess.ID,
		"module_id":   sess.ModuleID,
		"lecturer_id": sess.LecturerID,
	})
}

// CloseSession ends a session owned by the logged-in lecturer.
func (h *Handler) CloseSession(c *gin.Context) {
	staff, _ := auth.CurrentStaff(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.sessions.Close(c.Request.Context(), id, staff.ID); err != nil {
		if errors.Is(err, session.ErrNotFoundOrEnded) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session not found or already ended"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.SessionsClosed.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ActiveSession returns the open session of a module, or null.
func (h *Handler) ActiveSession(c *gin.Context) {
	moduleID := queryID(c, "module_id")
	if moduleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing module_id"})
		return
	}

	sess, err := h.sessions.GetActive(c.Request.Context(), moduleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SessionHistory lists a module's sessions with attendance counts.
func (h *Handler) SessionHistory(c *gin.Context) {
	moduleID := queryID(c, "module_id")
	if moduleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing module_id"})
		return
	}

	rows, err := h.sessions.History(c.Request.Context(), moduleID, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []session.HistoryRow{}
	}
	c.JSON(http.StatusOK, rows)
}

// LiveCount reports the worker-maintained tap counter for a session.
func (h *Handler) LiveCount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.redis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live counters not configured"})
		return
	}
	count, err := h.redis.LiveCount(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "count": count})
}
