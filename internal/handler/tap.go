package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"campustap/internal/attendance"
	"campustap/internal/auth"
	"campustap/internal/metrics"
	"campustap/internal/queue"
	"campustap/internal/session"
)

// RegisterReader registers a tap reader and issues its token pair.
func (h *Handler) RegisterReader(c *gin.Context) {
	var req struct {
		ReaderID string `json:"reader_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roster.RegisterReader(c.Request.Context(), req.ReaderID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tokens, err := auth.Issue(req.ReaderID, "reader", h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	_ = h.roster.SaveRefreshToken(c.Request.Context(), req.ReaderID, tokens.RefreshToken, tokens.RefreshExp)

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// Tap records one card presentation. A re-tap in the same session is a
// success with already_logged set, never an error; the reader cannot tell
// the two apart.
func (h *Handler) Tap(c *gin.Context) {
	var req struct {
		CardUID  string `json:"nfc_uid"`
		ModuleID int64  `json:"module_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CardUID == "" || req.ModuleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing NFC UID or module_id"})
		return
	}

	res, err := h.attendance.RecordTap(c.Request.Context(), req.CardUID, req.ModuleID)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrUnknownCard):
			metrics.TapsTotal.WithLabelValues(metrics.TapUnknownCard).Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown card"})
		case errors.Is(err, session.ErrNoActiveSession):
			metrics.TapsTotal.WithLabelValues(metrics.TapNoSession).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "No active session for module"})
		default:
			metrics.TapsTotal.WithLabelValues(metrics.TapInternalError).Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if res.AlreadyLogged {
		metrics.TapsTotal.WithLabelValues(metrics.TapDuplicate).Inc()
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"already_logged": true,
			"name":           res.StudentName,
			"module_id":      res.ModuleID,
		})
		return
	}

	metrics.TapsTotal.WithLabelValues(metrics.TapRecorded).Inc()
	if h.q != nil {
		msg, err := queue.NewTapMessage(queue.TapEvent{
			SessionID: res.SessionID,
			StudentID: res.StudentID,
			ModuleID:  res.ModuleID,
		})
		if err == nil {
			if err := h.q.Publish(c.Request.Context(), msg); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"name":       res.StudentName,
		"module_id":  res.ModuleID,
		"session_id": res.SessionID,
	})
}
